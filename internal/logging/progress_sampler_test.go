package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
		{"small bucket size", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "stage") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSampler_StageChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "Probing") {
		t.Error("first stage should log")
	}
	if s.ShouldLog(0, "Probing") {
		t.Error("same stage and percent should not log again")
	}
	if !s.ShouldLog(0, "Ripping") {
		t.Error("different stage should log")
	}
	if s.lastStage != "Ripping" {
		t.Errorf("lastStage = %q, want Ripping", s.lastStage)
	}
}

func TestProgressSampler_BucketCrossing(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "Ripping") {
		t.Error("bucket 0 should log")
	}
	if s.ShouldLog(4.9, "Ripping") {
		t.Error("inside bucket 0 should not log")
	}
	if !s.ShouldLog(5, "Ripping") {
		t.Error("bucket 1 should log")
	}
	if s.ShouldLog(3, "Ripping") {
		t.Error("regressing percent should not log")
	}
	if !s.ShouldLog(100, "Ripping") {
		t.Error("terminal bucket should log")
	}
	if s.ShouldLog(100, "Ripping") {
		t.Error("terminal bucket should log once")
	}
}

func TestProgressSampler_UnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "Ripping") {
		t.Error("stage change with unknown percent should log")
	}
	if s.ShouldLog(-1, "Ripping") {
		t.Error("unknown percent alone should not log")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "Ripping")
	s.Reset()
	if !s.ShouldLog(0, "Ripping") {
		t.Error("after reset the first event should log again")
	}
}
