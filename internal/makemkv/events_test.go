package makemkv_test

import (
	"testing"

	"github.com/wingedonezero/mkvq/internal/makemkv"
)

func TestClassifyProgressValue(t *testing.T) {
	event := makemkv.Classify("PRGV:32768,0,65536")
	progress, ok := event.(makemkv.ProgressEvent)
	if !ok {
		t.Fatalf("expected ProgressEvent, got %T", event)
	}
	if progress.Current != 32768 || progress.Max != 65536 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func TestClassifyProgressZeroMaxDefaults(t *testing.T) {
	event := makemkv.Classify("PRGV:100,0,0")
	progress, ok := event.(makemkv.ProgressEvent)
	if !ok {
		t.Fatalf("expected ProgressEvent, got %T", event)
	}
	if progress.Max != makemkv.DefaultProgressMax {
		t.Fatalf("max = %d, want default %d", progress.Max, makemkv.DefaultProgressMax)
	}
}

func TestClassifyMessageUnescapes(t *testing.T) {
	line := `MSG:3307,0,2,"File 00800.mpls was added as title \"#0\"","%1 was added as title %2","00800.mpls","#0"`
	event := makemkv.Classify(line)
	message, ok := event.(makemkv.MessageEvent)
	if !ok {
		t.Fatalf("expected MessageEvent, got %T", event)
	}
	if message.Text != `File 00800.mpls was added as title "#0"` {
		t.Fatalf("unexpected text: %q", message.Text)
	}
	if message.Raw != line {
		t.Fatalf("raw line not preserved")
	}
}

func TestClassifyLabel(t *testing.T) {
	event := makemkv.Classify(`CINFO:2,0,"LOGICAL_VOLUME"`)
	label, ok := event.(makemkv.LabelEvent)
	if !ok {
		t.Fatalf("expected LabelEvent, got %T", event)
	}
	if label.Label != "LOGICAL_VOLUME" {
		t.Fatalf("label = %q", label.Label)
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	for _, line := range []string{
		"",
		"PRGC:5057,0,\"Analyzing seamless segments\"",
		"PRGV:notanumber,0,65536",
		"MSG:1005,0,0",
		"CINFO:1,6209,\"Blu-ray disc\"",
		"DRV:0,2,999,1,\"BD-ROM\",\"LABEL\",\"/dev/sr0\"",
	} {
		if _, ok := makemkv.Classify(line).(makemkv.Unrecognized); !ok {
			t.Errorf("Classify(%q) should be Unrecognized", line)
		}
	}
}
