package ripper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wingedonezero/mkvq/internal/makemkv"
)

// etaSampleInterval is the minimum spacing between rate samples; etaWindow
// bounds how many samples feed the estimate.
const (
	etaSampleInterval = 3 * time.Second
	etaWindow         = 5
	etaUnknown        = "--:--:--"
)

type etaSample struct {
	at      time.Time
	counter int64
}

// etaEstimator derives a completion estimate from the rate of change of the
// PRGV counter over a short rolling window.
type etaEstimator struct {
	samples []etaSample
	now     func() time.Time
}

func newETAEstimator(now func() time.Time) *etaEstimator {
	if now == nil {
		now = time.Now
	}
	return &etaEstimator{now: now}
}

// Observe records the counter if enough time has passed since the previous
// sample.
func (e *etaEstimator) Observe(counter int64) {
	at := e.now()
	if n := len(e.samples); n > 0 && at.Sub(e.samples[n-1].at) < etaSampleInterval {
		return
	}
	e.samples = append(e.samples, etaSample{at: at, counter: counter})
	if len(e.samples) > etaWindow {
		e.samples = e.samples[1:]
	}
}

// Estimate returns the formatted time remaining for the counter to reach max.
// Fewer than two samples or a non-positive rate yields the unknown
// placeholder rather than a misleading number.
func (e *etaEstimator) Estimate(counter, max int64) string {
	if len(e.samples) < 2 || counter >= max {
		return etaUnknown
	}
	first := e.samples[0]
	last := e.samples[len(e.samples)-1]
	span := last.at.Sub(first.at).Seconds()
	progressed := last.counter - first.counter
	if span <= 0 || progressed <= 0 {
		return etaUnknown
	}
	rate := float64(progressed) / span
	remaining := time.Duration(float64(max-counter)/rate) * time.Second
	if remaining >= 24*time.Hour {
		return etaUnknown
	}
	h := int(remaining.Hours())
	m := int(remaining.Minutes()) % 60
	s := int(remaining.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Reset clears the window for a new title.
func (e *etaEstimator) Reset() {
	e.samples = e.samples[:0]
}

// slicePlan allots each selected title a fraction of the job's overall
// progress bar: size-proportional when probe metadata reported a parseable
// byte size for every title, equal-weight otherwise.
type slicePlan struct {
	weights []float64
}

func newSlicePlan(titles []int, info map[int]makemkv.TitleInfo) slicePlan {
	count := len(titles)
	if count == 0 {
		return slicePlan{}
	}

	sizes := make([]int64, count)
	var total int64
	sized := true
	for i, id := range titles {
		bytes := sizeToBytes(info[id].Size)
		if bytes <= 0 {
			sized = false
			break
		}
		sizes[i] = bytes
		total += bytes
	}

	weights := make([]float64, count)
	if sized && total > 0 {
		for i, bytes := range sizes {
			weights[i] = float64(bytes) / float64(total)
		}
	} else {
		for i := range weights {
			weights[i] = 1.0 / float64(count)
		}
	}
	return slicePlan{weights: weights}
}

// Overall blends a title's internal percentage into the job percentage:
// completed slices contribute their full weight, the active slice is scaled.
func (p slicePlan) Overall(titleIdx int, titlePct float64) int {
	if len(p.weights) == 0 {
		return 0
	}
	if titleIdx >= len(p.weights) {
		return 100
	}
	var done float64
	for i := 0; i < titleIdx; i++ {
		done += p.weights[i]
	}
	overall := math.Round((done + p.weights[titleIdx]*titlePct/100) * 100)
	if overall < 0 {
		return 0
	}
	if overall > 100 {
		return 100
	}
	return int(overall)
}

// sizeToBytes parses the human-readable size strings MakeMKV reports
// ("28.5 GB", "412.1 MB"). Unparseable input yields zero.
func sizeToBytes(size string) int64 {
	size = strings.ToLower(strings.TrimSpace(size))
	if size == "" {
		return 0
	}
	multiplier := int64(1)
	for suffix, factor := range map[string]int64{
		"gb": 1 << 30,
		"mb": 1 << 20,
		"kb": 1 << 10,
	} {
		if strings.HasSuffix(size, suffix) {
			size = strings.TrimSpace(strings.TrimSuffix(size, suffix))
			multiplier = factor
			break
		}
	}
	value, err := strconv.ParseFloat(size, 64)
	if err != nil || value < 0 {
		return 0
	}
	return int64(value * float64(multiplier))
}
