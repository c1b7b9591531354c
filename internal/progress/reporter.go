// Package progress estimates inference progress on a timer.
package progress

import (
	"time"

	"github.com/forPelevin/srtgen/internal/ports"
	"github.com/forPelevin/srtgen/internal/types"
)

const (
	DefaultInterval = 200 * time.Millisecond
	DefaultLow      = 20
	DefaultHigh     = 80

	minEstimate = 5 * time.Second
)

// Token is the part of a job token the reporter observes.
type Token interface {
	Cancelled() bool
	Done() <-chan struct{}
}

// Reporter maps elapsed time against an estimate into [Low, High] percent.
type Reporter struct {
	Interval time.Duration
	Low      int
	High     int

	now func() time.Time
}

func NewReporter() *Reporter {
	return &Reporter{Interval: DefaultInterval, Low: DefaultLow, High: DefaultHigh, now: time.Now}
}

// Estimate is half the audio duration, at least five seconds.
func Estimate(totalMS int64) time.Duration {
	return max(time.Duration(totalMS)*time.Millisecond/2, minEstimate)
}

// Event computes the transcribing event after elapsed time.
func (r *Reporter) Event(elapsed time.Duration, totalMS int64) types.ProgressEvent {
	ratio := min(float64(elapsed)/float64(Estimate(totalMS)), 1)
	pct := min(r.Low+int(ratio*float64(r.High-r.Low)), r.High)
	return types.ProgressEvent{
		Percentage:  pct,
		ProcessedMS: int64(ratio * float64(totalMS)),
		TotalMS:     totalMS,
		Status:      types.StatusTranscribing,
	}
}

// Run emits events until done is closed or tok is cancelled. It never emits
// after either has happened.
func (r *Reporter) Run(tok Token, totalMS int64, sink ports.ProgressSink, done <-chan struct{}) {
	if sink == nil {
		return
	}
	now := r.now
	if now == nil {
		now = time.Now
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	start := now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-tok.Done():
			return
		case <-ticker.C:
		}
		select {
		case <-done:
			return
		default:
		}
		if tok.Cancelled() {
			return
		}
		sink(r.Event(now().Sub(start), totalMS))
	}
}
