package progress

import "github.com/forPelevin/srtgen/internal/types"

// Sampler thins a progress stream for log output: it passes an event when
// the status changes or the percentage enters a new bucket.
type Sampler struct {
	bucketSize int
	lastStatus types.Status
	lastBucket int
}

// NewSampler uses 10% buckets when bucketSize is not positive.
func NewSampler(bucketSize int) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

func (s *Sampler) ShouldLog(ev types.ProgressEvent) bool {
	emit := false
	if ev.Status != s.lastStatus {
		s.lastStatus = ev.Status
		s.lastBucket = -1
		emit = true
	}
	bucket := min(ev.Percentage, 100) / s.bucketSize
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}
