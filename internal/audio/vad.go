package audio

const (
	// VADWindow is 100 ms at 16 kHz.
	VADWindow = SampleRate / 10
	// VADThreshold only rejects near-zero energy; quiet speech stays in.
	VADThreshold = 0.00001
	vadPadWindows = 2
)

// Region is a half-open sample range [Start, End).
type Region struct {
	Start int
	End   int
}

// HasSpeech reports whether the mean squared energy of window exceeds threshold.
func HasSpeech(window []float32, threshold float32) bool {
	if len(window) == 0 {
		return false
	}
	var energy float32
	for _, s := range window {
		energy += s * s
	}
	return energy/float32(len(window)) > threshold
}

// SegmentSpeech returns padded speech runs found in 100 ms windows. The result
// is advisory: when nothing qualifies it covers the whole buffer.
func SegmentSpeech(samples []float32) []Region {
	pad := VADWindow * vadPadWindows
	var regions []Region
	inSpeech := false
	start := 0

	for i := 0; i*VADWindow < len(samples); i++ {
		lo := i * VADWindow
		hi := min(lo+VADWindow, len(samples))
		speech := HasSpeech(samples[lo:hi], VADThreshold)
		switch {
		case speech && !inSpeech:
			start = lo
			inSpeech = true
		case !speech && inSpeech:
			regions = append(regions, Region{Start: max(start-pad, 0), End: min(lo+pad, len(samples))})
			inSpeech = false
		}
	}
	if inSpeech {
		regions = append(regions, Region{Start: max(start-pad, 0), End: len(samples)})
	}
	if len(regions) == 0 {
		regions = append(regions, Region{Start: 0, End: len(samples)})
	}
	return regions
}

// Coverage is the fraction of n samples inside regions. Overlapping padding
// is counted once.
func Coverage(regions []Region, n int) float64 {
	if n == 0 {
		return 0
	}
	covered := 0
	reach := 0
	for _, r := range regions {
		lo := max(r.Start, reach)
		if r.End > lo {
			covered += r.End - lo
		}
		reach = max(reach, r.End)
	}
	return float64(covered) / float64(n)
}
