//go:build integration

package itest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/forPelevin/srtgen/internal/ports/adapters/ffmpeg"
)

// containerDuration asks ffprobe (SRTGEN_FFPROBE or PATH) how long the
// media is, as a reference for the decoded sample count.
func containerDuration(t *testing.T, mediaPath string) time.Duration {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d, err := ffmpeg.New("", os.Getenv("SRTGEN_FFPROBE")).ProbeDuration(ctx, mediaPath)
	if err != nil {
		t.Fatalf("ffprobe %s: %v", mediaPath, err)
	}
	return d
}
