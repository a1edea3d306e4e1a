// Package script splits narration text into per-scene segments and places
// scenes on the voiceover timeline.
package script

import (
	"math"
	"strings"
)

// Segment splits text into n word-based segments. Segment sizes use floor
// division; the last segment absorbs the remainder. When the text has fewer
// words than n, leading segments are empty and the last one holds everything.
// The uneven split is load-bearing: per-scene timing downstream assumes it.
func Segment(text string, n int) []string {
	if n < 1 {
		return nil
	}
	words := strings.Fields(text)
	per := len(words) / n
	segments := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := i * per
		if i == n-1 {
			segments = append(segments, strings.Join(words[start:], " "))
			continue
		}
		segments = append(segments, strings.Join(words[start:start+per], " "))
	}
	return segments
}

// Timestamps returns count scene anchors within [0, duration): the midpoints
// of count equal intervals, rounded to 2 decimals. count==1 anchors the single
// scene at duration/2.
func Timestamps(duration float64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []float64{duration / 2}
	}
	interval := duration / float64(count)
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = round2((float64(i) + 0.5) * interval)
	}
	return out
}

// SceneDurations derives per-scene durations from timestamps: each scene runs
// until the next anchor, the last until the end of the voiceover.
func SceneDurations(timestamps []float64, total float64) []float64 {
	out := make([]float64, len(timestamps))
	for i := range timestamps {
		if i < len(timestamps)-1 {
			out[i] = timestamps[i+1] - timestamps[i]
		} else {
			out[i] = total - timestamps[i]
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
