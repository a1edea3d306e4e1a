package script

import (
	"math"
	"strings"
	"testing"
)

func TestSegmentBasic(t *testing.T) {
	got := Segment("a b c d e", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(got))
	}
	if got[0] != "a b" || got[1] != "c d e" {
		t.Fatalf("unexpected split: %q", got)
	}
}

func TestSegmentPreservesWords(t *testing.T) {
	text := "one two three four five six seven eight nine ten eleven"
	for n := 1; n <= 13; n++ {
		segments := Segment(text, n)
		if len(segments) != n {
			t.Fatalf("n=%d: got %d segments", n, len(segments))
		}
		var rejoined []string
		for _, s := range segments {
			if s == "" {
				continue
			}
			rejoined = append(rejoined, strings.Fields(s)...)
		}
		if strings.Join(rejoined, " ") != text {
			t.Fatalf("n=%d: words lost or reordered: %q", n, rejoined)
		}
	}
}

func TestSegmentFewerWordsThanSegments(t *testing.T) {
	got := Segment("hello world", 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 segments, got %d", len(got))
	}
	for i := 0; i < 4; i++ {
		if got[i] != "" {
			t.Fatalf("segment %d should be empty, got %q", i, got[i])
		}
	}
	if got[4] != "hello world" {
		t.Fatalf("last segment should hold everything, got %q", got[4])
	}
}

func TestTimestampsKnownValues(t *testing.T) {
	got := Timestamps(10.0, 2)
	if len(got) != 2 || got[0] != 2.5 || got[1] != 7.5 {
		t.Fatalf("timestamps(10,2) = %v", got)
	}
	got = Timestamps(9.0, 1)
	if len(got) != 1 || got[0] != 4.5 {
		t.Fatalf("timestamps(9,1) = %v", got)
	}
	if got := Timestamps(30, 0); got != nil {
		t.Fatalf("count=0 should be empty, got %v", got)
	}
}

func TestTimestampsMonotoneInRange(t *testing.T) {
	for _, count := range []int{1, 2, 3, 7, 20} {
		duration := 37.4
		ts := Timestamps(duration, count)
		if len(ts) != count {
			t.Fatalf("count=%d: got %d values", count, len(ts))
		}
		prev := -1.0
		for i, v := range ts {
			if v <= prev {
				t.Fatalf("count=%d: not strictly increasing at %d: %v", count, i, ts)
			}
			if v < 0 || v >= duration {
				t.Fatalf("count=%d: value %v out of [0,%v)", count, v, duration)
			}
			prev = v
		}
	}
}

func TestSceneDurationsSumToTotal(t *testing.T) {
	total := 30.0
	ts := Timestamps(total, 3)
	durations := SceneDurations(ts, total)
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	// Scenes cover everything from the first anchor to the end.
	want := total - ts[0]
	if math.Abs(sum-want) > 0.01 {
		t.Fatalf("durations %v sum %v, want %v", durations, sum, want)
	}
}
