package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type call struct {
	name string
	args []string
}

// fakeRunner records invocations and fabricates outputs so no real ffmpeg is
// needed.
type fakeRunner struct {
	calls  []call
	stdout map[string][]byte // keyed by command name
	errOn  string            // substring of args that triggers an error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	joined := strings.Join(args, " ")
	if f.errOn != "" && strings.Contains(joined, f.errOn) {
		return nil, errors.New("simulated tool failure")
	}
	// ffmpeg runs write their output file so Stat checks pass.
	if name != "ffprobe" && len(args) > 0 {
		out := args[len(args)-1]
		_ = os.WriteFile(out, []byte("x"), 0o644)
	}
	return f.stdout[name], nil
}

func newTool(f *fakeRunner) *Tool {
	return NewTool(Options{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe", Runner: f.run})
}

func TestProbeDuration(t *testing.T) {
	f := &fakeRunner{stdout: map[string][]byte{
		"ffprobe": []byte(`{"format":{"duration":"12.480000"}}`),
	}}
	tool := newTool(f)

	got, err := tool.ProbeDuration(context.Background(), "voice.mp3")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if got != 12.48 {
		t.Fatalf("duration = %v, want 12.48", got)
	}

	// Idempotent for an unchanged input.
	again, err := tool.ProbeDuration(context.Background(), "voice.mp3")
	if err != nil || again != got {
		t.Fatalf("second probe = %v, %v", again, err)
	}
}

func TestProbeDurationMalformed(t *testing.T) {
	f := &fakeRunner{stdout: map[string][]byte{"ffprobe": []byte(`{}`)}}
	tool := newTool(f)
	_, err := tool.ProbeDuration(context.Background(), "voice.mp3")
	if !errors.Is(err, ErrProbe) {
		t.Fatalf("expected ErrProbe, got %v", err)
	}
}

func TestConcatenatePreservesOrder(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{stdout: map[string][]byte{}}
	tool := newTool(f)

	clips := []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "b.mp4"),
		filepath.Join(dir, "c.mp4"),
	}
	out := filepath.Join(dir, "out.mp4")

	var fractions []float64
	_, err := tool.Concatenate(context.Background(), clips, out, ConcatOptions{
		Progress: func(p float64) { fractions = append(fractions, p) },
	})
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected single ffmpeg run, got %d", len(f.calls))
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1 {
		t.Fatalf("progress fractions = %v", fractions)
	}

	// The list file is consumed by ffmpeg before cleanup; rebuild it to check
	// ordering semantics.
	listPath := filepath.Join(dir, "list_check.txt")
	if err := writeConcatList(listPath, clips); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(listPath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 list entries, got %d", len(lines))
	}
	for i, clip := range clips {
		if !strings.Contains(lines[i], filepath.Base(clip)) {
			t.Fatalf("line %d = %q, want clip %q", i, lines[i], clip)
		}
	}
}

func TestConcatenateWithTargetDurationRunsTrimPass(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{stdout: map[string][]byte{}}
	tool := newTool(f)

	out := filepath.Join(dir, "out.mp4")
	_, err := tool.Concatenate(context.Background(), []string{filepath.Join(dir, "a.mp4")}, out, ConcatOptions{TargetDuration: 42.5})
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected concat+trim runs, got %d", len(f.calls))
	}
	trimArgs := strings.Join(f.calls[1].args, " ")
	if !strings.Contains(trimArgs, "-t 42.5") {
		t.Fatalf("trim args missing duration: %s", trimArgs)
	}
}

func TestConcatenateTrimFailureDistinct(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{stdout: map[string][]byte{}, errOn: "-t 5"}
	tool := newTool(f)

	out := filepath.Join(dir, "out.mp4")
	_, err := tool.Concatenate(context.Background(), []string{filepath.Join(dir, "a.mp4")}, out, ConcatOptions{TargetDuration: 5})
	if !errors.Is(err, ErrTrim) {
		t.Fatalf("expected ErrTrim, got %v", err)
	}
	if errors.Is(err, ErrConcat) {
		t.Fatalf("trim failure must not be reported as concat failure")
	}
}

func TestOverlayAudioShortestWins(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{stdout: map[string][]byte{}}
	tool := newTool(f)

	out := filepath.Join(dir, "final.mp4")
	got, err := tool.OverlayAudio(context.Background(), "video.mp4", "voice.mp3", out)
	if err != nil {
		t.Fatalf("OverlayAudio: %v", err)
	}
	if got != out {
		t.Fatalf("output path = %q", got)
	}
	args := strings.Join(f.calls[0].args, " ")
	if !strings.Contains(args, "-shortest") {
		t.Fatalf("overlay must use -shortest: %s", args)
	}
}

func TestImageToClipArgs(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRunner{stdout: map[string][]byte{}}
	tool := newTool(f)

	out := filepath.Join(dir, "clip_001.mp4")
	if _, err := tool.ImageToClip(context.Background(), "scene.png", out, 2.75); err != nil {
		t.Fatalf("ImageToClip: %v", err)
	}
	args := strings.Join(f.calls[0].args, " ")
	for _, want := range []string{"-loop 1", "-t 2.75", "-pix_fmt yuv420p"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q: %s", want, args)
		}
	}
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "list.txt")
	clip := filepath.Join(dir, "it's.mp4")
	if err := writeConcatList(listPath, []string{clip}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(listPath)
	if !strings.Contains(string(data), `'\''`) {
		t.Fatalf("quote not escaped: %s", data)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[float64]string{
		5:     "5",
		42.5:  "42.5",
		2.75:  "2.75",
		0.125: "0.125",
	}
	for in, want := range cases {
		if got := formatSeconds(in); got != want {
			t.Fatalf("formatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}
