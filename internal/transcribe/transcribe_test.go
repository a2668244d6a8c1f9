package transcribe

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/render"
)

func sec(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

func TestToTimeline(t *testing.T) {
	// audio is [0,2) of the timeline followed by [5,8)
	spans := []render.Span{{Start: 0, End: sec(2)}, {Start: sec(5), End: sec(8)}}

	tests := []struct {
		name string
		in   Segment
		want Segment
	}{
		{"first span", Segment{Text: " hello ", Start: sec(0.5), Duration: sec(1)}, Segment{Text: "hello", Start: sec(0.5), Duration: sec(1)}},
		{"second span start", Segment{Text: "a", Start: sec(2), Duration: sec(1)}, Segment{Text: "a", Start: sec(5), Duration: sec(1)}},
		{"inside second span", Segment{Text: "b", Start: sec(3.25), Duration: sec(0.5)}, Segment{Text: "b", Start: sec(6.25), Duration: sec(0.5)}},
		{"past the audio", Segment{Text: "c", Start: sec(6), Duration: sec(1)}, Segment{Text: "c", Start: sec(9), Duration: sec(1)}},
		{"negative clamps", Segment{Text: "d", Start: -sec(1), Duration: -sec(1)}, Segment{Text: "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTimeline([]Segment{tt.in}, spans)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("ToTimeline(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToTimelineDropsEmptyText(t *testing.T) {
	got := ToTimeline([]Segment{{Text: "  "}, {Text: "kept", Start: sec(1)}}, nil)
	if len(got) != 1 || got[0].Text != "kept" || got[0].Start != sec(1) {
		t.Errorf("got %+v", got)
	}
}

type fakeExtractor struct {
	spans []render.Span
	err   error
	path  string
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, job render.Job, output string, format ffmpeg.AudioFormat, _ func(ffmpeg.Progress)) (ffmpeg.AudioPlan, error) {
	f.path = output
	if f.err != nil {
		return ffmpeg.AudioPlan{}, f.err
	}
	if format.SampleRate != 16000 || format.Channels != 1 {
		return ffmpeg.AudioPlan{}, errors.New("unexpected format")
	}
	if err := os.WriteFile(output, []byte("RIFF"), 0644); err != nil {
		return ffmpeg.AudioPlan{}, err
	}
	return ffmpeg.AudioPlan{Spans: f.spans}, nil
}

type fakeModel struct {
	segments []Segment
	sawFile  bool
}

func (f *fakeModel) Transcribe(_ context.Context, audioPath string) ([]Segment, error) {
	_, err := os.Stat(audioPath)
	f.sawFile = err == nil
	return f.segments, nil
}

func speechJob() render.Job {
	return render.Job{Clips: []render.ClipSpec{
		{ID: 1, SourcePath: "/a.mp4", OutPoint: sec(2), Volume: 100, HasAudio: true},
		{ID: 2, SourcePath: "/b.mp4", OutPoint: sec(3), TimelineStart: sec(5), Volume: 100, HasAudio: true},
	}}
}

func TestServiceTranscribe(t *testing.T) {
	extract := &fakeExtractor{spans: speechJob().AudibleSpans()}
	model := &fakeModel{segments: []Segment{
		{Text: "first", Start: sec(0.2), Duration: sec(1.5)},
		{Text: "second", Start: sec(2.5), Duration: sec(2)},
	}}
	svc := New(extract, model, t.TempDir(), zerolog.Nop())

	got, err := svc.Transcribe(context.Background(), speechJob())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	want := []Segment{
		{Text: "first", Start: sec(0.2), Duration: sec(1.5)},
		{Text: "second", Start: sec(5.5), Duration: sec(2)},
	}
	if !slices.Equal(got.Segments, want) {
		t.Errorf("segments = %+v, want %+v", got.Segments, want)
	}
	if got.Text() != "first\nsecond" {
		t.Errorf("Text() = %q", got.Text())
	}
	if got.Timed() != "[00:00] first\n[00:05] second\n" {
		t.Errorf("Timed() = %q", got.Timed())
	}

	if !model.sawFile {
		t.Error("model did not receive the extracted audio")
	}
	if _, err := os.Stat(extract.path); !os.IsNotExist(err) {
		t.Errorf("scratch audio left behind: %v", err)
	}
}

func TestServiceNoAudio(t *testing.T) {
	job := speechJob()
	for i := range job.Clips {
		job.Clips[i].Muted = true
	}
	svc := New(&fakeExtractor{}, &fakeModel{}, t.TempDir(), zerolog.Nop())
	if _, err := svc.Transcribe(context.Background(), job); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
}

func TestServiceExtractFails(t *testing.T) {
	boom := errors.New("ffmpeg exploded")
	svc := New(&fakeExtractor{err: boom}, &fakeModel{}, t.TempDir(), zerolog.Nop())
	if _, err := svc.Transcribe(context.Background(), speechJob()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped extraction error, got %v", err)
	}
}
