package ffmpeg

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/render"
)

// gapJob has speech at [0,2) and [5,8) with a silent clip between them.
func gapJob(source string) render.Job {
	return render.Job{
		Clips: []render.ClipSpec{
			{ID: 1, SourcePath: source, OutPoint: 2 * time.Second, Volume: 100, HasAudio: true},
			{ID: 2, SourcePath: "/media/silent.mp4", OutPoint: 3 * time.Second, TimelineStart: 2 * time.Second, Volume: 100},
			{ID: 3, SourcePath: source, OutPoint: 3 * time.Second, TimelineStart: 5 * time.Second, Volume: 80, HasAudio: true},
		},
		Width:  320,
		Height: 240,
	}
}

func TestBuildAudioPlanReusesExportMix(t *testing.T) {
	plan, err := BuildAudioPlan(testJob())
	if err != nil {
		t.Fatalf("BuildAudioPlan failed: %v", err)
	}

	if want := []render.Span{{Start: 0, End: 10 * time.Second}}; !slices.Equal(plan.Spans, want) {
		t.Errorf("spans = %v, want %v", plan.Spans, want)
	}
	if plan.Duration != 10*time.Second {
		t.Errorf("duration = %v, want 10s", plan.Duration)
	}

	inputs := strings.Join(plan.Inputs, " ")
	if strings.Contains(inputs, "/media/c.mp4") || strings.Contains(inputs, "color=") {
		t.Errorf("only audible clips and the silent bed are inputs: %s", inputs)
	}

	for _, want := range []string{
		"[0:a]atrim=duration=10.000,asetpts=PTS-STARTPTS[abed]",
		"volume=1.50,afade=t=in:st=0:d=1.000",
		"adelay=5000:all=1",
		"amix=inputs=3",
		"[aout]atrim=start=0.000:end=10.000,asetpts=PTS-STARTPTS[aspeech]",
	} {
		if !strings.Contains(plan.Filter, want) {
			t.Errorf("filter missing %q:\n%s", want, plan.Filter)
		}
	}
}

func TestBuildAudioPlanDropsGaps(t *testing.T) {
	plan, err := BuildAudioPlan(gapJob("/media/a.mp4"))
	if err != nil {
		t.Fatalf("BuildAudioPlan failed: %v", err)
	}

	want := []render.Span{{Start: 0, End: 2 * time.Second}, {Start: 5 * time.Second, End: 8 * time.Second}}
	if !slices.Equal(plan.Spans, want) {
		t.Errorf("spans = %v, want %v", plan.Spans, want)
	}
	if plan.Duration != 5*time.Second {
		t.Errorf("duration = %v, want 5s", plan.Duration)
	}
	if got := plan.String(); got != "0.000-2.000,5.000-8.000" {
		t.Errorf("String() = %q", got)
	}

	for _, want := range []string{
		"[2:a]asetpts=PTS-STARTPTS,volume=0.80,adelay=5000:all=1[a2]",
		"[aout]asplit=2[as0][as1]",
		"[as0]atrim=start=0.000:end=2.000,asetpts=PTS-STARTPTS[at0]",
		"[as1]atrim=start=5.000:end=8.000,asetpts=PTS-STARTPTS[at1]",
		"[at0][at1]concat=n=2:v=0:a=1[aspeech]",
	} {
		if !strings.Contains(plan.Filter, want) {
			t.Errorf("filter missing %q:\n%s", want, plan.Filter)
		}
	}
	if strings.Contains(strings.Join(plan.Inputs, " "), "silent.mp4") {
		t.Error("a clip without audio must not be an input")
	}

	args := strings.Join(plan.Args(DefaultWhisperFormat(), "/tmp/speech.wav"), " ")
	for _, want := range []string{"-map [aspeech] -vn -acodec pcm_s16le -ar 16000 -ac 1", "-t 5.000 /tmp/speech.wav"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestBuildAudioPlanNothingAudible(t *testing.T) {
	job := testJob()
	for i := range job.Clips {
		job.Clips[i].Muted = true
	}
	if _, err := BuildAudioPlan(job); err == nil {
		t.Error("expected an error when no clip is heard")
	}
}

func TestExtractAudio(t *testing.T) {
	skipIfNoFFmpeg(t)

	dir := t.TempDir()
	exec := newTestExecutor(t)
	output := filepath.Join(dir, "speech", "timeline.wav")

	plan, err := exec.ExtractAudio(context.Background(), gapJob(generateClip(t, dir, 3)), output, DefaultWhisperFormat(), nil)
	if err != nil {
		recordError("audio extraction failed: %v", err)
		t.Fatalf("ExtractAudio failed: %v", err)
	}
	if len(plan.Spans) != 2 {
		t.Errorf("expected 2 spans, got %v", plan.Spans)
	}

	info, err := exec.ProbeVideo(context.Background(), output)
	if err != nil {
		t.Fatalf("probe output: %v", err)
	}
	if info.HasVideo || !info.HasAudio {
		t.Errorf("expected audio only, got video=%v audio=%v", info.HasVideo, info.HasAudio)
	}
	if d := info.Duration; d < 4800*time.Millisecond || d > 5200*time.Millisecond {
		t.Errorf("expected ~5s of audio with the gap removed, got %v", d)
	}
}
