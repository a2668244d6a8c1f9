package ffmpeg

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kikiluvv/clipforge/internal/compositor"
	"github.com/kikiluvv/clipforge/internal/overlays"
	"github.com/kikiluvv/clipforge/internal/render"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// Input indexes of the generated sources.
const (
	canvasInput  = 0
	silenceInput = 1
	firstClip    = 2
)

// Plan is a ready-to-run export command.
type Plan struct {
	Inputs     []string
	Filter     string
	VideoLabel string
	AudioLabel string
	Duration   time.Duration
}

// Args returns the full ffmpeg argument list writing to output.
func (p Plan) Args(job render.Job, output string) []string {
	preset := job.Preset
	if preset == "" {
		preset = DefaultPreset
	}
	crf := job.CRF
	if crf <= 0 {
		crf = DefaultCRF
	}
	abr := job.AudioBitrate
	if abr == "" {
		abr = DefaultAudioBitrate
	}

	args := slices.Clone(p.Inputs)
	args = append(args,
		"-filter_complex", p.Filter,
		"-map", "["+p.VideoLabel+"]",
		"-map", "["+p.AudioLabel+"]",
		"-c:v", DefaultVideoCodec,
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-pix_fmt", "yuv420p",
		"-c:a", DefaultAudioCodec,
		"-b:a", abr,
		"-ar", strconv.Itoa(DefaultSampleRate),
		"-movflags", "+faststart",
		"-t", util.FormatSeconds(p.Duration),
		"-f", "mp4",
		output,
	)
	return args
}

// segment is a stretch of the timeline where a clip is drawn with one
// geometry.
type segment struct {
	from, to time.Duration
	geometry compositor.Geometry
}

// clipPlacement is how one clip enters the graph.
type clipPlacement struct {
	clip      render.ClipSpec
	input     int
	segments  []segment
	padStart  time.Duration
	padStop   time.Duration
	fadeIns   [][2]time.Duration
	fadeOuts  [][2]time.Duration
	z         int
	listIndex int
}

// BuildPlan turns a job into an ffmpeg filter graph. The graph draws a black
// canvas, overlays every clip at its timeline position, applies transitions
// as alpha fades, mixes audio and draws text overlays on top.
func BuildPlan(job render.Job, fonts *overlays.FontRegistry) (Plan, error) {
	if len(job.Clips) == 0 {
		return Plan{}, fmt.Errorf("job has no clips")
	}
	if job.Width <= 0 || job.Height <= 0 {
		return Plan{}, fmt.Errorf("invalid output size %dx%d", job.Width, job.Height)
	}
	fps := job.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	total := job.Duration
	for _, c := range job.Clips {
		total = max(total, c.End())
	}
	for _, o := range job.TextOverlays {
		total = max(total, o.Start+o.Duration)
	}

	placements := placeClips(job, total)

	inputs := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", job.Width, job.Height, fps, util.FormatSeconds(total)),
		"-f", "lavfi", "-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", DefaultSampleRate),
	}
	for _, p := range placements {
		inputs = append(inputs,
			"-ss", util.FormatSeconds(p.clip.InPoint),
			"-t", util.FormatSeconds(p.clip.Duration()),
			"-i", p.clip.SourcePath,
		)
	}

	g := &Graph{}
	g.Chain([]string{fmt.Sprintf("%d:v", canvasInput)}, NewFilterBuilder().Format("yuv420p"), "base0")

	// Video, bottom to top.
	ordered := slices.Clone(placements)
	slices.SortStableFunc(ordered, func(a, b clipPlacement) int { return a.z - b.z })

	base := "base0"
	n := 0
	for _, p := range ordered {
		if len(p.segments) == 0 {
			continue
		}
		visibleFrom := p.clip.TimelineStart - p.padStart
		prep := NewFilterBuilder().FPS(fps).Format("yuva420p").Pad(p.padStart, p.padStop).Offset(visibleFrom)
		for _, f := range p.fadeIns {
			prep.AlphaFadeIn(f[0], f[1])
		}
		for _, f := range p.fadeOuts {
			prep.AlphaFadeOut(f[0], f[1])
		}

		// One scaled copy of the stream per geometry segment.
		src := fmt.Sprintf("c%d", p.listIndex)
		g.Chain([]string{fmt.Sprintf("%d:v", p.input)}, prep, src)
		sources := []string{src}
		if len(p.segments) > 1 {
			sources = sources[:0]
			for k := range p.segments {
				sources = append(sources, fmt.Sprintf("c%d_%d", p.listIndex, k))
			}
			g.Chain([]string{src}, NewFilterBuilder().Custom(fmt.Sprintf("split=%d", len(p.segments))), sources...)
		}

		for k, seg := range p.segments {
			fb := NewFilterBuilder()
			pos := "0:0"
			if seg.geometry == compositor.PictureInPicture {
				fb.ScaleWidth(int(float64(job.Width) * compositor.PiPScale))
				pos = fmt.Sprintf("main_w-overlay_w-%d:main_h-overlay_h-%d", compositor.PiPMargin, compositor.PiPMargin)
			} else {
				fb.Fit(job.Width, job.Height)
			}
			label := fmt.Sprintf("v%d", p.listIndex)
			if len(p.segments) > 1 {
				label = fmt.Sprintf("v%d_%d", p.listIndex, k)
			}
			g.Chain([]string{sources[k]}, fb, label)

			// Segments of one clip meet end to start; only the last one
			// includes its end so a boundary frame is drawn once.
			enable := fmt.Sprintf("between(t,%s,%s)", util.FormatSeconds(seg.from), util.FormatSeconds(seg.to))
			if k < len(p.segments)-1 {
				enable = fmt.Sprintf("gte(t,%s)*lt(t,%s)", util.FormatSeconds(seg.from), util.FormatSeconds(seg.to))
			}
			n++
			next := fmt.Sprintf("base%d", n)
			overlay := NewFilterBuilder().Custom(fmt.Sprintf("overlay=%s:eof_action=pass:enable='%s'", pos, enable))
			g.Chain([]string{base, label}, overlay, next)
			base = next
		}
	}

	// Text overlays draw in list order so later ones sit on top.
	text := NewFilterBuilder()
	for _, o := range job.TextOverlays {
		text.Custom(drawText(o, fonts))
	}
	text.Format("yuv420p")
	g.Chain([]string{base}, text, "vout")

	audioLabel := mixAudio(g, silenceInput, placements, total)

	return Plan{
		Inputs:     inputs,
		Filter:     g.String(),
		VideoLabel: "vout",
		AudioLabel: audioLabel,
		Duration:   total,
	}, nil
}

// mixAudio adds the timeline's audio to g: clip streams delayed to their
// timeline position and mixed over a silent bed that fixes the length. It
// returns the label of the mixed stream.
func mixAudio(g *Graph, silence int, placements []clipPlacement, total time.Duration) string {
	g.Chain([]string{fmt.Sprintf("%d:a", silence)},
		NewFilterBuilder().AudioTrim(total).AudioResetPTS(), "abed")
	mix := []string{"abed"}
	for _, p := range placements {
		c := p.clip
		if !c.Audible() {
			continue
		}
		label := fmt.Sprintf("a%d", p.listIndex)
		fb := NewFilterBuilder().
			AudioResetPTS().
			AudioVolume(float64(c.Volume)/100).
			AudioFade(c.FadeIn, c.FadeOut, c.Duration()).
			AudioDelay(c.TimelineStart)
		g.Chain([]string{fmt.Sprintf("%d:a", p.input)}, fb, label)
		mix = append(mix, label)
	}
	if len(mix) == 1 {
		return "abed"
	}
	g.Chain(mix, NewFilterBuilder().Custom(
		fmt.Sprintf("amix=inputs=%d:duration=first:dropout_transition=0:normalize=0", len(mix))), "aout")
	return "aout"
}

// placeClips assigns inputs, stacking order, geometry segments and
// transition fades.
func placeClips(job render.Job, total time.Duration) []clipPlacement {
	placements := make([]clipPlacement, len(job.Clips))
	for i, c := range job.Clips {
		placements[i] = clipPlacement{clip: c, input: firstClip + i, listIndex: i}
	}

	// Stacking follows the preview: track, then start time.
	order := make([]int, len(placements))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ca, cb := placements[a].clip, placements[b].clip
		if ca.Track != cb.Track {
			return ca.Track - cb.Track
		}
		return cmp.Compare(ca.TimelineStart, cb.TimelineStart)
	})
	for z, i := range order {
		placements[i].z = z
	}
	segments := geometrySegments(job, total)
	for i := range placements {
		placements[i].segments = segments[placements[i].clip.ID]
	}

	index := func(id int) int {
		return slices.IndexFunc(placements, func(p clipPlacement) bool { return p.clip.ID == id })
	}

	seen := make(map[[2]int]bool)
	for _, tr := range job.Transitions {
		bi, ai := index(tr.ClipIDBefore), index(tr.ClipIDAfter)
		if bi < 0 || ai < 0 || tr.Duration <= 0 {
			continue
		}
		key := [2]int{tr.ClipIDBefore, tr.ClipIDAfter}
		if seen[key] {
			continue
		}
		seen[key] = true

		before, after := &placements[bi], &placements[ai]
		start := before.clip.End() - tr.Duration/2
		end := start + tr.Duration
		d := tr.Duration

		// Both sides are visible for the whole window.
		before.padStop = max(before.padStop, end-before.clip.End())
		after.padStart = max(after.padStart, after.clip.TimelineStart-start)
		if after.z < before.z {
			after.z, before.z = before.z, after.z
		}

		switch tr.Type {
		case timeline.TransitionFade:
			before.fadeOuts = append(before.fadeOuts, [2]time.Duration{start, d / 2})
			after.fadeIns = append(after.fadeIns, [2]time.Duration{start + d/2, d - d/2})
		case timeline.TransitionFadeToBlack:
			out := d * 4 / 10
			before.fadeOuts = append(before.fadeOuts, [2]time.Duration{start, out})
			after.fadeIns = append(after.fadeIns, [2]time.Duration{end - out, out})
		default:
			// The incoming clip fades in over an opaque outgoing clip.
			after.fadeIns = append(after.fadeIns, [2]time.Duration{start, d})
		}
	}
	return placements
}

// geometrySegments resolves the job at every span between clip edges and
// transition window edges, and records where each clip is drawn and with
// which geometry. Geometry comes from compositor.Resolve so the export
// places clips exactly as the preview does.
func geometrySegments(job render.Job, total time.Duration) map[int][]segment {
	snap := jobSnapshot(job)

	cuts := []time.Duration{0, total}
	for _, c := range snap.Clips {
		cuts = append(cuts, c.StartTime, c.End())
	}
	for _, tr := range snap.Transitions {
		if before, ok := snap.Clip(tr.ClipIDBefore); ok {
			start, end := tr.Window(before)
			cuts = append(cuts, start, end)
		}
	}
	cuts = slices.DeleteFunc(cuts, func(t time.Duration) bool { return t < 0 || t > total })
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)

	out := make(map[int][]segment)
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		frame := compositor.Resolve(snap, from+(to-from)/2)
		for _, l := range frame.Layers {
			segs := out[l.Clip.ID]
			if n := len(segs); n > 0 && segs[n-1].to == from && segs[n-1].geometry == l.Geometry {
				segs[n-1].to = to
			} else {
				segs = append(segs, segment{from: from, to: to, geometry: l.Geometry})
			}
			out[l.Clip.ID] = segs
		}
	}
	return out
}

// jobSnapshot rebuilds the timeline a job was made from, as far as the
// compositor needs it.
func jobSnapshot(job render.Job) timeline.Snapshot {
	var snap timeline.Snapshot
	for _, c := range job.Clips {
		snap.Clips = append(snap.Clips, timeline.Clip{
			ID:        c.ID,
			Track:     c.Track,
			StartTime: c.TimelineStart,
			InPoint:   c.InPoint,
			OutPoint:  c.OutPoint,
			Duration:  c.Duration(),
			Volume:    c.Volume,
			Muted:     c.Muted,
			FadeIn:    c.FadeIn,
			FadeOut:   c.FadeOut,
		})
	}
	for i, tr := range job.Transitions {
		snap.Transitions = append(snap.Transitions, timeline.Transition{
			ID:           i + 1,
			ClipIDBefore: tr.ClipIDBefore,
			ClipIDAfter:  tr.ClipIDAfter,
			Type:         tr.Type,
			Duration:     tr.Duration,
		})
	}
	return snap
}

// drawText renders one overlay as a drawtext filter.
func drawText(o render.TextSpec, fonts *overlays.FontRegistry) string {
	start := o.Start
	end := o.Start + o.Duration
	period := min(overlays.AnimationPeriod, o.Duration/2)
	s := util.FormatSeconds(start)
	e := util.FormatSeconds(end)
	p := util.FormatSeconds(period)

	// progress of the entrance animation, 0 to 1
	in := "1"
	if period > 0 {
		in = fmt.Sprintf("min((t-%s)/%s,1)", s, p)
	}

	dx, dy := "0", "0"
	alpha := ""
	dist := strconv.FormatFloat(overlays.SlideDistance, 'f', -1, 64)
	switch o.Animation {
	case timeline.AnimationFadeIn:
		alpha = in
	case timeline.AnimationFadeOut:
		if period > 0 {
			alpha = fmt.Sprintf("min((%s-t)/%s,1)", e, p)
		}
	case timeline.AnimationSlideInLeft:
		dx = fmt.Sprintf("-%s*(1-%s)", dist, in)
	case timeline.AnimationSlideInRight:
		dx = fmt.Sprintf("%s*(1-%s)", dist, in)
	case timeline.AnimationSlideInTop:
		dy = fmt.Sprintf("-%s*(1-%s)", dist, in)
	case timeline.AnimationSlideInBottom:
		dy = fmt.Sprintf("%s*(1-%s)", dist, in)
	}

	x := strconv.FormatFloat(o.X, 'f', -1, 64)
	y := strconv.FormatFloat(o.Y, 'f', -1, 64)

	size := o.FontSize
	if size <= 0 {
		size = 48
	}

	opts := []string{
		"text=" + filterValue(o.Text),
		"expansion=none",
	}
	if path, ok := fonts.Lookup(o.FontFamily); ok {
		opts = append(opts, "fontfile="+filterValue(path))
	} else if o.FontFamily != "" {
		opts = append(opts, "font="+filterValue(o.FontFamily))
	}
	opts = append(opts,
		"fontsize="+strconv.Itoa(size),
		"fontcolor="+overlays.FFmpegColor(o.Color, 1),
		fmt.Sprintf("x='(w*(%s+(%s))/100)-text_w/2'", x, dx),
		fmt.Sprintf("y='h*(%s+(%s))/100'", y, dy),
	)
	if o.BackgroundOpacity > 0 {
		opts = append(opts,
			"box=1",
			"boxcolor="+overlays.FFmpegColor(o.BackgroundColor, o.BackgroundOpacity),
			"boxborderw=8",
		)
	}
	if alpha != "" {
		opts = append(opts, fmt.Sprintf("alpha='%s'", alpha))
	}
	opts = append(opts, fmt.Sprintf("enable='between(t,%s,%s)'", s, e))
	return "drawtext=" + strings.Join(opts, ":")
}
