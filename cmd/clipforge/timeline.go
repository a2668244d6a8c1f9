package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Timeline editing commands",
}

var showJSON bool

var timelineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the project timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		view, err := ws.view(cmd.Context())
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(timeline.NewDocument(view.Snapshot, view.Playhead))
		}
		printTimeline(view)
		return nil
	},
}

var addOpts struct {
	track   int
	start   float64
	in      float64
	out     float64
	volume  int
	muted   bool
	fadeIn  float64
	fadeOut float64
}

var timelineAddCmd = &cobra.Command{
	Use:   "add [media id]",
	Short: "Place an imported media file on the timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		asset, err := ws.store.Lookup(cmd.Context(), mediaID)
		if err != nil {
			return err
		}
		view, err := ws.view(cmd.Context())
		if err != nil {
			return err
		}

		spec := clipSpecFromFlags(cmd, asset, view.Snapshot)
		res, err := ws.edit(cmd.Context(), editor.AddClip{Spec: spec})
		if err != nil {
			return err
		}
		if !res.Changed {
			return fmt.Errorf("clip rejected: in %s, out %s is not a valid range of %s",
				util.FormatSeconds(spec.InPoint), util.FormatSeconds(spec.OutPoint), asset.Filename)
		}
		fmt.Printf("added clip #%d\n", res.ID)
		return nil
	},
}

func clipSpecFromFlags(cmd *cobra.Command, asset project.Asset, snap timeline.Snapshot) timeline.ClipSpec {
	spec := timeline.ClipSpec{
		MediaID:  asset.ID,
		Track:    addOpts.track,
		InPoint:  util.FromSeconds(addOpts.in),
		OutPoint: util.FromSeconds(addOpts.out),
		Muted:    addOpts.muted,
		FadeIn:   util.FromSeconds(addOpts.fadeIn),
		FadeOut:  util.FromSeconds(addOpts.fadeOut),
		Metadata: asset.Metadata(),
	}
	if cmd.Flags().Changed("start") {
		spec.StartTime = util.FromSeconds(addOpts.start)
	} else {
		spec.StartTime = snap.TrackEnd(addOpts.track)
	}
	if spec.OutPoint == 0 {
		spec.OutPoint = asset.Duration
	}
	spec.Duration = spec.OutPoint - spec.InPoint
	if cmd.Flags().Changed("volume") {
		v := addOpts.volume
		spec.Volume = &v
	}
	return spec
}

var timelineSplitCmd = &cobra.Command{
	Use:   "split [clip id] [time]",
	Short: "Split a clip at a timeline position (seconds or HH:MM:SS.mmm)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		at, err := util.ParseTimestamp(args[1])
		if err != nil {
			return err
		}
		return runEdit(cmd, editor.SplitClip{ID: id, At: at}, "split")
	},
}

var trimOpts struct {
	left  float64
	right float64
}

var timelineTrimCmd = &cobra.Command{
	Use:   "trim [clip id]",
	Short: "Move a clip edge; positive deltas move it right",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		left, right := cmd.Flags().Changed("left"), cmd.Flags().Changed("right")
		if left == right {
			return fmt.Errorf("exactly one of --left or --right is required")
		}
		if left {
			return runEdit(cmd, editor.TrimLeft{ID: id, Delta: util.FromSeconds(trimOpts.left)}, "trim")
		}
		return runEdit(cmd, editor.TrimRight{ID: id, Delta: util.FromSeconds(trimOpts.right)}, "trim")
	},
}

var timelineRemoveCmd = &cobra.Command{
	Use:   "remove [clip id]",
	Short: "Remove a clip and the transitions that use it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return runEdit(cmd, editor.RemoveClip{ID: id}, "remove")
	},
}

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Text overlay commands",
}

var textOpts struct {
	start     float64
	duration  float64
	x         float64
	y         float64
	font      string
	size      int
	color     string
	bg        string
	bgOpacity float64
	animation string
}

var textAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Add a text overlay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := timeline.TextOverlaySpec{
			Text:              args[0],
			StartTime:         util.FromSeconds(textOpts.start),
			Duration:          util.FromSeconds(textOpts.duration),
			FontFamily:        textOpts.font,
			FontSize:          textOpts.size,
			Color:             textOpts.color,
			BackgroundColor:   textOpts.bg,
			BackgroundOpacity: textOpts.bgOpacity,
			Animation:         timeline.Animation(textOpts.animation),
		}
		if cmd.Flags().Changed("x") {
			spec.X = &textOpts.x
		}
		if cmd.Flags().Changed("y") {
			spec.Y = &textOpts.y
		}
		return runEdit(cmd, editor.AddTextOverlay{Spec: spec}, "add text")
	},
}

var textRemoveCmd = &cobra.Command{
	Use:   "remove [overlay id]",
	Short: "Remove a text overlay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return runEdit(cmd, editor.RemoveTextOverlay{ID: id}, "remove text")
	},
}

var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Transition commands",
}

var transitionOpts struct {
	kind     string
	duration float64
}

var transitionAddCmd = &cobra.Command{
	Use:   "add [before clip id] [after clip id]",
	Short: "Add or replace the transition between two clips",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := parseID(args[0])
		if err != nil {
			return err
		}
		after, err := parseID(args[1])
		if err != nil {
			return err
		}
		return runEdit(cmd, editor.AddTransition{Spec: timeline.TransitionSpec{
			ClipIDBefore: before,
			ClipIDAfter:  after,
			Type:         timeline.TransitionType(transitionOpts.kind),
			Duration:     util.FromSeconds(transitionOpts.duration),
		}}, "add transition")
	},
}

var transitionRemoveCmd = &cobra.Command{
	Use:   "remove [transition id]",
	Short: "Remove a transition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return runEdit(cmd, editor.RemoveTransition{ID: id}, "remove transition")
	},
}

// runEdit applies one edit to the project and reports the outcome. Rejected
// edits leave the project untouched and are reported, not failed.
func runEdit(cmd *cobra.Command, c editor.Command, what string) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	res, err := ws.edit(cmd.Context(), c)
	if err != nil {
		return err
	}
	if !res.Changed {
		fmt.Printf("%s: nothing changed\n", what)
		return nil
	}
	if res.ID != 0 {
		fmt.Printf("%s: ok (#%d)\n", what, res.ID)
	} else {
		fmt.Printf("%s: ok\n", what)
	}
	return nil
}

func printTimeline(v editor.View) {
	snap := v.Snapshot
	fmt.Printf("duration %s, playhead %s\n\n", util.FormatClock(snap.TotalDuration()), util.FormatClock(v.Playhead))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIP\tTRACK\tSTART\tEND\tIN\tOUT\tVOL\tFILE")
	for _, c := range snap.ClipsByStart() {
		vol := strconv.Itoa(c.Volume)
		if c.Muted {
			vol = "muted"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Track, secs(c.StartTime), secs(c.End()), secs(c.InPoint), secs(c.OutPoint), vol, c.Metadata.Filename)
	}
	tw.Flush()

	if len(snap.Transitions) > 0 {
		fmt.Println()
		tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TRANSITION\tTYPE\tFROM\tTO\tDURATION")
		for _, tr := range snap.Transitions {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", tr.ID, tr.Type, tr.ClipIDBefore, tr.ClipIDAfter, secs(tr.Duration))
		}
		tw.Flush()
	}

	if len(snap.TextOverlays) > 0 {
		fmt.Println()
		tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TEXT\tSTART\tEND\tPOS\tANIMATION\tCONTENT")
		for _, o := range snap.TextOverlays {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f,%.0f\t%s\t%q\n", o.ID, secs(o.StartTime), secs(o.End()), o.X, o.Y, o.Animation, o.Text)
		}
		tw.Flush()
	}
}

func secs(d time.Duration) string {
	return util.FormatSeconds(d) + "s"
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	timelineShowCmd.Flags().BoolVar(&showJSON, "json", false, "print the timeline document as JSON")

	timelineAddCmd.Flags().IntVar(&addOpts.track, "track", 0, "track index, 0 is the base track")
	timelineAddCmd.Flags().Float64Var(&addOpts.start, "start", 0, "timeline start in seconds (default: end of the track)")
	timelineAddCmd.Flags().Float64Var(&addOpts.in, "in", 0, "source in point in seconds")
	timelineAddCmd.Flags().Float64Var(&addOpts.out, "out", 0, "source out point in seconds (default: end of media)")
	timelineAddCmd.Flags().IntVar(&addOpts.volume, "volume", timeline.DefaultVolume, "volume 0-200")
	timelineAddCmd.Flags().BoolVar(&addOpts.muted, "mute", false, "mute the clip")
	timelineAddCmd.Flags().Float64Var(&addOpts.fadeIn, "fade-in", 0, "audio fade in seconds")
	timelineAddCmd.Flags().Float64Var(&addOpts.fadeOut, "fade-out", 0, "audio fade out seconds")

	timelineTrimCmd.Flags().Float64Var(&trimOpts.left, "left", 0, "move the left edge by this many seconds")
	timelineTrimCmd.Flags().Float64Var(&trimOpts.right, "right", 0, "move the right edge by this many seconds")

	timelineCmd.AddCommand(timelineShowCmd)
	timelineCmd.AddCommand(timelineAddCmd)
	timelineCmd.AddCommand(timelineSplitCmd)
	timelineCmd.AddCommand(timelineTrimCmd)
	timelineCmd.AddCommand(timelineRemoveCmd)

	textAddCmd.Flags().Float64Var(&textOpts.start, "start", 0, "start in seconds")
	textAddCmd.Flags().Float64Var(&textOpts.duration, "duration", 0, "duration in seconds (default 3)")
	textAddCmd.Flags().Float64Var(&textOpts.x, "x", 50, "horizontal centre, percent of width")
	textAddCmd.Flags().Float64Var(&textOpts.y, "y", 80, "top edge, percent of height")
	textAddCmd.Flags().StringVar(&textOpts.font, "font", "", "font family")
	textAddCmd.Flags().IntVar(&textOpts.size, "size", 0, "font size (default 48)")
	textAddCmd.Flags().StringVar(&textOpts.color, "color", "", "text colour as #RRGGBB")
	textAddCmd.Flags().StringVar(&textOpts.bg, "background", "", "background colour as #RRGGBB")
	textAddCmd.Flags().Float64Var(&textOpts.bgOpacity, "background-opacity", 0, "background opacity 0-1")
	textAddCmd.Flags().StringVar(&textOpts.animation, "animation", "", "none, fadeIn, fadeOut, slideInLeft, slideInRight, slideInTop or slideInBottom")

	textCmd.AddCommand(textAddCmd)
	textCmd.AddCommand(textRemoveCmd)

	transitionAddCmd.Flags().StringVar(&transitionOpts.kind, "type", string(timeline.TransitionCrossfade), "fade, crossfade, fadeToBlack, wipeLeft, wipeRight or dissolve")
	transitionAddCmd.Flags().Float64Var(&transitionOpts.duration, "duration", 1, "duration in seconds, clamped to 0.5-3")

	transitionCmd.AddCommand(transitionAddCmd)
	transitionCmd.AddCommand(transitionRemoveCmd)
}
