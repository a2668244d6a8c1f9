package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/internal/transcribe"
)

var transcribeOpts struct {
	out      string
	captions bool
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe the speech on the timeline",
	Long: "Mixes the timeline's audio, sends it to the configured speech-to-text endpoint and prints " +
		"the transcript with timeline positions. --captions adds each line as a text overlay.",
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
		if len(view.Snapshot.Clips) == 0 {
			return pipeline.ErrNoClips
		}

		exec, err := ws.executor()
		if err != nil {
			return err
		}
		svc := transcribe.New(exec,
			transcribe.NewWhisperClient(ws.cfg.Transcription, ws.logger),
			ws.cfg.Export.TempDir, ws.logger)

		job := pipeline.BuildJob("transcribe", view.Snapshot, pipeline.Settings{})
		tr, err := svc.Transcribe(cmd.Context(), job)
		if err != nil {
			return err
		}

		fmt.Print(tr.Timed())
		if transcribeOpts.out != "" {
			if err := os.WriteFile(transcribeOpts.out, []byte(tr.Text()+"\n"), 0644); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			fmt.Printf("transcript saved to %s\n", transcribeOpts.out)
		}
		if transcribeOpts.captions {
			n, err := ws.editAll(cmd.Context(), captionCommands(tr))
			if err != nil {
				return err
			}
			fmt.Printf("added %d captions\n", n)
		}
		return nil
	},
}

// captionCommands turns each segment into a text overlay at its position.
func captionCommands(tr transcribe.Transcript) []editor.Command {
	cmds := make([]editor.Command, 0, len(tr.Segments))
	for _, s := range tr.Segments {
		cmds = append(cmds, editor.AddTextOverlay{Spec: timeline.TextOverlaySpec{
			Text:      s.Text,
			StartTime: s.Start,
			Duration:  s.Duration,
		}})
	}
	return cmds
}

// editAll applies commands in order and saves once. It returns how many
// changed the timeline.
func (w *workspace) editAll(ctx context.Context, cmds []editor.Command) (int, error) {
	s, err := w.session(ctx, editor.Options{})
	if err != nil {
		return 0, err
	}
	changed := 0
	var last editor.View
	for _, c := range cmds {
		res := s.Apply(c)
		if res.Changed {
			changed++
			last = res.View
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := w.store.SaveTimeline(ctx, w.project.ID, last.Snapshot, last.Playhead); err != nil {
		return changed, fmt.Errorf("save project %q: %w", w.project.Name, err)
	}
	return changed, nil
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeOpts.out, "out", "o", "", "also save the plain transcript to this file")
	transcribeCmd.Flags().BoolVar(&transcribeOpts.captions, "captions", false, "add each transcript line as a text overlay")
}
