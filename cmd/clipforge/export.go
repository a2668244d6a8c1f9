package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/render"
)

var exportOpts struct {
	resolution string
	fps        int
	crf        int
}

var exportCmd = &cobra.Command{
	Use:   "export [output.mp4]",
	Short: "Render the project timeline to an MP4 file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		settings, err := pipeline.SettingsFromConfig(ws.cfg, args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("resolution") {
			if settings.Resolution, err = render.ParseResolution(exportOpts.resolution); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("fps") {
			settings.FPS = exportOpts.fps
		}
		if cmd.Flags().Changed("crf") {
			settings.CRF = exportOpts.crf
		}

		exec, err := ws.executor()
		if err != nil {
			return err
		}
		view, err := ws.view(cmd.Context())
		if err != nil {
			return err
		}

		backend := ffmpeg.NewBackend(exec, ws.fonts(), ws.logger)
		exporter := pipeline.New(ws.logger, backend, pipeline.Options{DismissAfter: ws.cfg.Export.DismissAfter})

		if _, err := exporter.Start(cmd.Context(), view.Snapshot, settings); err != nil {
			var verr *pipeline.ValidationError
			if errors.As(err, &verr) {
				for _, p := range verr.Problems {
					fmt.Fprintln(os.Stderr, "  "+p.String())
				}
			}
			return err
		}

		// Ctrl-C cancels the render; polling continues until the job settles.
		sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			if cmd.Context().Err() == nil {
				exporter.Cancel()
			}
		}()

		bar := progressbar.NewOptions(100,
			progressbar.OptionSetDescription("Exporting"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetRenderBlankState(true),
		)

		final, err := pipeline.Poll(context.WithoutCancel(cmd.Context()), ws.logger, ws.cfg.Export.PollInterval,
			exporter.Fetch, func(st pipeline.Status) {
				bar.Describe(st.Progress.Operation)
				_ = bar.Set(int(st.Progress.Percentage))
			})
		if err != nil {
			return err
		}
		if !final.Succeeded() {
			_ = bar.Exit()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("export failed: %s", final.Error)
		}
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
		fmt.Printf("exported %s\n", final.OutputPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOpts.resolution, "resolution", "", "source, 720p or 1080p (default from config)")
	exportCmd.Flags().IntVar(&exportOpts.fps, "fps", 0, "output frame rate (default from config)")
	exportCmd.Flags().IntVar(&exportOpts.crf, "crf", 0, "x264 quality, lower is better (default from config)")
}
