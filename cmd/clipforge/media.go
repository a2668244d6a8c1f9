package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

var (
	importAdd   bool
	importTrack int
)

var importCmd = &cobra.Command{
	Use:   "import [media files...]",
	Short: "Probe media files and add them to the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		exec, err := ws.executor()
		if err != nil {
			return err
		}

		for _, path := range args {
			asset, err := ws.store.Import(cmd.Context(), exec, path)
			if err != nil {
				return err
			}
			fmt.Printf("#%d  %s  %s  %dx%d\n", asset.ID, asset.Filename, util.FormatClock(asset.Duration), asset.Width, asset.Height)

			if !importAdd {
				continue
			}
			view, err := ws.view(cmd.Context())
			if err != nil {
				return err
			}
			res, err := ws.edit(cmd.Context(), editor.AddClip{Spec: timeline.ClipSpec{
				MediaID:   asset.ID,
				Track:     importTrack,
				StartTime: view.Snapshot.TrackEnd(importTrack),
				Duration:  asset.Duration,
				Metadata:  asset.Metadata(),
			}})
			if err != nil {
				return err
			}
			if !res.Changed {
				return fmt.Errorf("could not place %s on the timeline", asset.Filename)
			}
			log.Info().Int("clip_id", res.ID).Int("media_id", asset.ID).Msg("clip appended")
		}
		return nil
	},
}

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Media library commands",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported media",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		assets, err := ws.store.ListMedia(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILE\tDURATION\tSIZE\tFPS\tAUDIO\tPATH")
		for _, a := range assets {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%.2f\t%v\t%s\n",
				a.ID, a.Filename, util.FormatClock(a.Duration), a.Width, a.Height, a.FPS, a.HasAudio, a.Path)
		}
		return tw.Flush()
	},
}

var mediaRemoveCmd = &cobra.Command{
	Use:   "remove [media id]",
	Short: "Remove media from the library; clips already placed keep working",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		return ws.store.DeleteMedia(cmd.Context(), id)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importAdd, "add", false, "also append each file to the timeline")
	importCmd.Flags().IntVar(&importTrack, "track", 0, "track to append to with --add")

	mediaCmd.AddCommand(mediaListCmd)
	mediaCmd.AddCommand(mediaRemoveCmd)
}
