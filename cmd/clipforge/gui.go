package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/gui"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/preview"
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the editor window",
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

		sessionCtx, stopSession := context.WithCancel(cmd.Context())
		defer stopSession()

		session, err := ws.session(sessionCtx, editor.Options{})
		if err != nil {
			return err
		}
		initial := session.Apply(editor.Query{}).View
		sessionDone := make(chan struct{})
		go func() {
			defer close(sessionDone)
			_ = session.Run(sessionCtx)
		}()

		saveCtx, stopSaving := context.WithCancel(cmd.Context())
		saveDone := make(chan struct{})
		go func() {
			defer close(saveDone)
			_ = ws.autosaver(session, initial).Run(saveCtx)
		}()

		fonts := ws.fonts()
		exporter := pipeline.New(ws.logger, ffmpeg.NewBackend(exec, fonts, ws.logger),
			pipeline.Options{DismissAfter: ws.cfg.Export.DismissAfter})

		err = gui.Run(cmd.Context(), gui.Deps{
			Session:  session,
			Exporter: exporter,
			Preview:  preview.New(exec, fonts, ws.cfg.Preview.Width, ws.cfg.Preview.Height, ws.logger),
			Store:    ws.store,
			Prober:   exec,
			Config:   ws.cfg,
			Logger:   ws.logger,
		})

		if exporter.Cancel() {
			_, _ = exporter.Wait(context.Background())
		}
		stopSaving()
		<-saveDone
		stopSession()
		<-sessionDone
		return err
	},
}
