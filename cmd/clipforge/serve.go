package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kikiluvv/clipforge/internal/api"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/ffmpeg"
	"github.com/kikiluvv/clipforge/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project over a local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		startTime := time.Now()

		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()

		exec, err := ws.executor()
		if err != nil {
			return err
		}

		// The session outlives the autosaver so the final flush can still
		// read from it.
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

		backend := ffmpeg.NewBackend(exec, ws.fonts(), ws.logger)
		exporter := pipeline.New(ws.logger, backend, pipeline.Options{DismissAfter: ws.cfg.Export.DismissAfter})

		port := ws.cfg.API.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		apiServer := api.NewServer(api.ServerConfig{
			Port:      port,
			Session:   session,
			Exporter:  exporter,
			Media:     ws.store,
			Config:    ws.cfg,
			Logger:    ws.logger,
			StartTime: startTime,
		})

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- apiServer.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			ws.logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case err := <-serverErr:
			if err != nil {
				ws.logger.Error().Err(err).Msg("HTTP server error")
			}
		case <-cmd.Context().Done():
		}

		ws.logger.Info().Msg("initiating graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			ws.logger.Error().Err(err).Msg("failed to shutdown HTTP server")
		}
		if exporter.Cancel() {
			_, _ = exporter.Wait(shutdownCtx)
		}

		stopSaving()
		<-saveDone
		stopSession()
		<-sessionDone

		ws.logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port on 127.0.0.1 (default from config)")
}
