// Package gui is a small fyne editor window over the engine: preview,
// transport, clip list, split/undo/redo, media import and export.
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/config"
	"github.com/kikiluvv/clipforge/internal/editor"
	"github.com/kikiluvv/clipforge/internal/logging"
	"github.com/kikiluvv/clipforge/internal/pipeline"
	"github.com/kikiluvv/clipforge/internal/playback"
	"github.com/kikiluvv/clipforge/internal/preview"
	"github.com/kikiluvv/clipforge/internal/project"
	"github.com/kikiluvv/clipforge/internal/timeline"
	"github.com/kikiluvv/clipforge/pkg/util"
)

// Deps are the engine pieces the window drives.
type Deps struct {
	Session  *editor.Session
	Exporter *pipeline.Exporter
	Preview  *preview.Renderer
	Store    *project.Store
	Prober   project.Prober
	Config   *config.Config
	Logger   zerolog.Logger
}

type window struct {
	deps   Deps
	ctx    context.Context
	logger zerolog.Logger
	clock  *playback.Clock
	w      fyne.Window

	// UI state, touched only on the fyne goroutine.
	view      editor.View
	syncing   bool
	frame     *canvas.Image
	slider    *widget.Slider
	timeLabel *widget.Label
	playBtn   *widget.Button
	undoBtn   *widget.Button
	redoBtn   *widget.Button
	clipList  *widget.List
	status    *widget.Label
	progress  *widget.ProgressBar

	mu      sync.Mutex
	pending time.Duration
	wake    chan struct{}
}

// Run opens the editor window and blocks until it is closed.
func Run(ctx context.Context, deps Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view, err := deps.Session.Snapshot(ctx)
	if err != nil {
		return err
	}

	a := app.NewWithID("clipforge")
	e := &window{
		deps:   deps,
		ctx:    ctx,
		logger: logging.Component(deps.Logger, "gui"),
		w:      a.NewWindow("clipforge"),
		view:   view,
		wake:   make(chan struct{}, 1),
	}
	e.clock = playback.New(playback.Options{
		FrameRate: deps.Config.Playback.FrameRate,
		OnUpdate:  e.onClockUpdate,
		OnEnd: func() {
			fyne.Do(func() { e.playBtn.SetIcon(theme.MediaPlayIcon()) })
		},
	})

	e.w.Resize(fyne.NewSize(960, 640))
	e.w.SetContent(e.build())
	e.w.Canvas().SetOnTypedKey(e.onKey)
	e.w.SetOnClosed(cancel)

	go e.clock.Run(ctx)
	go e.renderLoop(ctx)

	e.refresh(view)
	e.w.ShowAndRun()
	return nil
}

func (e *window) build() fyne.CanvasObject {
	pw, ph := e.deps.Preview.Size()
	e.frame = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, pw, ph)))
	e.frame.FillMode = canvas.ImageFillContain
	e.frame.SetMinSize(fyne.NewSize(float32(pw), float32(ph)))

	e.timeLabel = widget.NewLabel(clockText(0, 0))
	e.slider = widget.NewSlider(0, 1)
	e.slider.Step = 0.01
	e.slider.OnChanged = func(val float64) {
		if e.syncing {
			return
		}
		e.seek(util.FromSeconds(val))
	}

	e.playBtn = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), e.togglePlay)
	stopBtn := widget.NewButtonWithIcon("", theme.MediaStopIcon(), func() {
		e.clock.Stop()
		e.playBtn.SetIcon(theme.MediaPlayIcon())
	})
	splitBtn := widget.NewButtonWithIcon("Split", theme.ContentCutIcon(), e.split)
	e.undoBtn = widget.NewButtonWithIcon("Undo", theme.ContentUndoIcon(), func() { e.do(editor.Undo{}) })
	e.redoBtn = widget.NewButtonWithIcon("Redo", theme.ContentRedoIcon(), func() { e.do(editor.Redo{}) })
	deleteBtn := widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), e.deleteSelected)
	importBtn := widget.NewButtonWithIcon("Import", theme.FolderOpenIcon(), e.importMedia)
	exportBtn := widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), e.export)

	e.clipList = widget.NewList(
		func() int { return len(e.view.Snapshot.Clips) },
		func() fyne.CanvasObject { return widget.NewLabel("clip") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			clips := e.view.Snapshot.ClipsByStart()
			if id < len(clips) {
				obj.(*widget.Label).SetText(clipLabel(clips[id]))
			}
		},
	)
	e.clipList.OnSelected = func(id widget.ListItemID) {
		clips := e.view.Snapshot.ClipsByStart()
		if id < len(clips) && clips[id].ID != e.view.Selected {
			e.do(editor.Select{ID: clips[id].ID})
		}
	}

	e.status = widget.NewLabel("Ready")
	e.progress = widget.NewProgressBar()

	transport := container.NewHBox(e.playBtn, stopBtn, e.timeLabel)
	tools := container.NewHBox(splitBtn, deleteBtn, e.undoBtn, e.redoBtn, importBtn, exportBtn)
	top := container.NewBorder(nil, container.NewVBox(e.slider, transport, tools), nil, nil, e.frame)
	bottom := container.NewVBox(e.progress, e.status)

	return container.NewBorder(nil, bottom, nil, nil, container.NewVSplit(top, e.clipList))
}

// do applies cmd and refreshes the window. Call on the fyne goroutine.
func (e *window) do(cmd editor.Command) {
	res, err := e.deps.Session.Do(e.ctx, cmd)
	if err != nil {
		e.logger.Error().Err(err).Msg("editor command failed")
		return
	}
	e.refresh(res.View)
}

func (e *window) refresh(v editor.View) {
	e.view = v
	total := playback.TimelineDuration(v.Snapshot)
	e.clock.SetTotal(total)

	e.syncing = true
	e.slider.Max = max(util.Seconds(total), 1)
	e.slider.SetValue(util.Seconds(v.Playhead))
	e.slider.Refresh()
	e.syncing = false

	e.timeLabel.SetText(clockText(v.Playhead, total))
	setEnabled(e.undoBtn, v.CanUndo)
	setEnabled(e.redoBtn, v.CanRedo)
	e.clipList.Refresh()
	e.requestFrame(v.Playhead)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (e *window) togglePlay() {
	if e.clock.Playing() {
		e.clock.Pause()
		e.playBtn.SetIcon(theme.MediaPlayIcon())
		return
	}
	e.clock.Start(e.view.Playhead, playback.TimelineDuration(e.view.Snapshot))
	e.playBtn.SetIcon(theme.MediaPauseIcon())
}

func (e *window) seek(t time.Duration) {
	e.clock.Seek(t)
	e.do(editor.SetPlayhead{At: t})
}

// onClockUpdate runs on the clock goroutine, or on the fyne goroutine for
// Stop.
func (e *window) onClockUpdate(t time.Duration) {
	res, err := e.deps.Session.Do(e.ctx, editor.SetPlayhead{At: t})
	if err != nil {
		return
	}
	fyne.Do(func() { e.refresh(res.View) })
}

func (e *window) split() {
	id, ok := splitTarget(e.view)
	if !ok {
		e.status.SetText("No clip under the playhead")
		return
	}
	e.do(editor.SplitClip{ID: id, At: e.view.Playhead})
}

func (e *window) deleteSelected() {
	if e.view.Selected == 0 {
		return
	}
	e.do(editor.RemoveClip{ID: e.view.Selected})
}

func (e *window) onKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeySpace:
		e.togglePlay()
	case fyne.KeyS:
		e.split()
	case fyne.KeyDelete, fyne.KeyBackspace:
		e.deleteSelected()
	case fyne.KeyLeft:
		e.seek(max(e.view.Playhead-time.Second, 0))
	case fyne.KeyRight:
		e.seek(e.view.Playhead + time.Second)
	}
}

func (e *window) importMedia() {
	fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.w)
			return
		}
		if ur == nil {
			return
		}
		path := ur.URI().Path()
		ur.Close()

		e.status.SetText("Importing " + path)
		go func() {
			asset, err := e.deps.Store.Import(e.ctx, e.deps.Prober, path)
			fyne.Do(func() {
				if err != nil {
					e.status.SetText("Import failed")
					dialog.ShowError(err, e.w)
					return
				}
				e.do(editor.AddClip{Spec: timeline.ClipSpec{
					MediaID:   asset.ID,
					StartTime: e.view.Snapshot.TrackEnd(0),
					Duration:  asset.Duration,
					Metadata:  asset.Metadata(),
				}})
				e.status.SetText("Imported " + asset.Filename)
			})
		}()
	}, e.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".mp4", ".mov", ".mkv", ".webm"}))
	fd.Show()
}

func (e *window) export() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, e.w)
			return
		}
		if uc == nil {
			return
		}
		path := uc.URI().Path()
		uc.Close()
		e.startExport(path)
	}, e.w)
	fd.SetFileName("export.mp4")
	fd.Show()
}

func (e *window) startExport(path string) {
	settings, err := pipeline.SettingsFromConfig(e.deps.Config, path)
	if err != nil {
		dialog.ShowError(err, e.w)
		return
	}
	_, err = e.deps.Exporter.Start(e.ctx, e.view.Snapshot, settings)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			dialog.ShowError(fmt.Errorf("cannot export:\n%s", verr.Error()), e.w)
			return
		}
		dialog.ShowError(err, e.w)
		return
	}

	e.progress.SetValue(0)
	go func() {
		final, err := pipeline.Poll(e.ctx, e.logger, e.deps.Config.Export.PollInterval, e.deps.Exporter.Fetch, func(s pipeline.Status) {
			fyne.Do(func() {
				e.progress.SetValue(s.Progress.Percentage / 100)
				e.status.SetText(exportStatusText(s))
			})
		})
		if err != nil {
			return
		}
		fyne.Do(func() {
			if final.Succeeded() {
				dialog.ShowInformation("Export complete", "Saved to "+final.OutputPath, e.w)
			} else {
				dialog.ShowError(errors.New(final.Error), e.w)
			}
		})
	}()
}

// requestFrame asks the render loop for the frame at t, replacing any
// request it has not started yet.
func (e *window) requestFrame(t time.Duration) {
	e.mu.Lock()
	e.pending = t
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *window) renderLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		}

		e.mu.Lock()
		t := e.pending
		e.mu.Unlock()

		view, err := e.deps.Session.Snapshot(ctx)
		if err != nil {
			return
		}
		img, err := e.deps.Preview.Render(ctx, view.Snapshot, t)
		if err != nil {
			if ctx.Err() == nil {
				e.logger.Warn().Err(err).Msg("preview render failed")
			}
			continue
		}
		fyne.Do(func() {
			e.frame.Image = img
			e.frame.Refresh()
		})
	}
}
