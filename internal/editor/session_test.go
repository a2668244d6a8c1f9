package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/clipforge/internal/timeline"
)

func newSession(t *testing.T) (*Session, context.CancelFunc) {
	t.Helper()
	s := New(zerolog.Nop(), Options{HistoryLimit: 50})
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(cancel)
	return s, cancel
}

func TestAddThenSplitThroughSession(t *testing.T) {
	s := New(zerolog.Nop(), Options{})

	res := s.Apply(AddClip{Spec: timeline.ClipSpec{MediaID: 7, Duration: 10 * time.Second}})
	if !res.Changed || res.ID != 1 {
		t.Fatalf("unexpected add result %+v", res)
	}

	res = s.Apply(SplitClip{ID: 1, At: 4 * time.Second})
	if !res.Changed || res.ID != 3 {
		t.Fatalf("unexpected split result %+v", res)
	}
	if res.View.Selected != 3 {
		t.Errorf("expected clip 3 selected, got %d", res.View.Selected)
	}
	if n := len(res.View.Snapshot.Clips); n != 2 {
		t.Errorf("expected 2 clips, got %d", n)
	}
}

func TestRejectedEditDoesNotRecordHistory(t *testing.T) {
	s := New(zerolog.Nop(), Options{})
	s.Apply(AddClip{Spec: timeline.ClipSpec{Duration: time.Second}})

	res := s.Apply(TrimLeft{ID: 1, Delta: 990 * time.Millisecond})
	if res.Changed {
		t.Fatal("trim below minimum should be rejected")
	}
	s.Apply(Undo{})
	if res := s.Apply(Undo{}); res.Changed {
		t.Error("rejected trim must not leave an undo step")
	}
}

func TestUndoKeepsPlaybackAndPlayhead(t *testing.T) {
	s := New(zerolog.Nop(), Options{})
	s.Apply(AddClip{Spec: timeline.ClipSpec{Duration: 5 * time.Second}})
	s.Apply(AddClip{Spec: timeline.ClipSpec{StartTime: 5 * time.Second, Duration: 5 * time.Second}})
	s.Apply(Select{ID: 1})
	s.Apply(SetPlayhead{At: 3 * time.Second})
	s.Apply(SetPlaying{Playing: true})

	res := s.Apply(Undo{})
	if !res.Changed {
		t.Fatal("undo failed")
	}
	if res.View.Playhead != 3*time.Second || !res.View.Playing {
		t.Errorf("undo changed playback state: %+v", res.View)
	}
	if res.View.Selected != 1 {
		t.Errorf("expected selection kept, got %d", res.View.Selected)
	}
	if !res.View.CanRedo {
		t.Error("expected redo available")
	}
}

func TestRestoreClearsHistory(t *testing.T) {
	s := New(zerolog.Nop(), Options{})
	s.Apply(AddClip{Spec: timeline.ClipSpec{Duration: 5 * time.Second}})

	other := timeline.New()
	other.AddClip(timeline.ClipSpec{Duration: time.Second})
	other.AddClip(timeline.ClipSpec{Duration: time.Second})

	res := s.Apply(Restore{Snapshot: other.Snapshot(), Playhead: time.Second})
	if res.View.CanUndo || len(res.View.Snapshot.Clips) != 2 || res.View.Playhead != time.Second {
		t.Errorf("unexpected view after restore %+v", res.View)
	}
	if res.View.Playing {
		t.Error("restore must pause playback")
	}
}

func TestConcurrentCommandsAreSerialized(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Do(ctx, AddClip{Spec: timeline.ClipSpec{
				StartTime: time.Duration(i) * time.Second,
				Duration:  time.Second,
			}})
			if err != nil {
				t.Errorf("Do failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	view, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Snapshot.Clips) != n {
		t.Fatalf("expected %d clips, got %d", n, len(view.Snapshot.Clips))
	}
	seen := map[int]bool{}
	for _, c := range view.Snapshot.Clips {
		if seen[c.ID] {
			t.Fatalf("duplicate id %d", c.ID)
		}
		seen[c.ID] = true
	}
	if view.Snapshot.NextClipID != n+1 {
		t.Errorf("expected next id %d, got %d", n+1, view.Snapshot.NextClipID)
	}
}

func TestSnapshotIsCopyOnRead(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	s.Do(ctx, AddClip{Spec: timeline.ClipSpec{Duration: 2 * time.Second}})

	view, _ := s.Snapshot(ctx)
	s.Do(ctx, RemoveClip{ID: 1})

	if len(view.Snapshot.Clips) != 1 {
		t.Error("earlier snapshot changed by later edit")
	}
}

func TestDoAfterCloseReturnsErrClosed(t *testing.T) {
	s, cancel := newSession(t)
	cancel()
	<-s.done

	_, err := s.Do(context.Background(), Query{})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOnChangeFiresOnlyForChanges(t *testing.T) {
	var calls int
	s := New(zerolog.Nop(), Options{OnChange: func(View) { calls++ }})
	s.Apply(AddClip{Spec: timeline.ClipSpec{Duration: time.Second}})
	s.Apply(RemoveClip{ID: 42})
	s.Apply(Query{})
	if calls != 1 {
		t.Errorf("expected 1 change notification, got %d", calls)
	}
}
