package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval matches how often the editor refreshes export progress.
const DefaultPollInterval = 500 * time.Millisecond

// StatusFunc fetches the exporter status, possibly over the network.
type StatusFunc func(ctx context.Context) (Status, error)

// Poll calls fetch every interval and hands each status to onUpdate until
// the job reports Done or ctx is cancelled. Fetch errors are logged and
// retried on the next tick.
func Poll(ctx context.Context, logger zerolog.Logger, interval time.Duration, fetch StatusFunc, onUpdate func(Status)) (Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last Status
	for {
		st, err := fetch(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to poll export progress")
		} else {
			last = st
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.Done {
				return st, nil
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
