package notification

import (
	"context"
	"time"
)

// RunJanitor deletes expired notifications on a fixed interval until ctx is
// cancelled. Intended to run in its own goroutine from main.
func (d *Dispatcher) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.repo.DeleteExpired(ctx, d.clock())
			if err != nil {
				d.log.Error().Err(err).Msg("expired notification sweep failed")
				continue
			}
			if n > 0 {
				d.log.Debug().Int64("deleted", n).Msg("expired notifications removed")
			}
		}
	}
}
