// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Poller waits for a guest init to reach the running state.
type Poller struct {
	// Attempts is the maximum number of state queries.
	Attempts int

	// Interval is the fixed delay between two queries.
	Interval time.Duration
}

// Wait polls the querier until it reports running, reports a definitive
// failure, the attempt bound is exhausted or the context is done.
//
// A querier error counts as "management interface not yet responsive" and
// is retried against the bound. A degraded state fails immediately, since
// init finished starting and will not recover on its own.
func (p *Poller) Wait(ctx context.Context, querier Querier) error {
	var lastErr error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		state, err := querier.SystemState(ctx)

		switch {
		case err != nil:
			lastErr = err

			slog.Debug("Init state query not answered",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		case state == StateRunning:
			return nil
		case state == StateDegraded:
			return ErrDegraded
		default:
			lastErr = nil

			slog.Debug("Init still starting",
				slog.Int("attempt", attempt),
				slog.String("state", string(state)))
		}

		// No point sleeping after the final attempt.
		if attempt == p.Attempts {
			break
		}

		err = sleep(ctx, p.Interval)
		if err != nil {
			return err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, lastErr)
	}

	return ErrNotReady
}

// sleep blocks for the given duration unless the context ends first.
func sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
