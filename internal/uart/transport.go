package uart

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/lanectl/internal/protocol/frame"
)

// Prepare discards stale RX and TX data left in the adapter after opening.
func Prepare(p Port) error {
	if err := p.ResetInputBuffer(); err != nil {
		return fmt.Errorf("%w: input: %v", ErrPurgeFailure, err)
	}
	if err := p.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("%w: output: %v", ErrPurgeFailure, err)
	}
	return nil
}

// Send purges unread RX data, then writes f cfg.Repeat times with cfg.Gap
// between writes and reports how many writes completed. No acknowledgement
// is read. The first failing write aborts the burst; the caller owns
// teardown of p.
func Send(ctx context.Context, p Port, f frame.Frame, cfg TransportConfig) (int, error) {
	cfg = cfg.WithDefaults()
	if err := p.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("%w: input: %v", ErrPurgeFailure, err)
	}
	for i := 0; i < cfg.Repeat; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, cfg.Gap); err != nil {
				return i, err
			}
		}
		if err := writeWithTimeout(ctx, p, f, cfg.WriteTimeout); err != nil {
			return i, fmt.Errorf("write %d/%d: %w", i+1, cfg.Repeat, err)
		}
	}
	return cfg.Repeat, nil
}

// writeWithTimeout bounds a blocking write. On timeout the write goroutine
// stays parked until the port is closed, which the caller does on error.
func writeWithTimeout(ctx context.Context, p Port, f frame.Frame, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- frame.WriteFrame(p, f)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWriteFailure, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: after %s", ErrWriteTimeout, timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrWriteFailure, ctx.Err())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrWriteFailure, ctx.Err())
	case <-timer.C:
		return nil
	}
}
