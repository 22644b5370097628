package flowline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/vk/flowline/internal/ctxlog"
	"github.com/vk/flowline/poller"
)

// WorkSource is the dispatch side of a poller: one call waits for one ready
// callback, runs it, and returns its error. *poller.Epoll implements it.
type WorkSource interface {
	Work(ctx context.Context) error
}

// Drive runs the given number of workers against the poller until ctx is
// cancelled or the poller is closed. It applies the default error policy:
// module failures are logged and the pipeline keeps going, a module leaving
// through ErrStopModule is recorded at info level. Callers that want a
// different policy run their own loops over Work.
func Drive(ctx context.Context, w WorkSource, workers int) error {
	logger := ctxlog.FromContext(ctx)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				err := w.Work(ctx)
				switch {
				case err == nil:
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					return nil
				case errors.Is(err, poller.ErrClosed):
					return nil
				case errors.Is(err, ErrStopModule):
					logger.Info("module left the pipeline", "cause", err)
				default:
					logger.Warn("module execution failed", "error", err)
				}
			}
		})
	}
	return g.Wait()
}
