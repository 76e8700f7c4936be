package session

import (
	"context"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"
)

// ProcessSessions processes the sessions by a pool of
// Config.Session.Workers workers. A failed session is logged and does
// not stop the others; all the failures are returned together.
// onDone (optional) is called after each session, from the workers.
func (p *Processor) ProcessSessions(
	ctx context.Context,
	sessions []Session,
	onDone func(s Session, err error),
) error {
	workers := max(1, min(p.Config.Session.Workers, len(sessions)))
	logger.Debugf(ctx, "processing %d sessions by %d workers", len(sessions), workers)

	jobs := make(chan Session)
	var wg sync.WaitGroup
	var locker sync.Mutex
	var mErr *multierror.Error
	for i := 0; i < workers; i++ {
		wg.Add(1)
		observability.Go(ctx, func() {
			defer wg.Done()
			for s := range jobs {
				err := p.ProcessSession(ctx, s)
				if err != nil {
					logger.Errorf(ctx, "session '%s' failed: %v", s.ID, err)
					locker.Lock()
					mErr = multierror.Append(mErr, err)
					locker.Unlock()
				}
				if onDone != nil {
					onDone(s, err)
				}
			}
		})
	}

feed:
	for _, s := range sessions {
		select {
		case jobs <- s:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		mErr = multierror.Append(mErr, err)
	}
	return mErr.ErrorOrNil()
}
