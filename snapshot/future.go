package snapshot

import "context"

// Future is the handle of a deferred dump or restore.
type Future struct {
	done chan struct{}
	out  Outcome
}

// Done is closed when the operation has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// IsDone reports whether the operation has finished.
func (f *Future) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the operation has finished or ctx is done. Canceling ctx
// stops the wait, not the operation.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.out, f.out.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// DumpAsync runs Dump in the background.
func (s *Store) DumpAsync(ctx context.Context, t Table, name string) *Future {
	return s.goAsync(ctx, func(ctx context.Context) (Outcome, error) {
		return s.dump(ctx, t, name)
	})
}

// RestoreAsync runs Restore in the background.
func (s *Store) RestoreAsync(ctx context.Context, t Table, name string, optFns ...RestoreOption) *Future {
	return s.goAsync(ctx, func(ctx context.Context) (Outcome, error) {
		return s.restore(ctx, t, name, optFns)
	})
}

func (s *Store) goAsync(ctx context.Context, fn func(context.Context) (Outcome, error)) *Future {
	ctx = context.WithoutCancel(ctx)
	f := &Future{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		rc := s.opts.resource
		if err := rc.AcquireBackground(ctx); err != nil {
			f.out.Err = err
			return
		}
		defer rc.ReleaseBackground()

		out, err := fn(ctx)
		out.Err = err
		f.out = out
	}()

	return f
}
