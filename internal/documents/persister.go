package documents

import (
	"context"
	"time"
)

const defaultPersistTimeout = 10 * time.Second

// runs store writes in the background and reports each outcome on a channel.
// callers that need ordering wait on the channel before continuing
type Persister struct {
	store   Store
	timeout time.Duration

	// called with every result before it is delivered
	OnResult func(PersistResult)
}

func NewPersister(store Store, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}

	return &Persister{store: store, timeout: timeout}
}

func (p *Persister) SaveOutline(ctx context.Context, documentID, markdown string) <-chan PersistResult {
	return p.run(ctx, PersistOutline, documentID, func(ctx context.Context) error {
		return p.store.SaveOutline(ctx, documentID, markdown)
	})
}

func (p *Persister) SaveContent(ctx context.Context, documentID, content string) <-chan PersistResult {
	return p.run(ctx, PersistContent, documentID, func(ctx context.Context) error {
		return p.store.SaveContent(ctx, documentID, content)
	})
}

func (p *Persister) run(ctx context.Context, kind PersistKind, documentID string, write func(context.Context) error) <-chan PersistResult {
	out := make(chan PersistResult, 1)

	// detached from request cancellation, bounded by the persist timeout
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)

	go func() {
		defer close(out)
		defer cancel()

		start := time.Now()
		err := write(writeCtx)

		res := PersistResult{
			Kind:       kind,
			DocumentID: documentID,
			Err:        err,
			Duration:   time.Since(start),
		}

		if p.OnResult != nil {
			p.OnResult(res)
		}

		out <- res
	}()

	return out
}

// blocks until the write finishes or ctx is done
func Await(ctx context.Context, ch <-chan PersistResult) PersistResult {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return PersistResult{Err: ctx.Err()}
	}
}
