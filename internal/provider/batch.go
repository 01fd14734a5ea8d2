package provider

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchBatch fetches one quote per symbol and returns them in input order.
// Symbols without a record are skipped, and so are records repeating a symbol
// already in the result.
//
// The first failing symbol (in input order) ends the batch: the records of the
// symbols before it are returned together with its error. Symbols after it are
// never requested; in parallel mode the ones already in flight are cancelled
// and their results discarded.
func FetchBatch(ctx context.Context, p QuoteProvider, symbols []string, concurrency int) ([]Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if concurrency <= 1 || len(symbols) == 1 {
		return fetchSequential(ctx, p, symbols)
	}

	type slot struct {
		q   Quote
		ok  bool
		err error
	}
	var (
		slots   = make([]slot, len(symbols))
		mu      sync.Mutex
		failAt  = len(symbols)
		cancels = make([]context.CancelFunc, len(symbols))
	)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			mu.Lock()
			if i > failAt {
				mu.Unlock()
				return nil
			}
			callCtx, cancel := context.WithCancel(ctx)
			cancels[i] = cancel
			mu.Unlock()
			defer cancel()

			q, ok, err := p.FetchQuote(callCtx, sym)
			slots[i] = slot{q: q, ok: ok, err: err}
			if err == nil {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if i < failAt {
				failAt = i
				for _, c := range cancels[i+1:] {
					if c != nil {
						c()
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Quote, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for i, s := range slots[:min(failAt+1, len(slots))] {
		if s.err != nil {
			return out, AsFetchError("quote", symbols[i], s.err)
		}
		out = appendUnique(out, seen, s.q, s.ok)
	}
	return out, nil
}

func fetchSequential(ctx context.Context, p QuoteProvider, symbols []string) ([]Quote, error) {
	out := make([]Quote, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		q, ok, err := p.FetchQuote(ctx, sym)
		if err != nil {
			return out, AsFetchError("quote", sym, err)
		}
		out = appendUnique(out, seen, q, ok)
	}
	return out, nil
}

func appendUnique(out []Quote, seen map[string]struct{}, q Quote, ok bool) []Quote {
	if !ok || q.Symbol == "" {
		return out
	}
	if _, dup := seen[q.Symbol]; dup {
		return out
	}
	seen[q.Symbol] = struct{}{}
	return append(out, q)
}
