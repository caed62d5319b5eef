package recommend

import (
	"context"
	"sync"

	"github.com/soyeahso/thecafe/internal/logging"
)

// Analyzer evaluates a query.
type Analyzer interface {
	Analyze(ctx context.Context, q Query) (Result, error)
}

// Update is a delivered evaluation.
type Update struct {
	Seq    uint64 `json:"seq"`
	Query  Query  `json:"query"`
	Result Result `json:"result"`
	Err    error  `json:"-"`
}

// Evaluator runs evaluations in the background. Every submission
// supersedes the previous one: the older evaluation is cancelled and its
// result is never delivered, so the consumer only sees the newest state.
type Evaluator struct {
	analyzer Analyzer
	log      *logging.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewEvaluator wraps an analyzer.
func NewEvaluator(a Analyzer, log *logging.Logger) *Evaluator {
	return &Evaluator{analyzer: a, log: log.Sub("evaluator")}
}

// Submit starts evaluating q and returns its sequence number. deliver is
// called at most once, only if no newer submission has been made by the
// time the evaluation completes. deliver runs with the evaluator's lock
// held and must not call Submit.
func (e *Evaluator) Submit(parent context.Context, q Query, deliver func(Update)) uint64 {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	seq := e.seq
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer cancel()

		res, err := e.analyzer.Analyze(ctx, q)

		e.mu.Lock()
		defer e.mu.Unlock()
		if seq != e.seq || ctx.Err() != nil {
			e.log.Debug().Uint64("seq", seq).Uint64("latest", e.seq).Msg("superseded evaluation dropped")
			return
		}
		deliver(Update{Seq: seq, Query: q, Result: res, Err: err})
	}()
	return seq
}

// Latest returns the sequence number of the newest submission.
func (e *Evaluator) Latest() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Close cancels the in-flight evaluation and waits for workers to exit.
// Later submissions are ignored.
func (e *Evaluator) Close() {
	e.mu.Lock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}
