package timer

import (
	"context"
	"time"
)

// WindowResult says why a Window ended.
type WindowResult int

const (
	Elapsed WindowResult = iota
	Cancelled
	FinishedEarly
)

func (r WindowResult) String() string {
	switch r {
	case Elapsed:
		return "elapsed"
	case Cancelled:
		return "cancelled"
	case FinishedEarly:
		return "finished_early"
	default:
		return "unknown"
	}
}

// Window blocks for d, returning early when ctx is done or when early is
// closed. A nil early channel never fires.
func Window(ctx context.Context, d time.Duration, early <-chan struct{}) WindowResult {
	if ctx.Err() != nil {
		return Cancelled
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return Elapsed
	case <-ctx.Done():
		return Cancelled
	case <-early:
		return FinishedEarly
	}
}
