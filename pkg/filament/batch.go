package filament

import "log/slog"

// Batch groups the signal writes made by fn into a single notification
// phase. Pending notifications are collected in first-seen order,
// deduplicated per signal, and flushed exactly once when the outermost
// batch exits; a signal written three times inside one batch produces one
// notification observing the final value.
//
// Batches nest. Nesting at depth 10 logs a warning; depth 20 panics with an
// ExcessiveNestingError before fn runs. The batch frame is scoped to the
// calling goroutine: concurrently open batches on other goroutines keep
// independent pending sets and flush independently.
//
//	filament.Batch(func() {
//	    firstName.Set("Ada")
//	    lastName.Set("Lovelace")
//	})
//	// subscribers notified once, observing both writes
func Batch(fn func()) {
	ctx := currentContext()
	ctx.batchDepth++
	if ctx.batchDepth >= batchMaxDepth {
		ctx.batchDepth--
		panic(&ExcessiveNestingError{Depth: batchMaxDepth})
	}
	if ctx.batchDepth >= batchWarnDepth {
		slog.Default().Warn("deeply nested batch",
			"depth", ctx.batchDepth,
			"limit", batchMaxDepth)
	}

	defer func() {
		ctx.batchDepth--
		if ctx.batchDepth == 0 {
			// Writes that happened before a panic inside fn have already
			// replaced their values; their notifications still flush.
			flushContext(ctx)
		}
	}()

	fn()
}
