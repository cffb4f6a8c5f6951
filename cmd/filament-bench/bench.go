package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/filament-dev/filament/pkg/filament"
)

// report prints one benchmark line: total operations, wall time, throughput.
func report(name string, ops int, elapsed time.Duration) {
	perSec := float64(ops) / elapsed.Seconds()
	fmt.Printf("%-28s %12d ops %12s %14.0f ops/s\n", name, ops, elapsed.Round(time.Microsecond), perSec)
}

func signalsCmd() *cobra.Command {
	var count int
	var batchSize int

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Measure signal write throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := filament.New()
			sig := filament.NewSignalIn(rt, 0)

			start := time.Now()
			for i := 0; i < count; i++ {
				sig.Set(i)
			}
			report("signal write (unbatched)", count, time.Since(start))

			start = time.Now()
			for i := 0; i < count; i += batchSize {
				base := i
				filament.Batch(func() {
					for j := 0; j < batchSize && base+j < count; j++ {
						sig.Set(base + j)
					}
				})
			}
			report(fmt.Sprintf("signal write (batch=%d)", batchSize), count, time.Since(start))

			start = time.Now()
			for i := 0; i < count; i++ {
				_ = sig.Get()
			}
			report("signal read", count, time.Since(start))
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1_000_000, "number of operations")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "writes per batch")
	return cmd
}

func computedCmd() *cobra.Command {
	var count int
	var depth int

	cmd := &cobra.Command{
		Use:   "computed",
		Short: "Measure computed recompute throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 1 {
				return fmt.Errorf("depth must be at least 1, got %d", depth)
			}
			rt := filament.New()
			sig := filament.NewSignalIn(rt, 0)

			// Linear chain of derived values, each one reading the previous.
			head := filament.NewComputedIn(rt, func() int { return sig.Get() + 1 })
			for i := 1; i < depth; i++ {
				prev := head
				head = filament.NewComputedIn(rt, func() int { return prev.Get() + 1 })
			}

			start := time.Now()
			for i := 0; i < count; i++ {
				sig.Set(i)
				_ = head.Get()
			}
			elapsed := time.Since(start)
			report(fmt.Sprintf("computed chain (depth=%d)", depth), count, elapsed)

			stats := rt.Stats()
			fmt.Printf("%-28s %12d recomputes\n", "", stats.Recomputes)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 100_000, "number of write+read rounds")
	cmd.Flags().IntVar(&depth, "depth", 10, "length of the computed chain")
	return cmd
}

func effectsCmd() *cobra.Command {
	var count int
	var fanout int

	cmd := &cobra.Command{
		Use:   "effects",
		Short: "Measure effect notification throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := filament.New()
			sig := filament.NewSignalIn(rt, 0)

			sink := 0
			effects := make([]*filament.Effect, 0, fanout)
			for i := 0; i < fanout; i++ {
				effects = append(effects, filament.NewEffectIn(rt, func() filament.Cleanup {
					sink += sig.Get()
					return nil
				}))
			}
			defer func() {
				for _, e := range effects {
					e.Dispose()
				}
			}()

			start := time.Now()
			for i := 0; i < count; i++ {
				sig.Set(i)
			}
			elapsed := time.Since(start)
			report(fmt.Sprintf("effect fanout (n=%d)", fanout), count*fanout, elapsed)

			_ = sink
			stats := rt.Stats()
			fmt.Printf("%-28s %12d effect runs\n", "", stats.EffectRuns)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 100_000, "number of writes")
	cmd.Flags().IntVar(&fanout, "fanout", 10, "effects subscribed to the signal")
	return cmd
}
