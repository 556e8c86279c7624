// Command concurrencycheck stress-tests a shared prime table and codec
// under concurrent access from many goal-seeking sessions at once, the way
// a server hosting several controllers behind one Table would. It exists
// to exercise the concurrency guarantees the prime table and codec commit
// to, not to find timing bugs in any one session's logic.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/primeos/vm/internal/controller"
	"github.com/primeos/vm/internal/primetab"
	"github.com/primeos/vm/internal/teacher"
	"github.com/primeos/vm/internal/uor"
	"github.com/primeos/vm/internal/vm"
)

func main() {
	sessions := flag.Int("sessions", 64, "number of concurrent sessions")
	steps := flag.Int("steps", 5000, "step budget per session")
	flag.Parse()
	if err := run(*sessions, *steps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(sessions, steps int) error {
	table := primetab.New()
	codec := uor.NewCodec(table)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < sessions; i++ {
		seed := int64(i + 1)
		g.Go(func() error {
			return runOneSession(ctx, codec, seed, steps)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("concurrencycheck: %w", err)
	}
	fmt.Printf("ok: %d sessions, %d primes resolved\n", sessions, table.Len())
	return nil
}

func runOneSession(ctx context.Context, codec *uor.Codec, seed int64, steps int) error {
	rng := rand.New(rand.NewSource(seed))
	machine := vm.New(codec, vm.WithRand(rng))
	tch := teacher.New(rand.New(rand.NewSource(seed)))
	ctl := controller.New(codec, machine, tch)

	if err := ctl.Init(int(seed) % 10); err != nil {
		return fmt.Errorf("session %d init: %w", seed, err)
	}

	for i := 0; i < steps; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := ctl.Step(); err != nil {
			return fmt.Errorf("session %d step %d: %w", seed, i, err)
		}
		if ctl.Snapshot().Halted {
			break
		}
	}
	return nil
}
