// Command primeosvm runs a goal-seeking session to completion (or to a step
// budget) against an adaptive Teacher, logging each suspension at which the
// interaction phase changes, then printing the final output log and
// difficulty.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/primeos/vm/internal/controller"
	"github.com/primeos/vm/internal/logio"
	"github.com/primeos/vm/internal/panicerr"
	"github.com/primeos/vm/internal/primetab"
	"github.com/primeos/vm/internal/teacher"
	"github.com/primeos/vm/internal/uor"
	"github.com/primeos/vm/internal/vm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if panicerr.IsPanic(err) {
			fmt.Fprintln(os.Stderr, panicerr.PanicStack(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		seed           int64
		initialAttempt int
		maxSteps       int
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "primeosvm",
		Short: "Run a goal-seeking session against an adaptive teacher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return panicerr.Recover("primeosvm.run", func() error {
				return runSession(seed, initialAttempt, maxSteps, verbose)
			})
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for the VM and Teacher")
	cmd.Flags().IntVar(&initialAttempt, "initial-attempt", 0, "the goal-seeker's starting guess, independent of the teacher's target")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 200000, "step budget before giving up")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log every VM step instead of only suspensions")

	return cmd
}

func newZapLogger(verbose bool) (*zap.Logger, func()) {
	lg := &logio.Logger{}
	lg.SetOutput(os.Stderr)

	sink := lg.SessionSink()
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(sink), level)
	return zap.New(core), lg.Close
}

func runSession(seed int64, initialAttempt, maxSteps int, verbose bool) error {
	zlog, closeLog := newZapLogger(verbose)
	defer closeLog()
	defer zlog.Sync()

	codec := uor.NewCodec(primetab.New())
	rng := rand.New(rand.NewSource(seed))
	machine := vm.New(codec, vm.WithRand(rng), vm.WithLogf(func(format string, args ...interface{}) {
		if verbose {
			zlog.Sugar().Debugf(format, args...)
		}
	}))
	tch := teacher.New(rand.New(rand.NewSource(seed)))
	ctl := controller.New(codec, machine, tch)

	if err := ctl.Init(initialAttempt); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	zlog.Info("session initialized",
		zap.Int64("seed", seed),
		zap.Int("initial_attempt", initialAttempt),
		zap.String("difficulty", tch.DifficultyLabel()),
		zap.Int("target", tch.CurrentTarget()),
	)

	lastPhase := controller.AwaitingAttemptResult
	for i := 0; i < maxSteps; i++ {
		snap := ctl.Snapshot()
		if snap.Halted {
			zlog.Info("session halted", zap.Int("ip", snap.InstructionPointer), zap.String("error", snap.Error))
			break
		}
		if snap.NeedsInput && snap.InteractionPhase != lastPhase {
			zlog.Info("suspension resolved",
				zap.String("phase", string(snap.InteractionPhase)),
				zap.Int("attempts_on_target", snap.AttemptsOnTarget),
				zap.String("difficulty", snap.DifficultyLevel),
				zap.Ints("output_log", snap.OutputLog),
			)
			lastPhase = snap.InteractionPhase
		}
		if err := ctl.Step(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	final := ctl.Snapshot()
	fmt.Printf("output: %v\n", final.OutputLog)
	fmt.Printf("difficulty: %s attempts_on_target: %d\n", final.DifficultyLevel, final.AttemptsOnTarget)
	return nil
}
