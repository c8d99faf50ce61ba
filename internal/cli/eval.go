package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/scate/internal/interp"
)

type evalOptions struct {
	wait         time.Duration
	startTimeout time.Duration
	silent       bool
}

func newEvalCommand(g *globalOptions) *cobra.Command {
	var o evalOptions
	cmd := &cobra.Command{
		Use:   "eval <file|->",
		Short: "Evaluate a file in a fresh interpreter",
		Long: `Start the interpreter, evaluate the code in file (or standard input
for "-"), print output for the --wait period and stop the interpreter.

The command fails if the interpreter cannot be started or exits with an
error before the wait is over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return evalSource(ctx, e, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().DurationVarP(&o.wait, "wait", "w", 2*time.Second, "How long to collect output after submitting the code")
	cmd.Flags().DurationVar(&o.startTimeout, "start-timeout", 30*time.Second, "How long to wait for the interpreter to start")
	cmd.Flags().BoolVar(&o.silent, "silent", false, "Do not echo the result of the evaluation")
	return cmd
}

func evalSource(ctx context.Context, e *env, source string, in io.Reader, out io.Writer, o evalOptions, opts ...interp.Option) error {
	s, err := newSession(e, out, opts...)
	if err != nil {
		return err
	}

	exited := make(chan interp.Message, 1)
	s.sup.Subscribe(interp.ObserverFuncs{
		Message: func(m interp.Message) {
			if m.Kind != interp.MessageUnexpectedExit {
				return
			}
			select {
			case exited <- m:
			default:
			}
		},
	})

	s.sup.Start()

	// Read the code while the interpreter boots.
	var code string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		code, err = readSource(source, in)
		return err
	})
	g.Go(func() error {
		actx, cancel := context.WithTimeout(gctx, o.startTimeout)
		defer cancel()
		if err := s.sup.WaitRunning(actx); err != nil {
			return fmt.Errorf("interpreter did not start: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if err == nil {
		s.sup.Submit(code, o.silent)
		err = waitForOutput(ctx, o.wait, exited)
	}
	if serr := s.shutdown(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// waitForOutput returns after d, on interruption, or when the interpreter
// exits. Only an unsuccessful exit is an error.
func waitForOutput(ctx context.Context, d time.Duration, exited <-chan interp.Message) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	case m := <-exited:
		if m.Status.Success() {
			return nil
		}
		return m.Err
	}
}

func readSource(source string, in io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", fmt.Errorf("reading code: %w", err)
	}
	return string(data), nil
}
