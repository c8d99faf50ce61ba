package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/scate/internal/config"
	"github.com/dshills/scate/internal/interp"
)

const maxLineSize = 1 << 20

type runOptions struct {
	start   bool
	noWatch bool
}

func newRunCommand(g *globalOptions) *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an interactive interpreter session",
		Long: `Run an interactive session. Each input line is sent to the interpreter
for evaluation. Lines starting with ':' run actions such as ":boot-server"
or ":restart"; ":help" lists them and ":quit" ends the session.

The session ends at end of input or on SIGINT/SIGTERM. The interpreter is
stopped before scate exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSession(ctx, e, cmd.InOrStdin(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().BoolVarP(&o.start, "start", "s", false, "Start the interpreter right away (implied by interpreter.auto_start)")
	cmd.Flags().BoolVar(&o.noWatch, "no-watch", false, "Do not reload the configuration file when it changes")
	return cmd
}

func runSession(ctx context.Context, e *env, in io.Reader, out io.Writer, o runOptions, opts ...interp.Option) error {
	s, err := newSession(e, out, opts...)
	if err != nil {
		return err
	}

	if isTerminal(in) {
		s.console.Notice("Enter code to evaluate. :help lists actions, :quit exits.")
	}
	if o.start || e.store.Interpreter().AutoStart {
		s.sup.Start()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		lines := scanLines(gctx, in)
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || s.handleLine(gctx, line) {
					return nil
				}
			}
		}
	})

	if !o.noWatch {
		g.Go(func() error {
			e.store.OnChange(func() {
				e.log.Info("configuration changed, applies from the next start")
			})
			if err := e.store.Watch(gctx, config.DefaultDebounce); err != nil {
				e.log.Warn("not watching %s: %v", e.store.Path(), err)
			}
			return nil
		})
	}

	err = g.Wait()
	if serr := s.shutdown(); serr != nil && err == nil {
		err = serr
	}
	return err
}

// scanLines delivers r's lines until EOF or ctx ends.
func scanLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
