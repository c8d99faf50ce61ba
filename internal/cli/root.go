// Package cli implements the scate command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/scate/internal/config"
	"github.com/dshills/scate/internal/logging"
	"github.com/dshills/scate/internal/version"
)

// ConfigEnv names the environment variable that selects the
// configuration file when --config is not given.
const ConfigEnv = config.EnvPrefix + "CONFIG"

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	ignoreEnv  bool
}

// env is the wiring shared by the commands of one invocation.
type env struct {
	store    *config.Store
	log      *logging.Logger
	closeLog func() error
}

func (e *env) close() {
	if err := e.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
	}
}

// NewRootCommand builds the scate command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "scate",
		Short: "Supervise a SuperCollider language interpreter",
		Long: `scate runs sclang as a child process, streams its output, and sends
it code to evaluate. The interpreter is started, stopped and restarted on
request; it is never left running after scate exits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version.Version
	root.SetVersionTemplate(fmt.Sprintf("scate %s\n", version.String()))

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Configuration file (default $"+ConfigEnv+" or "+config.DefaultPath()+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	pf.StringVar(&opts.logFile, "log-file", "", "Append logs to this file instead of stderr")
	pf.BoolVar(&opts.ignoreEnv, "ignore-env", false, "Ignore "+config.EnvPrefix+"* environment variables")

	root.AddCommand(
		newRunCommand(opts),
		newEvalCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// resolveConfigPath picks the flag, then the environment, then the
// platform default.
func (o *globalOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	return config.DefaultPath()
}

// setup loads the configuration and builds the logger. Flags override
// the logging settings of every other layer.
func (o *globalOptions) setup(cmd *cobra.Command) (*env, error) {
	var storeOpts []config.Option
	if o.ignoreEnv {
		storeOpts = append(storeOpts, config.WithEnv(nil))
	}
	store := config.NewStore(o.resolveConfigPath(), storeOpts...)
	if o.logLevel != "" {
		store.Set(config.KeyLogLevel, o.logLevel)
	}
	if o.logFormat != "" {
		store.Set(config.KeyLogFormat, o.logFormat)
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	out := cmd.ErrOrStderr()
	closeLog := func() error { return nil }
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeLog = f.Close
	}

	lc := store.Logging()
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(lc.Level),
		Format: logging.ParseFormat(lc.Format),
		Output: out,
		Prefix: "scate",
	})
	config.WithLogger(log)(store)
	log.Debug("configuration loaded from %s", store.Path())

	return &env{store: store, log: log, closeLog: closeLog}, nil
}
