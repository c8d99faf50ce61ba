package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/scate/internal/logging"
)

// Setting keys.
const (
	KeyExecutable      = "interpreter.executable"
	KeyRuntimeDir      = "interpreter.runtime_dir"
	KeyArgs            = "interpreter.args"
	KeyAutoStart       = "interpreter.auto_start"
	KeyStopTimeout     = "interpreter.stop_timeout"
	KeyOutputEncoding  = "interpreter.output_encoding"
	KeySwingOSCProgram = "swingosc.program"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
	KeyHooks           = "scripts.hooks"
)

// Defaults.
const (
	DefaultStopTimeout    = 5 * time.Second
	DefaultOutputEncoding = "utf-8"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"interpreter": map[string]any{
			"executable":      "",
			"runtime_dir":     "",
			"args":            []any{},
			"auto_start":      false,
			"stop_timeout":    DefaultStopTimeout.String(),
			"output_encoding": DefaultOutputEncoding,
		},
		"swingosc": map[string]any{
			"program": "",
		},
		"logging": map[string]any{
			"level":  DefaultLogLevel,
			"format": DefaultLogFormat,
		},
		"scripts": map[string]any{
			"hooks": "",
		},
	}
}

// Interpreter holds the settings consulted on every interpreter launch.
type Interpreter struct {
	Executable     string
	RuntimeDir     string
	Args           []string
	AutoStart      bool
	StopTimeout    time.Duration
	OutputEncoding string
}

// Logging holds logger settings.
type Logging struct {
	Level  string
	Format string
}

// Store is a layered configuration: defaults, then the file, then the
// environment, then explicit overrides. Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	path      string
	data      map[string]any
	overrides map[string]any
	env       *EnvLoader
	log       *logging.Logger

	subMu       sync.Mutex
	subscribers []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		s.log = l.WithComponent("config")
	}
}

// WithEnv replaces the environment loader. Pass nil to ignore the
// environment entirely.
func WithEnv(env *EnvLoader) Option {
	return func(s *Store) {
		s.env = env
	}
}

// NewStore creates a store for the file at path. The store holds the
// defaults until Load is called. An empty path means no file layer.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:      path,
		data:      Defaults(),
		overrides: make(map[string]any),
		env:       NewEnvLoader(EnvPrefix),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPath returns $XDG_CONFIG_HOME/scate/config.toml or the
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "scate", "config.toml")
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// Load rebuilds the configuration from all layers. On error the previous
// configuration is kept.
func (s *Store) Load() error {
	merged := Defaults()

	if s.path != "" {
		fileCfg, err := LoadFile(s.path)
		if err != nil {
			return err
		}
		if fileCfg == nil {
			s.log.Debug("no config file at %s, using defaults", s.path)
		}
		merged = DeepMerge(merged, fileCfg)
	}

	if s.env != nil {
		envCfg, err := s.env.Load()
		if err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
		merged = DeepMerge(merged, envCfg)
	}

	s.mu.Lock()
	merged = DeepMerge(merged, Clone(s.overrides))
	s.data = merged
	s.mu.Unlock()

	s.log.Debug("configuration loaded from %q", s.path)
	return nil
}

// Set overrides a single key. Overrides survive reloads.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	setByPath(s.overrides, path, value)
	setByPath(s.data, path, value)
	s.mu.Unlock()
}

// Map returns a deep copy of the effective configuration.
func (s *Store) Map() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Clone(s.data)
}

func (s *Store) get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getByPath(s.data, path)
}

// GetString returns the string at path, or def when unset.
func (s *Store) GetString(path, def string) string {
	v, ok := s.get(path)
	if !ok || v == nil {
		return def
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// GetBool returns the boolean at path, or def when unset. Numbers are
// true when non-zero; strings use strconv.ParseBool syntax.
func (s *Store) GetBool(path string, def bool) bool {
	v, ok := s.get(path)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case uint64:
		return b != 0
	case float64:
		return b != 0
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	s.log.Warn("invalid boolean for %s: %v", path, v)
	return def
}

// GetDuration returns the duration at path. Strings use time.ParseDuration
// syntax; bare numbers are seconds.
func (s *Store) GetDuration(path string, def time.Duration) time.Duration {
	v, ok := s.get(path)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	case int:
		return time.Duration(d) * time.Second
	case int64:
		return time.Duration(d) * time.Second
	case uint64:
		return time.Duration(d) * time.Second
	case float64:
		return time.Duration(d * float64(time.Second))
	}
	s.log.Warn("invalid duration for %s: %v", path, v)
	return def
}

// GetStringSlice returns the list at path. A single string becomes a
// one-element list.
func (s *Store) GetStringSlice(path string) []string {
	v, ok := s.get(path)
	if !ok || v == nil {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if list == "" {
			return nil
		}
		return []string{list}
	}
	return nil
}

// Interpreter returns a snapshot of the interpreter launch settings.
func (s *Store) Interpreter() Interpreter {
	return Interpreter{
		Executable:     s.GetString(KeyExecutable, ""),
		RuntimeDir:     s.GetString(KeyRuntimeDir, ""),
		Args:           s.GetStringSlice(KeyArgs),
		AutoStart:      s.GetBool(KeyAutoStart, false),
		StopTimeout:    s.GetDuration(KeyStopTimeout, DefaultStopTimeout),
		OutputEncoding: s.GetString(KeyOutputEncoding, DefaultOutputEncoding),
	}
}

// SwingOSCProgram returns the SwingOSC program path.
func (s *Store) SwingOSCProgram() string {
	return s.GetString(KeySwingOSCProgram, "")
}

// Logging returns the logger settings.
func (s *Store) Logging() Logging {
	return Logging{
		Level:  s.GetString(KeyLogLevel, DefaultLogLevel),
		Format: s.GetString(KeyLogFormat, DefaultLogFormat),
	}
}

// HooksPath returns the Lua hook file, or "" when none is configured.
func (s *Store) HooksPath() string {
	return s.GetString(KeyHooks, "")
}

// OnChange registers fn to run after every successful reload triggered by
// Watch.
func (s *Store) OnChange(fn func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := append([]func(){}, s.subscribers...)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
