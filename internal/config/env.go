package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix is the prefix of environment variables read by EnvLoader.
const EnvPrefix = "SCATE_"

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "SCATE_")
	mapping map[string]string // Env var -> config path
	lookup  func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		lookup:  os.Environ,
	}
}

// defaultEnvMapping returns the explicit environment variable mappings.
func defaultEnvMapping() map[string]string {
	return map[string]string{
		"SCATE_EXECUTABLE":   KeyExecutable,
		"SCATE_RUNTIME_DIR":  KeyRuntimeDir,
		"SCATE_AUTO_START":   KeyAutoStart,
		"SCATE_STOP_TIMEOUT": KeyStopTimeout,
		"SCATE_LOG_LEVEL":    KeyLogLevel,
		"SCATE_LOG_FORMAT":   KeyLogFormat,
		"SCATE_HOOKS":        KeyHooks,
		"SCATE_SWINGOSC":     KeySwingOSCProgram,
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values are kept: SCATE_RUNTIME_DIR= clears a file setting.
func (l *EnvLoader) Load() (map[string]any, error) {
	cfg := make(map[string]any)

	for _, env := range l.lookup() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
			if path == "" {
				continue
			}
		}
		setByPath(cfg, path, parseEnvValue(value))
	}

	return cfg, nil
}

// envToPath converts SCATE_INTERPRETER_OUTPUT_ENCODING to
// interpreter.output_encoding. Variables without a section are ignored.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// parseEnvValue converts an environment string into a typed value.
func parseEnvValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.HasPrefix(s, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr
		}
	}

	return s
}
