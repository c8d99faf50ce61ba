// Package config provides layered configuration for scate.
//
// Settings are kept as a nested map and resolved in layers, higher layers
// overriding lower ones:
//
//	┌─────────────────────────────┐
//	│  4. Overrides (Store.Set)   │  ← command line flags
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← SCATE_*
//	├─────────────────────────────┤
//	│  2. Configuration File      │  ← ~/.config/scate/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// The file is TOML unless its extension is .yaml or .yml.
//
// # Usage
//
//	store := config.NewStore(config.DefaultPath())
//	if err := store.Load(); err != nil {
//	    return err
//	}
//	ic := store.Interpreter()
//
// Watch reloads the store when the file changes. Readers that take a
// snapshot on each use, like the interpreter supervisor, pick up the new
// values without further wiring.
//
// # Thread Safety
//
// Store is safe for concurrent use.
package config
