// Package config is the process-wide configuration: a viper singleton fed
// from the config file, GHTRACK_* environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/steveyegge/ghtrack/internal/debug"
)

// ProjectConfigFile is the per-directory config file name.
const ProjectConfigFile = ".ghtrack.yaml"

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Precedence: ./.ghtrack.yaml > $XDG_CONFIG_HOME/ghtrack/config.yaml > ~/.config/ghtrack/config.yaml
	configFileSet := false
	for _, path := range candidateFiles() {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			configFileSet = true
			break
		}
	}

	// GHTRACK_PROJECT_OWNER maps to project.owner, GHTRACK_FETCH_PAGE_SIZE
	// to fetch.page-size.
	v.SetEnvPrefix("GHTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github.token", "GHTRACK_GITHUB_TOKEN", "GITHUB_TOKEN")

	v.SetDefault("github.token", "")
	v.SetDefault("github.endpoint", "https://api.github.com/graphql")
	v.SetDefault("github.timeout", "30s")
	v.SetDefault("project.owner", "")
	v.SetDefault("project.owner-type", OwnerOrganization)
	v.SetDefault("project.number", 0)
	v.SetDefault("cache.path", "")
	v.SetDefault("fetch.page-size", 100)
	v.SetDefault("fetch.max-concurrency", 0)
	v.SetDefault("sanitize.rules", "")
	v.SetDefault("view.hide-closed", false)
	v.SetDefault("view.preview", true)
	v.SetDefault("serve.addr", "127.0.0.1:7878")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
		debug.Logf("Debug: loaded config from %s\n", v.ConfigFileUsed())
	} else {
		debug.Logf("Debug: no config file found; using defaults and environment variables\n")
	}
	return nil
}

func candidateFiles() []string {
	var out []string
	if cwd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(cwd, ProjectConfigFile))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "ghtrack", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".config", "ghtrack", "config.yaml"))
	}
	return out
}

// ResetForTesting clears the config state, allowing Initialize() to be called again.
// WARNING: Not thread-safe. Only call from single-threaded test contexts.
func ResetForTesting() {
	v = nil
}

// ConfigFileUsed returns the loaded config file, or "" if none was found.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Get retrieves a raw configuration value
func Get(key string) any {
	if v == nil {
		return nil
	}
	return v.Get(key)
}

// Set sets a configuration value for the running process only.
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllKeys returns every known key, sorted.
func AllKeys() []string {
	if v == nil {
		return nil
	}
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}
