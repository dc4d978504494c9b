package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Project owner kinds for project.owner-type.
const (
	OwnerOrganization = "organization"
	OwnerUser         = "user"
)

// GetProjectOwnerType retrieves the kind of account that owns the project.
// Returns "organization" (default) if not set or invalid.
// Logs a warning to stderr if an invalid value is configured.
//
// Config key: project.owner-type
// Valid values: organization, user
func GetProjectOwnerType() string {
	value := GetString("project.owner-type")
	if value == "" {
		return OwnerOrganization
	}
	kind := strings.ToLower(strings.TrimSpace(value))
	switch kind {
	case OwnerOrganization, OwnerUser:
		return kind
	case "org":
		return OwnerOrganization
	}
	fmt.Fprintf(os.Stderr, "Warning: invalid project.owner-type %q in config (valid: organization, user), using default 'organization'\n", value)
	return OwnerOrganization
}

// GetTimeout retrieves the API timeout.
// Returns 30s if not set or invalid.
//
// Config key: github.timeout
func GetTimeout() time.Duration {
	d := GetDuration("github.timeout")
	if d <= 0 {
		if raw := GetString("github.timeout"); raw != "" {
			fmt.Fprintf(os.Stderr, "Warning: invalid github.timeout %q in config, using default '30s'\n", raw)
		}
		return 30 * time.Second
	}
	return d
}

// GetPageSize retrieves the item listing page size, clamped to 1..100.
//
// Config key: fetch.page-size
func GetPageSize() int {
	n := GetInt("fetch.page-size")
	if n <= 0 || n > 100 {
		if n != 0 {
			fmt.Fprintf(os.Stderr, "Warning: invalid fetch.page-size %d in config (valid: 1-100), using default 100\n", n)
		}
		return 100
	}
	return n
}

// GetMaxConcurrency retrieves the page hydration limit; 0 means unbounded.
//
// Config key: fetch.max-concurrency
func GetMaxConcurrency() int {
	n := GetInt("fetch.max-concurrency")
	if n < 0 {
		fmt.Fprintf(os.Stderr, "Warning: invalid fetch.max-concurrency %d in config, using unbounded\n", n)
		return 0
	}
	return n
}

// GetCachePath retrieves the cache database path with "~" expanded.
// Defaults to ghtrack/cache.db under the user cache directory.
//
// Config key: cache.path
func GetCachePath() string {
	if p := GetString("cache.path"); p != "" {
		return expandHome(p)
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = filepath.Join(os.TempDir(), "ghtrack-cache")
		return filepath.Join(dir, "cache.db")
	}
	return filepath.Join(dir, "ghtrack", "cache.db")
}

// GetRulesPath retrieves the sanitizer rules file with "~" expanded, or "".
//
// Config key: sanitize.rules
func GetRulesPath() string {
	if p := GetString("sanitize.rules"); p != "" {
		return expandHome(p)
	}
	return ""
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
