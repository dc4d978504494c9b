package sanitize

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Rules names the option values the sanitizer looks for.
type Rules struct {
	ClosedStatus string `toml:"closed_status"`  // Status option closed items must have
	BugKind      string `toml:"bug_kind"`       // Kind option that marks a bug
	BugIssueType string `toml:"bug_issue_type"` // issue type bugs must have

	// MilestoneEpics maps a Project Milestone option name to the Epic
	// option name given to items with a blank epic.
	MilestoneEpics map[string]string `toml:"milestone_epics"`
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		ClosedStatus: "Closed",
		BugKind:      "Bug",
		BugIssueType: "Bug",
	}
}

// LoadRules reads a TOML rules file. Keys missing from the file keep their
// default. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from user config
	if err != nil {
		return rules, fmt.Errorf("read sanitize rules: %w", err)
	}
	md, err := toml.Decode(string(data), &rules)
	if err != nil {
		return rules, fmt.Errorf("parse sanitize rules %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return rules, fmt.Errorf("parse sanitize rules %s: unknown key %q", path, undecoded[0].String())
	}
	return rules, nil
}
