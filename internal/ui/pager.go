package ui

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls ToPager.
type PagerOptions struct {
	NoPager bool // set by --no-pager
}

// pagerCommand returns the pager argv: $GHTRACK_PAGER, then $PAGER, then
// less. It returns nil when paging is off for this run.
func pagerCommand(opts PagerOptions) []string {
	if opts.NoPager || os.Getenv("GHTRACK_NO_PAGER") != "" || !IsTerminal() {
		return nil
	}
	for _, env := range []string{"GHTRACK_PAGER", "PAGER"} {
		if p := strings.Fields(os.Getenv(env)); len(p) > 0 {
			return p
		}
	}
	return []string{"less"}
}

// contentHeight counts the lines of content.
func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

func fitsScreen(content string) bool {
	_, rows, err := term.GetSize(int(os.Stdout.Fd()))
	return err == nil && rows > 0 && contentHeight(content) < rows
}

// ToPager writes content to w, or through a pager when stdout is a
// terminal and content is taller than the screen.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	argv := pagerCommand(opts)
	if argv == nil || fitsScreen(content) {
		_, err := io.WriteString(w, content)
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - user-configured pager
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
