package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls pager behavior
type PagerOptions struct {
	// NoPager disables pager for this command (--no-pager flag)
	NoPager bool
}

// shouldUsePager reports whether output should be piped to a pager: not
// when disabled by option or RW_NO_PAGER, and not when stdout is piped.
func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("RW_NO_PAGER") != "" {
		return false
	}
	return IsTerminal()
}

// getPagerCommand checks RW_PAGER, then PAGER, and defaults to "less".
func getPagerCommand() string {
	if pager := os.Getenv("RW_PAGER"); pager != "" {
		return pager
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	return "less"
}

// getTerminalHeight returns 0 when stdout is not a TTY.
func getTerminalHeight() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	_, height, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return height
}

func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(content, "\n"), "\n") + 1
}

// ToPager pipes content to a pager when stdout is a terminal and the content
// does not fit on one screen; otherwise it writes content to stdout.
func ToPager(content string, opts PagerOptions) error {
	return toPager(os.Stdout, content, opts)
}

func toPager(w io.Writer, content string, opts PagerOptions) error {
	if !shouldUsePager(opts) {
		_, err := fmt.Fprint(w, content)
		return err
	}

	if h := getTerminalHeight(); h > 0 && contentHeight(content) <= h-1 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	parts := strings.Fields(getPagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 - pager command is user-configurable by design
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr

	// -R: ANSI colors, -F: quit if one screen, -X: don't clear on exit
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
