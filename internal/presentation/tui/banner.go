package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the nonplanar banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Copper to amber, like a heated nozzle.
	lines := []struct{ text, color string }{
		{"  _ __   ___  _ __  _ __ | | __ _ _ __   __ _ _ __ ", "#b45309"},
		{" | '_ \\ / _ \\| '_ \\| '_ \\| |/ _` | '_ \\ / _` | '__|", "#d97706"},
		{" | | | | (_) | | | | |_) | | (_| | | | | (_| | |   ", "#f59e0b"},
		{" |_| |_|\\___/|_| |_| .__/|_|\\__,_|_| |_|\\__,_|_|   ", "#fbbf24"},
		{"                   |_|                              ", "#fcd34d"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
