package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintBanner writes the Tendril banner to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct{ text, color string }{
		{"  _                 _      _ _ ", "#34d399"},
		{" | |_ ___ _ __   __| |_ __(_) |", "#2dd4bf"},
		{" | __/ _ \\ '_ \\ / _` | '__| | |", "#22d3ee"},
		{" | ||  __/ | | | (_| | |  | | |", "#38bdf8"},
		{"  \\__\\___|_| |_|\\__,_|_|  |_|_|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// Status colours a run status for terminal output.
func Status(s domain.RunStatus) string {
	p := termenv.EnvColorProfile()
	color := "#fbbf24"
	switch s {
	case domain.StatusCompleted:
		color = "#34d399"
	case domain.StatusFailed:
		color = "#f87171"
	}
	return termenv.String(string(s)).Foreground(p.Color(color)).Bold().String()
}
