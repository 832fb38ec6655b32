// Package tui renders the interactive chat console.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the voiceflow banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{` __   __   _          __ _`, "#38bdf8"},
		{` \ \ / /__(_)__ ___  / _| |_____ __ __`, "#22d3ee"},
		{`  \ V / _ \ / _/ -_)|  _| / _ \ V  V /`, "#2dd4bf"},
		{`   \_/\___/_\__\___||_| |_\___/\_/\_/`, "#34d399"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
