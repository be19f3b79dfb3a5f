package main

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// isTTY returns true if the given file descriptor is a terminal.
func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// printBanner prints the gotabmcp ASCII art banner. When useColor is true,
// each line gets its own ANSI color.
func printBanner(w io.Writer, useColor bool) {
	lines := []string{
		`                                                     `,
		`              _        _                            `,
		`   __ _  ___ | |_ __ _| |__  _ __ ___   ___ _ __    `,
		`  / _' |/ _ \| __/ _' | '_ \| '_ ' _ \ / __| '_ \   `,
		` | (_| | (_) | || (_| | |_) | | | | | | (__| |_) |  `,
		`  \__, |\___/ \__\__,_|_.__/|_| |_| |_|\___| .__/   `,
		`  |___/                                    |_|      `,
		`                                                     `,
	}

	if useColor {
		// Bold green to yellow
		colors := []string{
			"\033[1;32m", // bold green
			"\033[1;32m", // bold green
			"\033[1;92m", // bold bright green
			"\033[1;36m", // bold cyan
			"\033[1;33m", // bold yellow
			"\033[1;93m", // bold bright yellow
			"\033[1;93m", // bold bright yellow
			"\033[0m",    // reset (blank line)
		}
		for i, line := range lines {
			color := colors[i%len(colors)]
			fmt.Fprintf(w, "%s%s\033[0m\n", color, line)
		}
	} else {
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	}
}
