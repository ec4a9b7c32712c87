// Command calculator evaluates arithmetic expressions locally, through a
// calculator server, or interactively in the terminal.
package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		if !errors.Is(err, errFailed) {
			color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
