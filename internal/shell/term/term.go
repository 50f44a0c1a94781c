// Package term prints the one-line, severity-tagged messages the dispatcher
// emits for every branch. Colors are a usability feature, not a correctness
// mechanism: they are dropped when stdout is not a terminal or NO_COLOR is
// set.
package term

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\033[0m"
	ansiBlue   = "\033[34m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// Printer writes severity-tagged lines. Info and Success go to stdout,
// Warn and Error to stderr.
type Printer struct {
	out   io.Writer
	err   io.Writer
	color bool
}

// NewPrinter wires a Printer to the process streams, enabling color only
// for interactive terminals.
func NewPrinter() *Printer {
	color := isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == ""
	return &Printer{out: os.Stdout, err: os.Stderr, color: color}
}

// NewPrinterTo wires a Printer to explicit streams without color. Tests use
// this to capture output.
func NewPrinterTo(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

func (p *Printer) Info(format string, args ...any) {
	p.line(p.out, ansiBlue, "INFO", format, args...)
}

func (p *Printer) Success(format string, args ...any) {
	p.line(p.out, ansiGreen, " OK ", format, args...)
}

func (p *Printer) Warn(format string, args ...any) {
	p.line(p.err, ansiYellow, "WARN", format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.line(p.err, ansiRed, "FAIL", format, args...)
}

func (p *Printer) line(w io.Writer, color, tag, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.color {
		fmt.Fprintf(w, "%s[%s]%s %s\n", color, tag, ansiReset, msg)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", tag, msg)
}
