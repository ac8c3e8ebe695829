package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/operon/core/dispatch"
	"github.com/aledsdavies/operon/runtime/document"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "config", "input", "parse", "evaluation", "lookup"
	Message string
	Details string
	Hint    string
	Err     error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var (
		cliErr  *CLIError
		list    dispatch.ErrorList
		dispErr *dispatch.DispatchError
	)
	switch {
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case errors.As(err, &list):
		for _, e := range list {
			writeDiagnostic(w, "", nil, e, useColor)
		}
	case errors.As(err, &dispErr):
		writeDiagnostic(w, "", nil, dispErr, useColor)
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// writeDiagnostic prints one failure as
//
//	[source:line:col: ]location: operator.method: reason: message
//
// The source position is added when doc knows where the node starts.
func writeDiagnostic(w io.Writer, source string, doc *document.Document, err *dispatch.DispatchError, useColor bool) {
	var b strings.Builder
	if pos, ok := doc.Position(err.Location); ok {
		prefix := pos.String() + ": "
		if source != "" {
			prefix = source + ":" + prefix
		}
		b.WriteString(Colorize(prefix, ColorGray, useColor))
	}
	b.WriteString(Colorize(err.Location.String(), ColorCyan, useColor))
	b.WriteString(": ")
	b.WriteString(err.Name())
	b.WriteString(": ")
	b.WriteString(Colorize(err.Reason.String(), ColorRed, useColor))
	b.WriteString(": ")
	b.WriteString(err.Message)
	if err.Suggestion != "" {
		b.WriteString(" ")
		b.WriteString(Colorize(fmt.Sprintf("(did you mean %s?)", err.Suggestion), ColorYellow, useColor))
	}
	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}
