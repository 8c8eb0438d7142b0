package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a problem report with optional suggestions and follow-up commands
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	Help        []string
	NoColor     bool
}

func (m Message) colors() (header, body *color.Color, symbol string) {
	switch m.Level {
	case LevelWarning:
		header, body, symbol = color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case LevelInfo:
		header, body, symbol = color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		header, body, symbol = color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
	if m.NoColor {
		header.DisableColor()
		body.DisableColor()
	}
	return header, body, symbol
}

// Format renders the message.
//
// Example output:
//
//	❌ UNKNOWN TYPE: integr
//	   No conversion target named 'integr'.
//
//	   Did you mean: int, int8, uint?
//
//	   → List targets: rowmap convert --help
func (m Message) Format() string {
	var b strings.Builder
	header, body, symbol := m.colors()

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	if m.Detail != "" {
		body.Fprintf(&b, "   %s\n", m.Detail)
	}

	if len(m.Suggestions) > 0 {
		hint := color.New(color.FgYellow)
		if m.NoColor {
			hint.DisableColor()
		}
		b.WriteString("\n")
		hint.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.Help) > 0 {
		arrow := color.New(color.FgCyan)
		if m.NoColor {
			arrow.DisableColor()
		}
		b.WriteString("\n")
		for _, cmd := range m.Help {
			arrow.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// Write writes the formatted message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// UnknownTypeError reports a conversion target that does not exist
func UnknownTypeError(name string, known []string, noColor bool) Message {
	return Message{
		Context:     "unknown type",
		Problem:     name,
		Detail:      fmt.Sprintf("No conversion target named '%s'.", name),
		Suggestions: Suggest(name, known),
		Help:        []string{"List targets: rowmap convert --help"},
		NoColor:     noColor,
	}
}

// ConfigError reports an unusable configuration
func ConfigError(err error, noColor bool) Message {
	return Message{
		Context: "configuration error",
		Problem: err.Error(),
		Help: []string{
			"View config: cat rowmap.yml",
			"Override the database: DATABASE_URL=... rowmap describe <table>",
		},
		NoColor: noColor,
	}
}

// DatabaseError reports a failure talking to the configured database
func DatabaseError(err error, noColor bool) Message {
	return Message{
		Context: "database error",
		Problem: err.Error(),
		Help:    []string{"Check database.url and database.driver in rowmap.yml"},
		NoColor: noColor,
	}
}

// Warning creates a warning message
func Warning(problem string, noColor bool) Message {
	return Message{Level: LevelWarning, Problem: problem, NoColor: noColor}
}
