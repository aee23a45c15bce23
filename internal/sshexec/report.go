package sshexec

import (
	"fmt"
	"strings"
	"time"
)

// Entry is one command's collected result.
type Entry struct {
	Name     string
	Command  string
	Output   string
	TimedOut bool
}

// Report is the raw payload handed downstream for formatting. The executor
// collects, it does not format.
type Report struct {
	Server      string
	GeneratedAt time.Time
	Entries     []Entry
}

// Render concatenates the entries into the structured text payload.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server report: %s\n", r.Server)
	for _, entry := range r.Entries {
		fmt.Fprintf(&b, "\n--- %s (%s) ---\n%s\n", entry.Name, entry.Command, entry.Output)
	}
	return strings.TrimSpace(b.String())
}
