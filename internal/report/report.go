// Package report renders the incident audit log as the plain-text report
// users download at the end of a playbook.
package report

import (
	"fmt"
	"strings"
	"time"
)

const (
	Title  = "INCIDENT RESPONSE REPORT"
	Footer = "End of Report"

	// DateLayout is ISO-8601 in UTC with millisecond precision.
	DateLayout = "2006-01-02T15:04:05.000Z"
)

var rule = strings.Repeat("=", 30)

// Render is a pure function of its arguments. Log lines are written in
// order, one per line, with no reordering or deduplication.
func Render(log []string, category string, now time.Time) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Date: %s\n", now.UTC().Format(DateLayout))
	fmt.Fprintf(&b, "Incident Type: %s\n\n", category)
	b.WriteString("Logs:\n")
	b.WriteString(strings.Join(log, "\n"))
	b.WriteString("\n\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(Footer)
	return b.String()
}

// FileName is unique per export millisecond.
func FileName(now time.Time) string {
	return fmt.Sprintf("incident_report_%d.txt", now.UnixMilli())
}
