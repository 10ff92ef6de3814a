package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pfrederiksen/visa-bulletin/internal/archive"
	"github.com/pfrederiksen/visa-bulletin/internal/bulletin"
	"github.com/pfrederiksen/visa-bulletin/internal/digest"
	"github.com/pfrederiksen/visa-bulletin/internal/watcher"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// Result is anything a command prints
type Result interface {
	writeText(w io.Writer, verbose bool) error
}

// RunResult is the output of the default run
type RunResult struct {
	CheckedAt time.Time      `json:"checked_at"`
	DryRun    bool           `json:"dry_run"`
	Report    watcher.Report `json:"report"`
}

// CheckResult is the output of the check command
type CheckResult struct {
	CheckedAt    time.Time             `json:"checked_at"`
	Availability bulletin.Availability `json:"availability"`
	Links        []bulletin.PageLink   `json:"links"`
}

// LinksResult is the output of the links command
type LinksResult struct {
	URL   string              `json:"url"`
	Links []bulletin.PageLink `json:"links"`
}

// ParseResult is the output of the parse command
type ParseResult struct {
	Page bulletin.Page `json:"page"`
}

// HistoryResult is the output of the history command
type HistoryResult struct {
	Query   archive.Query         `json:"query"`
	History []bulletin.CutOffDate `json:"history"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result Result, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return result.writeText(w, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (r *RunResult) writeText(w io.Writer, verbose bool) error {
	report := r.Report
	if r.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was saved or mailed.")
	}
	fmt.Fprintf(w, "Next bulletin: %s\n", report.Availability)

	for _, p := range report.Saved {
		fmt.Fprintf(w, "SAVED: %s\n", p)
	}
	for _, p := range report.Notified {
		fmt.Fprintf(w, "SENT: %s\n", p)
	}
	for _, p := range report.Skipped {
		fmt.Fprintf(w, "SKIPPED: %s (already saved)\n", p)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "FAILED: %s: %s\n", describeLink(f.Link), f.Error)
	}

	if verbose {
		fmt.Fprintf(w, "\nRun ID: %s\n", report.RunID)
		for _, link := range report.Links {
			fmt.Fprintf(w, "  %s\n", describeLink(link))
		}
	}

	if len(report.Saved)+len(report.Skipped)+len(report.Failed) == 0 {
		fmt.Fprintln(w, "No bulletins to process.")
	}
	return nil
}

func (r *CheckResult) writeText(w io.Writer, verbose bool) error {
	switch r.Availability {
	case bulletin.NextAvailable:
		fmt.Fprintln(w, "Next month's bulletin is available.")
	case bulletin.NextPending:
		fmt.Fprintln(w, "Next month's bulletin is not available yet.")
	default:
		fmt.Fprintln(w, "Could not determine whether next month's bulletin is available.")
	}

	if verbose {
		for _, link := range r.Links {
			fmt.Fprintf(w, "  %s\n", describeLink(link))
		}
	}
	return nil
}

func (r *LinksResult) writeText(w io.Writer, verbose bool) error {
	if len(r.Links) == 0 {
		fmt.Fprintln(w, "No bulletin links found.")
		return nil
	}
	for _, link := range r.Links {
		fmt.Fprintln(w, describeLink(link))
	}
	if verbose {
		fmt.Fprintf(w, "\nIndex: %s\n", r.URL)
	}
	fmt.Fprintf(w, "\nTotal: %d links\n", len(r.Links))
	return nil
}

func (r *ParseResult) writeText(w io.Writer, verbose bool) error {
	title := r.Page.Period.String()
	if title == "" {
		title = "(unknown period)"
	}
	fmt.Fprintf(w, "%s\n", title)
	if verbose {
		fmt.Fprintf(w, "URL: %s\n", r.Page.URL)
	}
	fmt.Fprintln(w)

	if err := writeDates(w, r.Page.CutOffDates); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d cut-off dates\n", len(r.Page.CutOffDates))
	return nil
}

func (r *HistoryResult) writeText(w io.Writer, _ bool) error {
	if len(r.History) == 0 {
		fmt.Fprintf(w, "No history for %s.\n", r.Query.VisaType)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Bulletin\tDate Type\tVisa Area\tVisa Date")
	for _, d := range r.History {
		period := bulletin.Period{Year: d.Year, Month: d.Month}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", period, digest.Label(string(d.DateType)), d.VisaArea, d.VisaDate)
	}
	return tw.Flush()
}

func writeDates(w io.Writer, dates []bulletin.CutOffDate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(digest.Columns, "\t"))
	for _, d := range dates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			digest.Label(string(d.Sponsorship)),
			digest.Label(string(d.DateType)),
			d.VisaType, d.VisaArea, d.VisaDate)
	}
	return tw.Flush()
}

func describeLink(link bulletin.PageLink) string {
	period := link.Period().String()
	if period == "" {
		period = "(no date)"
	}
	target := link.URL
	if target == "" {
		target = "(not published)"
	}
	return fmt.Sprintf("%s %s: %s", strings.ToUpper(string(link.Type)), period, target)
}
