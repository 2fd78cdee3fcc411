// package formatter renders seeding results as reports (CSV, Markdown, plain text, JSON) and terminal summaries
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/church-latin/internal/models"
	"github.com/julianstephens/church-latin/internal/seeder"
	"github.com/julianstephens/church-latin/internal/shared"
)

// Format names a report format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "md"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists the accepted values of --format.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat maps a flag value (or a report file extension) to a [Format].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "text", "txt":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Render encodes results in the given format.
func Render(results []*seeder.Result, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return ResultsToText(results)
	case FormatMarkdown:
		return ResultsToMarkdown(results)
	case FormatCSV:
		return ResultsToCSV(results)
	case FormatJSON:
		return ResultsToJSON(results)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ResultsToCSV writes one row per seeder with columns: Seeder, Collection, Added, Updated, Skipped, Errors, Elapsed, DryRun, Reset
func ResultsToCSV(results []*seeder.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Seeder", "Collection", "Added", "Updated", "Skipped", "Errors", "Elapsed", "DryRun", "Reset"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range results {
		record := []string{
			r.Seeder,
			r.Collection,
			strconv.Itoa(r.Added),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(len(r.Errors)),
			formatElapsed(r.Elapsed),
			strconv.FormatBool(r.DryRun),
			strconv.FormatBool(r.Reset),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ResultsToMarkdown renders a summary table followed by an errors section per seeder that had any.
func ResultsToMarkdown(results []*seeder.Result) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Seed Report\n\n")
	if mode := runMode(results); mode != "" {
		buf.WriteString(fmt.Sprintf("**Mode**: %s\n\n", mode))
	}

	buf.WriteString("| Seeder | Collection | Added | Updated | Skipped | Errors | Elapsed |\n")
	buf.WriteString("| --- | --- | ---: | ---: | ---: | ---: | ---: |\n")
	for _, r := range results {
		buf.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %s |\n",
			r.Seeder, r.Collection, r.Added, r.Updated, r.Skipped, len(r.Errors), formatElapsed(r.Elapsed)))
	}

	for _, r := range results {
		if r.OK() {
			continue
		}
		buf.WriteString(fmt.Sprintf("\n## %s errors\n\n", r.Seeder))
		for _, e := range r.Errors {
			buf.WriteString(fmt.Sprintf("- `%s`: %s\n", e.Record, e.Message))
		}
	}

	return buf.Bytes(), nil
}

// ResultsToText renders results in plain text format
func ResultsToText(results []*seeder.Result) ([]byte, error) {
	var buf bytes.Buffer

	for i, r := range results {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("Seeder: %s (%s)\n", r.Seeder, r.Collection))
		buf.WriteString(fmt.Sprintf("Added: %d  Updated: %d  Skipped: %d  Errors: %d\n",
			r.Added, r.Updated, r.Skipped, len(r.Errors)))
		buf.WriteString(fmt.Sprintf("Elapsed: %s\n", formatElapsed(r.Elapsed)))
		for _, e := range r.Errors {
			buf.WriteString(fmt.Sprintf("  - %s: %s\n", e.Record, e.Message))
		}
	}

	return buf.Bytes(), nil
}

// ResultsToJSON renders results as an indented JSON array
func ResultsToJSON(results []*seeder.Result) ([]byte, error) {
	if results == nil {
		results = []*seeder.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteReport renders results and writes them to path, creating parent directories.
//
// When f is empty the format is taken from the file extension.
func WriteReport(results []*seeder.Result, path string, f Format) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: report path", shared.ErrMissingArgument)
	}
	if f == "" {
		parsed, err := ParseFormat(filepath.Ext(path))
		if err != nil {
			return "", err
		}
		f = parsed
	}

	data, err := Render(results, f)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// Summary renders the styled end-of-run summary for the terminal.
func Summary(results []*seeder.Result) string {
	var b strings.Builder

	title := "Seed summary"
	if mode := runMode(results); mode != "" {
		title += " (" + mode + ")"
	}
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")

	added, updated, skipped, errs := 0, 0, 0, 0
	for _, r := range results {
		added += r.Added
		updated += r.Updated
		skipped += r.Skipped
		errs += len(r.Errors)

		status := styles.ok.Render("ok")
		if !r.OK() {
			status = styles.err.Render(fmt.Sprintf("%d %s", len(r.Errors), shared.Pluralize(len(r.Errors), "error")))
		}
		line := fmt.Sprintf("%-8s added %d, updated %d, skipped %d", r.Seeder, r.Added, r.Updated, r.Skipped)
		b.WriteString(fmt.Sprintf("  %s  %s %s\n", line, status, styles.muted.Render(formatElapsed(r.Elapsed))))
	}

	totals := fmt.Sprintf("Total: %d added, %d updated, %d skipped", added, updated, skipped)
	if errs > 0 {
		b.WriteString(styles.warn.Render(totals) + "  " + styles.err.Render(fmt.Sprintf("%d %s", errs, shared.Pluralize(errs, "error"))))
	} else {
		b.WriteString(styles.ok.Render(totals))
	}
	b.WriteString("\n")

	return styles.panel.Render(b.String())
}

// ErrorList renders every per-record error, grouped by seeder, for the terminal.
func ErrorList(results []*seeder.Result) string {
	var b strings.Builder
	for _, r := range results {
		for _, e := range r.Errors {
			b.WriteString(fmt.Sprintf("%s %s %s\n", styles.err.Render("✗"), styles.muted.Render(r.Seeder+"/"+e.Record), e.Message))
		}
	}
	return b.String()
}

// ChecksToText renders offline fixture validation results in plain text format
func ChecksToText(checks []*seeder.CheckResult) string {
	var b strings.Builder
	for _, c := range checks {
		status := styles.ok.Render("valid")
		if len(c.Errors) > 0 {
			status = styles.err.Render("invalid")
		}
		b.WriteString(fmt.Sprintf("%s %s: %d/%d records valid (%s)\n", status, c.Seeder, c.Valid, c.Total, c.Fixture))
		for _, e := range c.Errors {
			b.WriteString(fmt.Sprintf("  - %s: %s\n", e.Record, e.Message))
		}
	}
	return b.String()
}

// RunsToText renders the local run history, newest first, one line per run
func RunsToText(runs []*models.SeedRun) string {
	if len(runs) == 0 {
		return "No seed runs recorded.\n"
	}

	var b strings.Builder
	for _, r := range runs {
		flags := []string{}
		if r.DryRun {
			flags = append(flags, "dry-run")
		}
		if r.Reset {
			flags = append(flags, "reset")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ", ") + "]"
		}
		b.WriteString(fmt.Sprintf("#%d %s %-8s +%d ~%d =%d !%d %s%s\n",
			r.Sequence,
			r.StartedAt.Local().Format(time.DateTime),
			r.Seeder,
			r.Added, r.Updated, r.Skipped, r.ErrorCount,
			formatElapsed(r.Elapsed),
			suffix,
		))
	}
	return b.String()
}

func runMode(results []*seeder.Result) string {
	var parts []string
	for _, r := range results {
		if r.DryRun {
			parts = append(parts, "dry run")
			break
		}
	}
	for _, r := range results {
		if r.Reset {
			parts = append(parts, "reset")
			break
		}
	}
	return strings.Join(parts, ", ")
}

func formatElapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
