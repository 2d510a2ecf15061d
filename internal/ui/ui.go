// Package ui renders styled terminal output for the CLI layer.
//
// Rendering is line-oriented: upload plans, run summaries, and history
// listings come back as plain strings colored with [lipgloss] styles, ready
// to be written to stdout.
package ui

import (
	"fmt"
	"strings"
	"time"

	"ibup/internal/models"
	"ibup/internal/tasks"
)

// Title renders s as a section heading
func Title(s string) string { return styles.title.Render(s) }

// OK renders s as a success line
func OK(s string) string { return styles.ok.Render(s) }

// Err renders s as a failure line
func Err(s string) string { return styles.err.Render(s) }

// Warn renders s as a warning line
func Warn(s string) string { return styles.warn.Render(s) }

// Help renders s as dim helper text
func Help(s string) string { return styles.help.Render(s) }

// RenderPlan renders the pre-upload listing shown before the confirm prompt.
//
// Every discovered file appears once, flagged as an upload or a duplicate skip.
func RenderPlan(plan *tasks.Plan) string {
	var b strings.Builder

	b.WriteString(Title("Upload plan"))
	b.WriteString("\n")

	for _, candidate := range plan.Uploads {
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.ok.Render("upload"), candidate.Path))
	}
	for _, candidate := range plan.Skipped {
		b.WriteString(fmt.Sprintf("  %s %s\n", styles.warn.Render("skip  "), candidate.Path))
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d files: %d to upload, %d duplicates\n",
		len(plan.Candidates), len(plan.Uploads), len(plan.Skipped)))

	return b.String()
}

// RenderSummary renders the closing report of an upload run.
func RenderSummary(result *tasks.RunResult) string {
	var b strings.Builder

	b.WriteString(Title("Upload complete"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s %d uploaded\n", styles.ok.Render("✓"), result.Uploaded))
	b.WriteString(fmt.Sprintf("  %s %d skipped\n", styles.warn.Render("-"), result.Skipped))

	if result.Failed > 0 {
		b.WriteString(fmt.Sprintf("  %s %d failed\n", styles.err.Render("✗"), result.Failed))
		for _, outcome := range result.Outcomes {
			if outcome.Result != models.DispositionFailed {
				continue
			}
			b.WriteString(fmt.Sprintf("    %s: %v\n", outcome.Candidate.Path, outcome.Err))
		}
	}

	b.WriteString(Help(fmt.Sprintf("finished in %s", result.Elapsed.Round(10*time.Millisecond))))
	b.WriteString("\n")

	return b.String()
}

// RenderHistory renders history rows newest first, one line per row.
func RenderHistory(rows []*models.PersistedUpload) string {
	if len(rows) == 0 {
		return Help("history is empty") + "\n"
	}

	var b strings.Builder
	for _, row := range rows {
		status := styles.warn.Render(string(row.Status()))
		switch row.Status() {
		case models.DispositionUploaded:
			status = styles.ok.Render(string(row.Status()))
		case models.DispositionFailed:
			status = styles.err.Render(string(row.Status()))
		}

		line := fmt.Sprintf("%s  %-8s  %s", row.CreatedAt().Format("2006-01-02 15:04"), status, row.Path())
		if row.Detail() != "" {
			line += "  " + Help(row.Detail())
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
