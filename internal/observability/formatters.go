// Package observability provides the process logger and formatted output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// PrintImportResult outputs the import counts and the first entries of the error ledger.
func (p *Printer) PrintImportResult(result *types.ImportResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Jobs:       %d imported (%d new)\n", result.JobsImported, result.JobsCreated))
	sb.WriteString(fmt.Sprintf("Highlights: %d imported (%d new)\n", result.HighlightsImported, result.HighlightsCreated))
	if result.ProfileImported {
		sb.WriteString("Profile:    imported\n")
	}

	if len(result.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d errors:\n", len(result.Errors)))
		count := min(len(result.Errors), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", result.Errors[i]))
		}
		if len(result.Errors) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.Errors)-maxItemsToShow))
		}
	}

	title := "✅ IMPORT COMPLETE"
	if !result.Success {
		title = "IMPORT FINISHED WITH ERRORS"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMigration outputs a migration snapshot.
func (p *Printer) PrintMigration(snap migration.Snapshot) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("State:   %s\n", snap.State))
	if snap.Outcome != "" {
		sb.WriteString(fmt.Sprintf("Outcome: %s\n", snap.Outcome))
	}
	switch snap.Outcome {
	case migration.OutcomeNothingToMigrate:
		sb.WriteString("\nThe local store is empty.\n")
	case migration.OutcomeRemoteNotEmpty:
		sb.WriteString("\nThe account already has data; local data was kept.\n")
	case migration.OutcomeMigrated:
		sb.WriteString("\nLocal data moved to the account and cleared locally.\n")
	}
	if snap.Message != "" {
		sb.WriteString(fmt.Sprintf("\n%s\n", snap.Message))
	}
	if snap.Result != nil {
		sb.WriteString(fmt.Sprintf("Jobs: %d  Highlights: %d  Errors: %d\n",
			snap.Result.JobsImported, snap.Result.HighlightsImported, len(snap.Result.Errors)))
	}
	p.printBox("MIGRATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProvisioning outputs a principal's ledger record. A nil record means the
// principal was never provisioned.
func (p *Printer) PrintProvisioning(principal string, rec *provisioning.Record) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Principal: %s\n", principal))
	if rec == nil {
		sb.WriteString(fmt.Sprintf("Status:    %s", provisioning.StatusNone))
		p.printBox("PROVISIONING", sb.String())
		return
	}
	sb.WriteString(fmt.Sprintf("Status:    %s\n", rec.Status))
	sb.WriteString(fmt.Sprintf("Store:     %s\n", rec.StoreRef))
	if rec.Message != "" {
		sb.WriteString(fmt.Sprintf("Message:   %s\n", rec.Message))
	}
	p.printBox("PROVISIONING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintClearResult outputs the number of rows removed by a clear.
func (p *Printer) PrintClearResult(result types.ClearResult) {
	p.printBox("STORE CLEARED", fmt.Sprintf("Jobs deleted:       %d\nHighlights deleted: %d",
		result.JobsDeleted, result.HighlightsDeleted))
}
