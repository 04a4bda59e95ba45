package observability

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/provisioning"
	"github.com/jonathan/career-atoms/internal/types"
)

func TestPrintImportResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintImportResult(&types.ImportResult{
		Success:            true,
		JobsImported:       3,
		JobsCreated:        2,
		HighlightsImported: 5,
		HighlightsCreated:  5,
		ProfileImported:    true,
	})
	output := buf.String()

	assert.Contains(t, output, "IMPORT COMPLETE")
	assert.Contains(t, output, "3 imported (2 new)")
	assert.Contains(t, output, "5 imported (5 new)")
	assert.Contains(t, output, "Profile:    imported")
	assert.NotContains(t, output, "errors:")
}

func TestPrintImportResult_TruncatesErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.ImportResult{}
	for i := range 8 {
		result.Errors = append(result.Errors, types.ImportError{
			Kind: types.ImportErrorHighlight, Slug: fmt.Sprintf("h%d", i), Message: "failed",
		})
	}
	p.PrintImportResult(result)
	output := buf.String()

	assert.Contains(t, output, "FINISHED WITH ERRORS")
	assert.Contains(t, output, "8 errors:")
	assert.Contains(t, output, "highlight h0: failed")
	assert.NotContains(t, output, "highlight h5: failed")
	assert.Contains(t, output, "... and 3 more")
}

func TestPrintImportResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintImportResult(nil)
	assert.Empty(t, buf.String())
}

func TestPrintMigration(t *testing.T) {
	tests := []struct {
		name string
		snap migration.Snapshot
		want []string
	}{
		{
			name: "migrated",
			snap: migration.Snapshot{
				State:   migration.StateDone,
				Outcome: migration.OutcomeMigrated,
				Result:  &types.ImportResult{Success: true, JobsImported: 2, HighlightsImported: 4},
			},
			want: []string{"done", "migrated", "Jobs: 2  Highlights: 4  Errors: 0"},
		},
		{
			name: "remote not empty",
			snap: migration.Snapshot{State: migration.StateDone, Outcome: migration.OutcomeRemoteNotEmpty},
			want: []string{"local data was kept"},
		},
		{
			name: "error",
			snap: migration.Snapshot{State: migration.StateError, Message: "migration failed while provisioning"},
			want: []string{"error", "migration failed while provisioning"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintMigration(tt.snap)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestPrintProvisioning(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProvisioning("github|1", nil)
	assert.Contains(t, buf.String(), "none")

	buf.Reset()
	p.PrintProvisioning("github|1", &provisioning.Record{
		PrincipalID: "github|1", StoreRef: "atoms_abc", Status: provisioning.StatusReady,
	})
	assert.Contains(t, buf.String(), "ready")
	assert.Contains(t, buf.String(), "atoms_abc")
}

func TestPrintClearResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintClearResult(types.ClearResult{JobsDeleted: 2, HighlightsDeleted: 7})
	assert.Contains(t, buf.String(), "Jobs deleted:       2")
	assert.Contains(t, buf.String(), "Highlights deleted: 7")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	long := bytes.Repeat([]byte("x"), 200)
	p.printBox("TITLE", string(long))
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), string(long))
}

func TestNewLogger(t *testing.T) {
	for _, verbose := range []bool{true, false} {
		logger, err := NewLogger(verbose)
		require.NoError(t, err)
		assert.Equal(t, verbose, logger.Core().Enabled(zapcore.DebugLevel))
	}
}
