package store

import (
	"errors"
	"testing"

	"github.com/jonathan/career-atoms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJobInput(t *testing.T) {
	t.Run("valid input is normalized", func(t *testing.T) {
		in := types.JobInput{
			Company:   "  Acme ",
			Role:      "Engineer",
			StartDate: "2020-01-01",
			EndDate:   types.StringPtr(""),
			Website:   types.StringPtr("https://acme.example"),
		}
		require.NoError(t, ValidateJobInput(&in))
		assert.Equal(t, "Acme", in.Company)
		assert.Nil(t, in.EndDate)
		assert.Nil(t, in.LogoURL)
	})

	t.Run("missing company", func(t *testing.T) {
		in := types.JobInput{Role: "Engineer", StartDate: "2020-01-01"}
		err := ValidateJobInput(&in)
		var inputErr *InputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "Company", inputErr.Field)
	})

	t.Run("bad date format", func(t *testing.T) {
		in := types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "01/02/2020"}
		assert.Error(t, ValidateJobInput(&in))
	})

	t.Run("end before start", func(t *testing.T) {
		in := types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01", EndDate: types.StringPtr("2019-12-31")}
		err := ValidateJobInput(&in)
		var inputErr *InputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "end_date", inputErr.Field)
	})

	t.Run("end equal to start is allowed", func(t *testing.T) {
		in := types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01", EndDate: types.StringPtr("2020-01-01")}
		assert.NoError(t, ValidateJobInput(&in))
	})
}

func TestValidateHighlightInput(t *testing.T) {
	t.Run("lists default to empty", func(t *testing.T) {
		in := types.HighlightInput{Type: types.HighlightProject, Title: "Built it", Content: "Details", StartDate: "2021-03-01"}
		require.NoError(t, ValidateHighlightInput(&in))
		assert.NotNil(t, in.Domains)
		assert.NotNil(t, in.Skills)
		assert.NotNil(t, in.Keywords)
		assert.NotNil(t, in.Metrics)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		in := types.HighlightInput{Type: "hobby", Title: "Built it", Content: "Details", StartDate: "2021-03-01"}
		assert.Error(t, ValidateHighlightInput(&in))
	})

	t.Run("metric needs a label", func(t *testing.T) {
		in := types.HighlightInput{
			Type: types.HighlightAchievement, Title: "Cut costs", Content: "Details", StartDate: "2021-03-01",
			Metrics: []types.Metric{{Value: 30, Unit: "%"}},
		}
		assert.Error(t, ValidateHighlightInput(&in))
	})
}
