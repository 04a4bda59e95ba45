package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", WithClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_SchemaIsReentrant(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, ApplySchema(context.Background(), s.db, s.logger))
	require.NoError(t, ApplySchema(context.Background(), s.db, s.logger))
}

func TestJobs_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	job, err := s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Nil(t, job.EndDate)

	updated, err := s.UpdateJob(ctx, job.ID, types.JobInput{
		Company: "Acme", Role: "Senior Engineer", StartDate: "2020-01-01", EndDate: types.StringPtr("2022-06-30"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", updated.Role)
	require.NotNil(t, updated.EndDate)
	assert.Equal(t, "2022-06-30", *updated.EndDate)
	assert.Equal(t, job.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(job.UpdatedAt))

	_, err = s.UpdateJob(ctx, uuid.New(), types.JobInput{Company: "X", Role: "Y", StartDate: "2020-01-01"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01", EndDate: types.StringPtr("2019-01-01")})
	var inputErr *store.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestGetJobs_OrderAndCounts(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	later, err := s.CreateJob(ctx, types.JobInput{Company: "Globex", Role: "Lead", StartDate: "2022-01-01"})
	require.NoError(t, err)
	_, err = s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01"})
	require.NoError(t, err)

	_, err = s.CreateHighlight(ctx, types.HighlightInput{
		JobID: &later.ID, Type: types.HighlightProject, Title: "Platform", Content: "Built it", StartDate: "2022-02-01",
	})
	require.NoError(t, err)

	jobs, err := s.GetJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Equal(t, 0, jobs[0].HighlightCount)
	assert.Equal(t, "Globex", jobs[1].Company)
	assert.Equal(t, 1, jobs[1].HighlightCount)
}

func TestDeleteJob_UnlinksHighlights(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	job, err := s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01"})
	require.NoError(t, err)
	h, err := s.CreateHighlight(ctx, types.HighlightInput{
		JobID: &job.ID, Type: types.HighlightAchievement, Title: "Shipped X", Content: "Shipped X", StartDate: "2020-02-01",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteJob(ctx, job.ID))

	got, err := s.GetHighlight(ctx, h.ID)
	require.NoError(t, err)
	assert.Nil(t, got.JobID)

	assert.ErrorIs(t, s.DeleteJob(ctx, job.ID), store.ErrNotFound)
}

func TestHighlights_FiltersAndLists(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	job, err := s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01"})
	require.NoError(t, err)

	_, err = s.CreateHighlight(ctx, types.HighlightInput{
		JobID: &job.ID, Type: types.HighlightAchievement, Title: "Cut costs", Content: "Cut cloud costs",
		StartDate: "2020-03-01", Skills: []string{"aws"},
		Metrics: []types.Metric{{Label: "Savings", Value: 30, Unit: "%"}},
	})
	require.NoError(t, err)
	_, err = s.CreateHighlight(ctx, types.HighlightInput{
		Type: types.HighlightCourse, Title: "Distributed Systems", Content: "Course", StartDate: "2019-09-01", IsHidden: true,
	})
	require.NoError(t, err)

	all, err := s.GetHighlights(ctx, store.HighlightFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Distributed Systems", all[0].Title)
	assert.Equal(t, []string{}, all[0].Skills)
	assert.Equal(t, []types.Metric{{Label: "Savings", Value: 30, Unit: "%"}}, all[1].Metrics)

	byJob, err := s.GetHighlights(ctx, store.HighlightFilters{JobID: &job.ID})
	require.NoError(t, err)
	require.Len(t, byJob, 1)
	assert.Equal(t, "Cut costs", byJob[0].Title)

	hidden := true
	hiddenOnly, err := s.GetHighlights(ctx, store.HighlightFilters{IsHidden: &hidden})
	require.NoError(t, err)
	require.Len(t, hiddenOnly, 1)

	courses, err := s.GetHighlights(ctx, store.HighlightFilters{Type: types.HighlightCourse})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestUpsertJob_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	job := types.Job{
		ID: uuid.New(), Company: "Acme", Role: "Engineer", StartDate: "2020-01-01",
		CreatedAt: created, UpdatedAt: created,
	}

	isNew, err := s.UpsertJob(ctx, job)
	require.NoError(t, err)
	assert.True(t, isNew)

	job.Role = "Staff Engineer"
	job.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	isNew, err = s.UpsertJob(ctx, job)
	require.NoError(t, err)
	assert.False(t, isNew)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", got.Role)
	assert.True(t, got.CreatedAt.Equal(created), "created_at must not change on update")
	assert.True(t, got.UpdatedAt.After(created))
}

func TestUpsertHighlight_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	h := types.Highlight{
		ID: uuid.New(), Type: types.HighlightProject, Title: "Launch", Content: "Launched", StartDate: "2020-01-01",
	}
	isNew, err := s.UpsertHighlight(ctx, h)
	require.NoError(t, err)
	assert.True(t, isNew)

	h.Content = "Launched v2"
	isNew, err = s.UpsertHighlight(ctx, h)
	require.NoError(t, err)
	assert.False(t, isNew)

	all, err := s.GetHighlights(ctx, store.HighlightFilters{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Launched v2", all[0].Content)
}

func TestProfile_UpdateAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = s.UpdateProfile(ctx, types.ProfileInput{FullName: types.StringPtr("Ada Lovelace"), Email: types.StringPtr("ada@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	require.NotNil(t, p.Email)

	p, err = s.UpdateProfile(ctx, types.ProfileInput{Email: types.StringPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.Nil(t, p.Email)
}

func TestHasDataAndClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	has, err := s.HasData(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	// An unnamed profile does not count as data.
	require.NoError(t, s.UpsertProfile(ctx, types.Profile{}))
	has, err = s.HasData(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	job, err := s.CreateJob(ctx, types.JobInput{Company: "Acme", Role: "Engineer", StartDate: "2020-01-01"})
	require.NoError(t, err)
	_, err = s.CreateHighlight(ctx, types.HighlightInput{
		JobID: &job.ID, Type: types.HighlightAchievement, Title: "Shipped", Content: "Shipped", StartDate: "2020-02-01",
	})
	require.NoError(t, err)

	has, err = s.HasData(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	result, err := s.ClearDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ClearResult{JobsDeleted: 1, HighlightsDeleted: 1}, result)

	raw, err := s.ExportAllRawData(ctx)
	require.NoError(t, err)
	assert.True(t, raw.IsEmpty())
}
