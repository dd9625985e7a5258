package cli

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CVECatalog/internal/model"
)

func TestFilterOptions_Filter(t *testing.T) {
	opts := FilterOptions{
		Keyword:   " xss ",
		Severity:  "high",
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
		Limit:     10,
		Offset:    5,
	}

	filter, err := opts.Filter(true)
	require.NoError(t, err)
	assert.Equal(t, lo.ToPtr(" xss "), filter.Keyword)
	assert.Equal(t, lo.ToPtr(model.SeverityHigh), filter.Severity)
	assert.Equal(t, lo.ToPtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), filter.StartDate)
	assert.Equal(t, lo.ToPtr(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)), filter.EndDate)
	assert.True(t, filter.Paginate)
	assert.Equal(t, 10, filter.Limit)
	assert.Equal(t, 5, filter.Offset)
}

func TestFilterOptions_EmptyMeansNoFilter(t *testing.T) {
	filter, err := (&FilterOptions{}).Filter(false)
	require.NoError(t, err)
	assert.Nil(t, filter.Keyword)
	assert.Nil(t, filter.Severity)
	assert.Nil(t, filter.StartDate)
	assert.Nil(t, filter.EndDate)
	assert.False(t, filter.Paginate)
}

func TestFilterOptions_WhitespaceKeywordIsKept(t *testing.T) {
	filter, err := (&FilterOptions{Keyword: "   "}).Filter(false)
	require.NoError(t, err)
	assert.Equal(t, lo.ToPtr("   "), filter.Keyword)
}

func TestFilterOptions_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		opts  FilterOptions
		field string
	}{
		{name: "severity", opts: FilterOptions{Severity: "urgent"}, field: "severity"},
		{name: "start date", opts: FilterOptions{StartDate: "2024/01/01"}, field: "start-date"},
		{name: "end date", opts: FilterOptions{EndDate: "tomorrow"}, field: "end-date"},
		{name: "negative limit", opts: FilterOptions{Limit: -1}, field: "limit"},
		{name: "negative offset", opts: FilterOptions{Limit: 1, Offset: -1}, field: "offset"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.opts.Filter(true)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRangeOptions_Range(t *testing.T) {
	rng := (&RangeOptions{Min: " 2.0 ", Max: "", IncludeMin: true}).Range()
	assert.Equal(t, model.VersionRange{Min: lo.ToPtr("2.0"), IncludeMin: true}, rng)
}
