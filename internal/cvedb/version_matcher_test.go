package cvedb

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CVECatalog/internal/model"
)

func versionRange(min, max string, includeMin, includeMax bool) model.VersionRange {
	rng := model.VersionRange{IncludeMin: includeMin, IncludeMax: includeMax}
	if min != "" {
		rng.Min = lo.ToPtr(min)
	}
	if max != "" {
		rng.Max = lo.ToPtr(max)
	}
	return rng
}

func TestVersionMatcher_InRange(t *testing.T) {
	vm := NewVersionMatcher(newTestDB(t))

	testCases := []struct {
		name    string
		version string
		rng     model.VersionRange
		want    bool
	}{
		{name: "unbounded", version: "0.0.1", rng: model.VersionRange{}, want: true},
		{name: "inside half-open range", version: "2.14.1", rng: versionRange("2.0", "2.15.0", true, false), want: true},
		{name: "inclusive min boundary", version: "2.0", rng: versionRange("2.0", "2.15.0", true, false), want: true},
		{name: "exclusive min boundary", version: "2.0", rng: versionRange("2.0", "2.15.0", false, false), want: false},
		{name: "exclusive max boundary", version: "2.15.0", rng: versionRange("2.0", "2.15.0", true, false), want: false},
		{name: "inclusive max boundary", version: "2.15.0", rng: versionRange("2.0", "2.15.0", true, true), want: true},
		{name: "below min", version: "1.9.9", rng: versionRange("2.0", "", true, false), want: false},
		{name: "above max", version: "2.17.1", rng: versionRange("", "2.15.0", false, false), want: false},
		{name: "numeric not lexical", version: "2.10.0", rng: versionRange("2.9.0", "", true, false), want: true},
		{name: "prerelease sorts before release", version: "2.15.0-rc1", rng: versionRange("", "2.15.0", false, false), want: true},
		{name: "prefixed version", version: "v2.3", rng: versionRange("2.0", "3.0", true, false), want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, vm.InRange(tc.version, tc.rng))
		})
	}
}

func TestValidateRange(t *testing.T) {
	testCases := []struct {
		name      string
		rng       model.VersionRange
		wantField string
	}{
		{name: "no bounds", rng: model.VersionRange{}},
		{name: "valid bounds", rng: versionRange("1.0", "2.0", true, false)},
		{name: "equal bounds", rng: versionRange("1.0", "1.0", true, true)},
		{name: "min greater than max", rng: versionRange("3.0", "2.0", true, false), wantField: "min"},
		{name: "unparseable min", rng: versionRange("latest", "", true, false), wantField: "min"},
		{name: "unparseable max", rng: versionRange("", "n/a", true, false), wantField: "max"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange(tc.rng)
			if tc.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestLookupCVEsByVersion(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.InsertSample(ctx))

	require.NoError(t, db.LinkAffected(ctx, "CVE-2024-12345", "Acme", "ExampleCMS", versionRange("1.0", "1.4.2", true, false)))
	require.NoError(t, db.LinkAffected(ctx, "CVE-2025-00001", "Acme", "ExampleCMS", versionRange("1.2", "", true, false)))

	vm := NewVersionMatcher(db)

	matches, err := vm.LookupCVEsByVersion(ctx, "acme", "examplecms", "1.3")
	require.NoError(t, err)
	// 按评分降序
	assert.Equal(t, []string{"CVE-2025-00001", "CVE-2024-12345"},
		lo.Map(matches, func(m AffectedMatch, _ int) string { return m.CVEID }))
	assert.Equal(t, "Acme", matches[0].Product.Vendor)
	assert.Equal(t, "ExampleCMS", matches[0].Product.Product)

	matches, err = vm.LookupCVEsByVersion(ctx, "Acme", "ExampleCMS", "1.4.2")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CVE-2025-00001", matches[0].CVEID)

	matches, err = vm.LookupCVEsByVersion(ctx, "Acme", "ExampleCMS", "0.9")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = vm.LookupCVEsByVersion(ctx, "Initech", "ExampleCMS", "1.3")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = vm.LookupCVEsByVersion(ctx, "Acme", "ExampleCMS", "")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "version", verr.Field)
}
