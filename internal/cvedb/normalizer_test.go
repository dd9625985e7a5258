package cvedb

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CVECatalog/internal/model"
)

func TestNormalize_Summary(t *testing.T) {
	testCases := []struct {
		name         string
		descriptions []LangString
		want         string
	}{
		{
			name: "english entry wins even when not first",
			descriptions: []LangString{
				{Lang: "fr", Value: "Exemple de vulnérabilité"},
				{Lang: "en", Value: "Example vulnerability"},
			},
			want: "Example vulnerability",
		},
		{
			name: "first english entry wins",
			descriptions: []LangString{
				{Lang: "en", Value: "first"},
				{Lang: "en", Value: "second"},
			},
			want: "first",
		},
		{
			name: "falls back to first entry",
			descriptions: []LangString{
				{Lang: "es", Value: "Ejemplo"},
				{Lang: "fr", Value: "Exemple"},
			},
			want: "Ejemplo",
		},
		{
			name: "empty list",
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001", Descriptions: tc.descriptions}})
			assert.Equal(t, tc.want, rec.Vulnerability.Summary)
			require.NotNil(t, rec.Vulnerability.Description)
			assert.Equal(t, tc.want, *rec.Vulnerability.Description)
		})
	}
}

func TestNormalize_Weakness(t *testing.T) {
	testCases := []struct {
		name       string
		weaknesses []NVDWeakness
		want       *string
	}{
		{
			name: "first CWE across entries in order",
			weaknesses: []NVDWeakness{
				{Description: []LangString{{Lang: "en", Value: "NVD-CWE-Other"}, {Lang: "en", Value: "CWE-79"}}},
				{Description: []LangString{{Lang: "en", Value: "CWE-89"}}},
			},
			want: lo.ToPtr("CWE-79"),
		},
		{
			name: "later entry when earlier has no CWE",
			weaknesses: []NVDWeakness{
				{Description: []LangString{{Lang: "en", Value: "NVD-CWE-noinfo"}}},
				{Description: []LangString{{Lang: "en", Value: "CWE-352"}, {Lang: "en", Value: "CWE-20"}}},
			},
			want: lo.ToPtr("CWE-352"),
		},
		{
			name: "prefix is case sensitive",
			weaknesses: []NVDWeakness{
				{Description: []LangString{{Lang: "en", Value: "cwe-79"}}},
			},
			want: nil,
		},
		{
			name: "no weaknesses",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001", Weaknesses: tc.weaknesses}})
			assert.Equal(t, tc.want, rec.Vulnerability.CWEID)
		})
	}
}

func TestNormalize_Dates(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{name: "utc suffix", input: "2024-06-10T15:15:10.123Z", want: lo.ToPtr(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))},
		{name: "utc suffix without fraction", input: "2025-02-05T23:59:59Z", want: lo.ToPtr(time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC))},
		{name: "nvd layout without zone", input: "2021-12-10T10:15:09.143", want: lo.ToPtr(time.Date(2021, 12, 10, 0, 0, 0, 0, time.UTC))},
		{name: "malformed", input: "10/06/2024", want: nil},
		{name: "missing", input: "", want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001", Published: tc.input, LastModified: tc.input}})
			assert.Equal(t, tc.want, rec.Vulnerability.Published)
			assert.Equal(t, tc.want, rec.Vulnerability.Modified)
		})
	}
}

func TestNormalize_CVSS(t *testing.T) {
	v31 := CvssMetric{CvssData: &CvssData{
		Version:      lo.ToPtr("3.1"),
		VectorString: lo.ToPtr("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
		BaseScore:    lo.ToPtr(9.8),
		BaseSeverity: lo.ToPtr("CRITICAL"),
	}}
	v30 := CvssMetric{CvssData: &CvssData{
		VectorString: lo.ToPtr("CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:U/C:N/I:L/A:N"),
		BaseScore:    lo.ToPtr(4.3),
		BaseSeverity: lo.ToPtr("MEDIUM"),
	}}
	v2 := CvssMetric{
		BaseSeverity: lo.ToPtr("MEDIUM"),
		CvssData: &CvssData{
			VectorString: lo.ToPtr("AV:N/AC:M/Au:N/C:N/I:P/A:N"),
			BaseScore:    lo.ToPtr(4.3),
		},
	}

	testCases := []struct {
		name    string
		metrics Metrics
		want    CVSS
	}{
		{
			name:    "v3.1 wins over every other group",
			metrics: Metrics{CvssMetricV2: []CvssMetric{v2}, CvssMetricV30: []CvssMetric{v30}, CvssMetricV31: []CvssMetric{v31}},
			want: CVSS{
				Version:  lo.ToPtr("3.1"),
				Severity: lo.ToPtr("CRITICAL"),
				Score:    lo.ToPtr(9.8),
				Vector:   lo.ToPtr("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
			},
		},
		{
			name:    "v3.0 when v3.1 is empty",
			metrics: Metrics{CvssMetricV31: []CvssMetric{}, CvssMetricV30: []CvssMetric{v30}, CvssMetricV2: []CvssMetric{v2}},
			want: CVSS{
				Version:  lo.ToPtr("3.0"),
				Severity: lo.ToPtr("MEDIUM"),
				Score:    lo.ToPtr(4.3),
				Vector:   lo.ToPtr("CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:U/C:N/I:L/A:N"),
			},
		},
		{
			name:    "v2 with entry level severity",
			metrics: Metrics{CvssMetricV2: []CvssMetric{v2}},
			want: CVSS{
				Version:  lo.ToPtr("2.0"),
				Severity: lo.ToPtr("MEDIUM"),
				Score:    lo.ToPtr(4.3),
				Vector:   lo.ToPtr("AV:N/AC:M/Au:N/C:N/I:P/A:N"),
			},
		},
		{
			name: "first entry of the chosen group",
			metrics: Metrics{CvssMetricV31: []CvssMetric{
				{CvssData: &CvssData{BaseScore: lo.ToPtr(7.5), BaseSeverity: lo.ToPtr("HIGH")}},
				v31,
			}},
			want: CVSS{
				Version:  lo.ToPtr("3.1"),
				Severity: lo.ToPtr("HIGH"),
				Score:    lo.ToPtr(7.5),
			},
		},
		{
			name: "entry fields preferred for version, severity and score, nested for vector",
			metrics: Metrics{CvssMetricV30: []CvssMetric{{
				Version:      lo.ToPtr("3.0-custom"),
				BaseSeverity: lo.ToPtr("LOW"),
				BaseScore:    lo.ToPtr(3.1),
				VectorString: lo.ToPtr("entry-vector"),
				CvssData: &CvssData{
					BaseSeverity: lo.ToPtr("HIGH"),
					BaseScore:    lo.ToPtr(8.8),
					VectorString: lo.ToPtr("nested-vector"),
				},
			}}},
			want: CVSS{
				Version:  lo.ToPtr("3.0-custom"),
				Severity: lo.ToPtr("LOW"),
				Score:    lo.ToPtr(3.1),
				Vector:   lo.ToPtr("nested-vector"),
			},
		},
		{
			name: "entry vector when nested data is missing",
			metrics: Metrics{CvssMetricV2: []CvssMetric{{
				BaseScore:    lo.ToPtr(5.0),
				VectorString: lo.ToPtr("AV:N/AC:L/Au:N/C:N/I:N/A:P"),
			}}},
			want: CVSS{
				Version: lo.ToPtr("2.0"),
				Score:   lo.ToPtr(5.0),
				Vector:  lo.ToPtr("AV:N/AC:L/Au:N/C:N/I:N/A:P"),
			},
		},
		{
			name:    "no metrics",
			metrics: Metrics{},
			want:    CVSS{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pickCVSS(tc.metrics))

			rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001", Metrics: tc.metrics}})
			assert.Equal(t, tc.want.Version, rec.Vulnerability.CVSSVersion)
			assert.Equal(t, tc.want.Severity, rec.Vulnerability.Severity)
			assert.Equal(t, tc.want.Score, rec.Vulnerability.CVSSScore)
			assert.Equal(t, tc.want.Vector, rec.Vulnerability.CVSSVector)
		})
	}
}

func TestNormalize_References(t *testing.T) {
	refs := []NVDReference{
		{URL: "  https://example.com/a  ", Tags: []string{"Vendor Advisory", "Patch"}},
		{URL: "https://example.com/b"},
		{URL: "https://example.com/a", Tags: []string{"Exploit"}},
		{URL: "   "},
		{URL: "https://example.com/A", Tags: []string{"Mitigation"}},
		{URL: "https://example.com/b", Tags: []string{"Third Party Advisory"}},
	}

	rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001", References: refs}})

	want := []model.Reference{
		{CVEID: "CVE-2024-0001", URL: "https://example.com/a", Source: lo.ToPtr(FeedSource), Tags: lo.ToPtr("Vendor Advisory,Patch")},
		{CVEID: "CVE-2024-0001", URL: "https://example.com/b", Source: lo.ToPtr(FeedSource)},
		{CVEID: "CVE-2024-0001", URL: "https://example.com/A", Source: lo.ToPtr(FeedSource), Tags: lo.ToPtr("Mitigation")},
	}
	assert.Equal(t, want, rec.References)
}

func TestNormalize_FixedFields(t *testing.T) {
	rec := Normalize(NVDVulnerability{CVE: NVDCve{ID: "CVE-2024-0001"}})

	assert.Equal(t, "CVE-2024-0001", rec.Vulnerability.ID)
	assert.Equal(t, lo.ToPtr(FeedSource), rec.Vulnerability.Source)
	assert.Equal(t, model.InitialStatus, rec.Vulnerability.Status)
	assert.Empty(t, rec.References)
}
