package cvedb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

type fakeFetcher struct {
	result *FetchResult
	err    error
	calls  []string
}

func (f *fakeFetcher) FetchCVE(_ context.Context, cveID string) (*FetchResult, error) {
	f.calls = append(f.calls, cveID)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	raw := json.RawMessage(log4shellResponse)
	var resp NVDResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	var vuln NVDVulnerability
	require.NoError(t, json.Unmarshal(resp.Vulnerabilities[0], &vuln))

	fetcher := &fakeFetcher{result: &FetchResult{Vulnerability: vuln, Raw: resp.Vulnerabilities[0]}}
	ingestor := NewIngestor(fetcher, db)

	res, err := ingestor.Ingest(ctx, "CVE-2021-44228", UpsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CVE-2021-44228"}, fetcher.calls)
	assert.True(t, res.Created)
	// 同一URL只保留一条
	assert.Equal(t, 1, res.ReferencesTotal)
	assert.Equal(t, 1, res.ReferencesAdded)

	detail, err := db.Detail(ctx, "CVE-2021-44228")
	require.NoError(t, err)
	assert.Equal(t, "Apache Log4j2 JNDI features do not protect against attacker controlled LDAP.", detail.Summary)
	assert.Equal(t, "CRITICAL", *detail.Severity)
	assert.Equal(t, 10.0, *detail.CVSSScore)
	assert.Equal(t, "CWE-917", *detail.CWEID)
	require.Len(t, detail.References, 1)
	assert.Equal(t, "Vendor Advisory", *detail.References[0].Tags)
	assert.Equal(t, 1, detail.RawCount)

	res, err = ingestor.Ingest(ctx, "CVE-2021-44228", UpsertOptions{})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Zero(t, res.ReferencesAdded)
	assert.Equal(t, 1, countsByTable(t, db)["reference"])
}

func TestIngest_NotFound(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{err: xerrors.Errorf("CVE-2099-0001: %w", ErrNotFound)}

	_, err := NewIngestor(fetcher, db).Ingest(context.Background(), "CVE-2099-0001", UpsertOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	for table, count := range countsByTable(t, db) {
		assert.Zero(t, count, table)
	}
}

func TestIngest_FetchError(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{err: xerrors.New("connection refused")}

	_, err := NewIngestor(fetcher, db).Ingest(context.Background(), "CVE-2021-44228", UpsertOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Zero(t, countsByTable(t, db)["cve"])
}

func TestIngest_FillsMissingID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	fetcher := &fakeFetcher{result: &FetchResult{Vulnerability: NVDVulnerability{CVE: NVDCve{
		Descriptions: []LangString{{Lang: "en", Value: "id-less record"}},
		References:   []NVDReference{{URL: "https://a.example"}},
	}}}}

	res, err := NewIngestor(fetcher, db).Ingest(ctx, "CVE-2024-0042", UpsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, "CVE-2024-0042", res.Record.Vulnerability.ID)

	refs, err := db.References(ctx, "CVE-2024-0042")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}
