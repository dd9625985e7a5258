package cvedb

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

// GetVulnerability 按ID读取一条CVE
func (cd *CVEDatabase) GetVulnerability(ctx context.Context, cveID string) (*model.Vulnerability, error) {
	var v model.Vulnerability
	var description, published, modified sql.NullString
	var severity, version, vector, cweID, source sql.NullString
	var score sql.NullFloat64
	err := cd.db.QueryRowContext(ctx, `
		SELECT cve_id, summary, description, published, modified, severity,
			cvss_version, cvss_score, cvss_vector, cwe_id, source, status
		FROM cve WHERE cve_id = ?`, cveID,
	).Scan(&v.ID, &v.Summary, &description, &published, &modified, &severity,
		&version, &score, &vector, &cweID, &source, &v.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.Errorf("%s: %w", cveID, ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", cveID, err)
	}

	v.Description = nullString(description)
	v.Published = nullDate(published)
	v.Modified = nullDate(modified)
	v.Severity = nullString(severity)
	v.CVSSVersion = nullString(version)
	v.CVSSScore = nullFloat(score)
	v.CVSSVector = nullString(vector)
	v.CWEID = nullString(cweID)
	v.Source = nullString(source)
	return &v, nil
}

// References 返回某个CVE的参考链接，按插入顺序
func (cd *CVEDatabase) References(ctx context.Context, cveID string) ([]model.Reference, error) {
	rows, err := cd.db.QueryContext(ctx, `
		SELECT ref_id, cve_id, url, source, tags
		FROM reference WHERE cve_id = ? ORDER BY ref_id`, cveID)
	if err != nil {
		return nil, xerrors.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var refs []model.Reference
	for rows.Next() {
		var r model.Reference
		var source, tags sql.NullString
		if err := rows.Scan(&r.ID, &r.CVEID, &r.URL, &source, &tags); err != nil {
			return nil, xerrors.Errorf("failed to scan reference: %w", err)
		}
		r.Source = nullString(source)
		r.Tags = nullString(tags)
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// Detail 汇总CVE、CWE、参考链接、受影响产品和状态历史
func (cd *CVEDatabase) Detail(ctx context.Context, cveID string) (*model.VulnerabilityDetail, error) {
	v, err := cd.GetVulnerability(ctx, cveID)
	if err != nil {
		return nil, err
	}
	detail := &model.VulnerabilityDetail{Vulnerability: *v}

	if v.CWEID != nil {
		var w model.Weakness
		err := cd.db.QueryRowContext(ctx, `SELECT cwe_id, name FROM cwe WHERE cwe_id = ?`, *v.CWEID).Scan(&w.ID, &w.Name)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.Errorf("failed to read %s: %w", *v.CWEID, err)
		}
		if err == nil {
			detail.Weakness = &w
		}
	}

	if detail.References, err = cd.References(ctx, cveID); err != nil {
		return nil, err
	}
	if detail.Affected, err = cd.AffectedProducts(ctx, cveID); err != nil {
		return nil, err
	}
	if detail.History, err = cd.History(ctx, cveID); err != nil {
		return nil, err
	}
	if err := cd.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_nvd WHERE cve_id = ?`, cveID).Scan(&detail.RawCount); err != nil {
		return nil, xerrors.Errorf("failed to count raw records: %w", err)
	}
	return detail, nil
}

// RawRecords 返回某个CVE的原始摄取数据，最新的在前
func (cd *CVEDatabase) RawRecords(ctx context.Context, cveID string) ([]model.RawRecord, error) {
	rows, err := cd.db.QueryContext(ctx, `
		SELECT id, cve_id, payload, ingested_at
		FROM raw_nvd WHERE cve_id = ? ORDER BY id DESC`, cveID)
	if err != nil {
		return nil, xerrors.Errorf("failed to query raw records: %w", err)
	}
	defer rows.Close()

	var records []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		var payload string
		if err := rows.Scan(&r.ID, &r.CVEID, &payload, &r.IngestedAt); err != nil {
			return nil, xerrors.Errorf("failed to scan raw record: %w", err)
		}
		r.Payload = []byte(payload)
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteVulnerability 删除CVE，参考链接、关联、历史和原始数据级联删除
func (cd *CVEDatabase) DeleteVulnerability(ctx context.Context, cveID string) error {
	res, err := cd.db.ExecContext(ctx, `DELETE FROM cve WHERE cve_id = ?`, cveID)
	if err != nil {
		return xerrors.Errorf("failed to delete %s: %w", cveID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return xerrors.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return xerrors.Errorf("%s: %w", cveID, ErrNotFound)
	}
	cd.logger.Info("已删除 %s", cveID)
	return nil
}
