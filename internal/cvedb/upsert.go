package cvedb

import (
	"context"
	"database/sql"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

const resetStatusNote = "status reset on re-ingestion"

// UpsertOptions 控制重复摄取时的行为
type UpsertOptions struct {
	// ResetStatus 重新摄取已存在的CVE时把状态重置为初始值（默认保留现有状态）
	ResetStatus bool
}

// UpsertResult 一次摄取的结果
type UpsertResult struct {
	Created         bool
	StatusReset     bool
	ReferencesAdded int
	ReferencesTotal int
}

// UpsertRecord 在一个事务中写入CWE、CVE、参考链接和原始数据
func (cd *CVEDatabase) UpsertRecord(ctx context.Context, rec NormalizedRecord, opts UpsertOptions) (UpsertResult, error) {
	result := UpsertResult{ReferencesTotal: len(rec.References)}
	v := rec.Vulnerability

	err := cd.withTx(ctx, func(tx *sql.Tx) error {
		if v.CWEID != nil {
			// feed不提供CWE名称，用ID占位
			if err := upsertWeakness(ctx, tx, model.Weakness{ID: *v.CWEID, Name: *v.CWEID}); err != nil {
				return err
			}
		}

		exists, err := cveExists(ctx, tx, v.ID)
		if err != nil {
			return err
		}
		result.Created = !exists

		if err := upsertVulnerability(ctx, tx, v); err != nil {
			return err
		}

		if exists && opts.ResetStatus {
			if err := appendStatus(ctx, tx, v.ID, model.InitialStatus, resetStatusNote); err != nil {
				return err
			}
			result.StatusReset = true
		}

		for _, ref := range rec.References {
			added, err := insertReference(ctx, tx, ref)
			if err != nil {
				return err
			}
			if added {
				result.ReferencesAdded++
			}
		}

		if len(rec.Raw) > 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO raw_nvd (cve_id, payload) VALUES (?, ?)`,
				v.ID, string(rec.Raw),
			); err != nil {
				return xerrors.Errorf("failed to store raw record for %s: %w", v.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	cd.logger.Debug("写入 %s: 新建=%v, 新增参考链接 %d/%d", v.ID, result.Created, result.ReferencesAdded, result.ReferencesTotal)
	return result, nil
}

func upsertWeakness(ctx context.Context, q querier, w model.Weakness) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cwe (cwe_id, name) VALUES (?, ?)
		ON CONFLICT (cwe_id) DO UPDATE SET name = excluded.name`,
		w.ID, w.Name,
	)
	if err != nil {
		return xerrors.Errorf("failed to upsert %s: %w", w.ID, err)
	}
	return nil
}

// 不能用 INSERT OR REPLACE：它会先删除旧行，从而级联删除参考链接和历史记录。
// 冲突时不更新status，状态只通过显式操作改变。
func upsertVulnerability(ctx context.Context, q querier, v model.Vulnerability) error {
	status := v.Status
	if status == "" {
		status = model.InitialStatus
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO cve
		(cve_id, summary, description, published, modified, severity,
		 cvss_version, cvss_score, cvss_vector, cwe_id, source, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (cve_id) DO UPDATE SET
			summary = excluded.summary,
			description = excluded.description,
			published = excluded.published,
			modified = excluded.modified,
			severity = excluded.severity,
			cvss_version = excluded.cvss_version,
			cvss_score = excluded.cvss_score,
			cvss_vector = excluded.cvss_vector,
			cwe_id = excluded.cwe_id,
			source = excluded.source`,
		v.ID, v.Summary, v.Description, dateArg(v.Published), dateArg(v.Modified), v.Severity,
		v.CVSSVersion, v.CVSSScore, v.CVSSVector, v.CWEID, v.Source, status,
	)
	if err != nil {
		return xerrors.Errorf("failed to upsert %s: %w", v.ID, err)
	}
	return nil
}

// insertReference 依赖 (cve_id, url) 唯一约束跳过重复，而不是先查后插
func insertReference(ctx context.Context, q querier, ref model.Reference) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO reference (cve_id, url, source, tags) VALUES (?, ?, ?, ?)
		ON CONFLICT (cve_id, url) DO NOTHING`,
		ref.CVEID, ref.URL, ref.Source, ref.Tags,
	)
	if err != nil {
		return false, xerrors.Errorf("failed to insert reference %s: %w", ref.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, xerrors.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
