package cvedb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

// 每条CVE一行，受影响产品聚合为 "vendor:product, ..."，没有则为 "-"。
// 每个过滤条件在参数为NULL时不生效。
const searchQuery = `
SELECT
	c.cve_id, c.summary, c.severity, c.cvss_score, c.published, c.status,
	COALESCE((
		SELECT group_concat(pair, ', ' ORDER BY pair)
		FROM (
			SELECT DISTINCT v.name || ':' || p.name AS pair
			FROM affected a
			JOIN product p ON p.product_id = a.product_id
			JOIN vendor  v ON v.vendor_id = p.vendor_id
			WHERE a.cve_id = c.cve_id
		)
	), '-') AS products,
	c.cwe_id
FROM cve c
WHERE (:kw IS NULL OR ulower(c.summary) LIKE :kw ESCAPE '\' OR ulower(COALESCE(c.description, '')) LIKE :kw ESCAPE '\')
	AND (:sev IS NULL OR c.severity = :sev)
	AND (:start IS NULL OR c.published >= :start)
	AND (:end IS NULL OR c.published <= :end)
ORDER BY c.published IS NULL, c.published DESC, c.cvss_score IS NULL, c.cvss_score DESC, c.cve_id`

const paginationClause = `
LIMIT :limit OFFSET :offset`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// BuildSearchQuery 构造查询语句和命名参数。
// 分页只用于交互式查询，导出时返回全部结果。
func BuildSearchQuery(filter model.SearchFilter) (string, []interface{}) {
	var kw, sev, start, end interface{}

	if filter.Keyword != nil && *filter.Keyword != "" {
		kw = "%" + likeEscaper.Replace(strings.ToLower(*filter.Keyword)) + "%"
	}
	if filter.Severity != nil {
		sev = string(*filter.Severity)
	}
	if filter.StartDate != nil {
		start = filter.StartDate.Format(model.DateLayout)
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Format(model.DateLayout)
	}

	args := []interface{}{
		sql.Named("kw", kw),
		sql.Named("sev", sev),
		sql.Named("start", start),
		sql.Named("end", end),
	}

	query := searchQuery
	if filter.Paginate {
		query += paginationClause
		args = append(args, sql.Named("limit", filter.Limit), sql.Named("offset", filter.Offset))
	}

	return query, args
}

// Search 分页查询
func (cd *CVEDatabase) Search(ctx context.Context, filter model.SearchFilter) ([]model.SearchRow, error) {
	filter.Paginate = true
	return cd.runSearch(ctx, filter)
}

// Export 与Search相同的过滤条件，不分页
func (cd *CVEDatabase) Export(ctx context.Context, filter model.SearchFilter) ([]model.SearchRow, error) {
	filter.Paginate = false
	return cd.runSearch(ctx, filter)
}

func (cd *CVEDatabase) runSearch(ctx context.Context, filter model.SearchFilter) ([]model.SearchRow, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := BuildSearchQuery(filter)
	rows, err := cd.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []model.SearchRow
	for rows.Next() {
		var (
			r         model.SearchRow
			severity  sql.NullString
			score     sql.NullFloat64
			published sql.NullString
			cweID     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Summary, &severity, &score, &published, &r.Status, &r.Products, &cweID); err != nil {
			return nil, xerrors.Errorf("failed to scan search row: %w", err)
		}
		r.Severity = nullString(severity)
		r.CVSSScore = nullFloat(score)
		r.Published = nullDate(published)
		r.CWEID = nullString(cweID)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("search iteration failed: %w", err)
	}

	cd.logger.Debug("查询返回 %d 行", len(results))
	return results, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullDate(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(model.DateLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func dateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(model.DateLayout)
}
