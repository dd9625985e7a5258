package cvedb

import (
	"context"
	"database/sql"
	"strings"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
	"CVECatalog/internal/utils"
)

// VersionMatcher 版本匹配器，按受影响版本范围查找CVE
type VersionMatcher struct {
	db     *sql.DB
	parser *utils.VersionParser
	logger *utils.Logger
}

func NewVersionMatcher(cd *CVEDatabase) *VersionMatcher {
	return &VersionMatcher{
		db:     cd.db,
		parser: utils.NewVersionParser(),
		logger: utils.NewLogger("version-matcher"),
	}
}

// AffectedMatch 命中的CVE以及命中的版本范围
type AffectedMatch struct {
	CVEID    string                `json:"cve_id"`
	Summary  string                `json:"summary"`
	Severity *string               `json:"severity,omitempty"`
	Score    *float64              `json:"cvss_score,omitempty"`
	Product  model.AffectedProduct `json:"product"`
}

// ValidateRange 边界必须能解析，且 min <= max
func ValidateRange(rng model.VersionRange) error {
	parser := utils.NewVersionParser()
	if rng.Min != nil {
		if _, err := parser.Parse(*rng.Min); err != nil {
			return &model.ValidationError{Field: "min", Value: *rng.Min, Reason: err.Error()}
		}
	}
	if rng.Max != nil {
		if _, err := parser.Parse(*rng.Max); err != nil {
			return &model.ValidationError{Field: "max", Value: *rng.Max, Reason: err.Error()}
		}
	}
	if rng.Min != nil && rng.Max != nil && parser.CompareVersions(*rng.Min, *rng.Max) > 0 {
		return &model.ValidationError{Field: "min", Value: *rng.Min, Reason: "must not be greater than --max " + *rng.Max}
	}
	return nil
}

// LookupCVEsByVersion 查找影响 vendor:product 指定版本的CVE
func (vm *VersionMatcher) LookupCVEsByVersion(ctx context.Context, vendor, product, version string) ([]AffectedMatch, error) {
	version = strings.TrimSpace(version)
	if _, err := vm.parser.Parse(version); err != nil {
		return nil, &model.ValidationError{Field: "version", Value: version, Reason: err.Error()}
	}

	vm.logger.Debug("精确查询CVE: %s:%s, 版本=%s", vendor, product, version)

	rows, err := vm.db.QueryContext(ctx, `
		SELECT c.cve_id, c.summary, c.severity, c.cvss_score,
			v.name, p.name, a.version_min, a.version_max, a.include_min, a.include_max
		FROM affected a
		JOIN cve     c ON c.cve_id = a.cve_id
		JOIN product p ON p.product_id = a.product_id
		JOIN vendor  v ON v.vendor_id = p.vendor_id
		WHERE LOWER(v.name) = LOWER(?) AND LOWER(p.name) = LOWER(?)
		ORDER BY c.cvss_score IS NULL, c.cvss_score DESC, c.cve_id`,
		strings.TrimSpace(vendor), strings.TrimSpace(product))
	if err != nil {
		return nil, xerrors.Errorf("failed to query affected CVEs: %w", err)
	}
	defer rows.Close()

	var matches []AffectedMatch
	for rows.Next() {
		var (
			m        AffectedMatch
			severity sql.NullString
			score    sql.NullFloat64
			min, max sql.NullString
		)
		if err := rows.Scan(&m.CVEID, &m.Summary, &severity, &score,
			&m.Product.Vendor, &m.Product.Product, &min, &max,
			&m.Product.IncludeMin, &m.Product.IncludeMax); err != nil {
			return nil, xerrors.Errorf("failed to scan affected CVE: %w", err)
		}
		m.Severity = nullString(severity)
		m.Score = nullFloat(score)
		m.Product.Min = nullString(min)
		m.Product.Max = nullString(max)

		if vm.InRange(version, m.Product.VersionRange) {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("affected CVE iteration failed: %w", err)
	}

	vm.logger.Debug("找到 %d 个匹配版本的CVE", len(matches))
	return matches, nil
}

// InRange 缺失的边界不限制；include 标志决定边界是否包含
func (vm *VersionMatcher) InRange(version string, rng model.VersionRange) bool {
	if rng.Min != nil {
		cmp := vm.parser.CompareVersions(version, *rng.Min)
		if cmp < 0 || (cmp == 0 && !rng.IncludeMin) {
			return false
		}
	}
	if rng.Max != nil {
		cmp := vm.parser.CompareVersions(version, *rng.Max)
		if cmp > 0 || (cmp == 0 && !rng.IncludeMax) {
			return false
		}
	}
	return true
}
