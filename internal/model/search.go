package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Severity 严重性枚举
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var SeverityNames = []Severity{
	SeverityNone,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// ParseSeverity 不区分大小写
func ParseSeverity(s string) (Severity, error) {
	candidate := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if lo.Contains(SeverityNames, candidate) {
		return candidate, nil
	}
	return "", &ValidationError{
		Field:  "severity",
		Value:  s,
		Reason: "must be one of " + strings.Join(lo.Map(SeverityNames, func(s Severity, _ int) string { return string(s) }), ", "),
	}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// NormalizeCVEID 统一为大写并校验格式
func NormalizeCVEID(id string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	if !cveIDPattern.MatchString(normalized) {
		return "", &ValidationError{Field: "cve-id", Value: id, Reason: "expected CVE-YYYY-NNNN"}
	}
	return normalized, nil
}

// SearchFilter 查询条件，nil 表示不过滤
type SearchFilter struct {
	Keyword   *string
	Severity  *Severity
	StartDate *time.Time
	EndDate   *time.Time

	// 仅分页查询使用
	Paginate bool
	Limit    int
	Offset   int
}

// Validate 检查分页参数
func (f SearchFilter) Validate() error {
	if !f.Paginate {
		return nil
	}
	if f.Limit < 0 {
		return &ValidationError{Field: "limit", Value: f.Limit, Reason: "must be non-negative"}
	}
	if f.Offset < 0 {
		return &ValidationError{Field: "offset", Value: f.Offset, Reason: "must be non-negative"}
	}
	return nil
}

// SearchRow 查询结果的一行
type SearchRow struct {
	ID        string     `json:"cve_id"`
	Summary   string     `json:"summary"`
	Severity  *string    `json:"severity,omitempty"`
	CVSSScore *float64   `json:"cvss_score,omitempty"`
	Published *time.Time `json:"published,omitempty"`
	Status    string     `json:"status,omitempty"`
	Products  string     `json:"products"`
	CWEID     *string    `json:"cwe_id,omitempty"`
}
