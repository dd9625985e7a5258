package model

import (
	"encoding/json"
	"time"
)

// DateLayout 日历日期格式（数据库与CSV中统一使用）
const DateLayout = "2006-01-02"

// InitialStatus 新建漏洞的初始状态
const InitialStatus = "New"

// Weakness CWE弱点
type Weakness struct {
	ID   string `json:"cwe_id" db:"cwe_id"`
	Name string `json:"name" db:"name"`
}

// Vulnerability CVE漏洞信息，可选字段一律用指针表示"缺失"
type Vulnerability struct {
	ID          string     `json:"cve_id" db:"cve_id"`
	Summary     string     `json:"summary" db:"summary"`
	Description *string    `json:"description,omitempty" db:"description"`
	Published   *time.Time `json:"published,omitempty" db:"published"`
	Modified    *time.Time `json:"modified,omitempty" db:"modified"`
	Severity    *string    `json:"severity,omitempty" db:"severity"`
	CVSSVersion *string    `json:"cvss_version,omitempty" db:"cvss_version"`
	CVSSScore   *float64   `json:"cvss_score,omitempty" db:"cvss_score"`
	CVSSVector  *string    `json:"cvss_vector,omitempty" db:"cvss_vector"`
	CWEID       *string    `json:"cwe_id,omitempty" db:"cwe_id"`
	Source      *string    `json:"source,omitempty" db:"source"`
	Status      string     `json:"status" db:"status"`
}

// Vendor 厂商
type Vendor struct {
	ID   int64  `json:"vendor_id" db:"vendor_id"`
	Name string `json:"name" db:"name"`
}

// Product 产品，(vendor_id, name) 唯一
type Product struct {
	ID       int64  `json:"product_id" db:"product_id"`
	VendorID int64  `json:"vendor_id" db:"vendor_id"`
	Name     string `json:"name" db:"name"`
}

// VersionRange 受影响版本范围，缺失的边界表示不限
type VersionRange struct {
	Min        *string `json:"version_min,omitempty" db:"version_min"`
	Max        *string `json:"version_max,omitempty" db:"version_max"`
	IncludeMin bool    `json:"include_min" db:"include_min"`
	IncludeMax bool    `json:"include_max" db:"include_max"`
}

// Affected 漏洞与产品的关联
type Affected struct {
	CVEID     string `json:"cve_id" db:"cve_id"`
	ProductID int64  `json:"product_id" db:"product_id"`
	VersionRange
}

// AffectedProduct 带厂商/产品名称的关联，用于展示
type AffectedProduct struct {
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
	VersionRange
}

// Reference 参考链接，(cve_id, url) 唯一
type Reference struct {
	ID     int64   `json:"ref_id,omitempty" db:"ref_id"`
	CVEID  string  `json:"cve_id" db:"cve_id"`
	URL    string  `json:"url" db:"url"`
	Source *string `json:"source,omitempty" db:"source"`
	Tags   *string `json:"tags,omitempty" db:"tags"`
}

// StatusHistory 状态变更记录（只追加）
type StatusHistory struct {
	ID        int64     `json:"id" db:"id"`
	CVEID     string    `json:"cve_id" db:"cve_id"`
	Status    string    `json:"status" db:"status"`
	Note      *string   `json:"note,omitempty" db:"note"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
}

// RawRecord 摄取时保存的原始数据
type RawRecord struct {
	ID         int64           `json:"id" db:"id"`
	CVEID      string          `json:"cve_id" db:"cve_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	IngestedAt time.Time       `json:"ingested_at" db:"ingested_at"`
}

// VulnerabilityDetail show命令使用的完整视图
type VulnerabilityDetail struct {
	Vulnerability
	Weakness   *Weakness         `json:"weakness,omitempty"`
	References []Reference       `json:"references"`
	Affected   []AffectedProduct `json:"affected"`
	History    []StatusHistory   `json:"history"`
	RawCount   int               `json:"raw_records"`
}

// FormatDate 缺失的日期返回空字符串
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// DateOf 丢弃时间部分，保留日历日期
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
