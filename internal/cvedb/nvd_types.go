package cvedb

import "encoding/json"

// NVDResponse NVD API 2.0 响应结构
type NVDResponse struct {
	ResultsPerPage  int               `json:"resultsPerPage"`
	StartIndex      int               `json:"startIndex"`
	TotalResults    int               `json:"totalResults"`
	Format          string            `json:"format,omitempty"`
	Version         string            `json:"version,omitempty"`
	Timestamp       string            `json:"timestamp,omitempty"`
	Vulnerabilities []json.RawMessage `json:"vulnerabilities"`
}

// NVDVulnerability 单条漏洞记录
type NVDVulnerability struct {
	CVE NVDCve `json:"cve"`
}

type NVDCve struct {
	ID               string         `json:"id"`
	SourceIdentifier string         `json:"sourceIdentifier,omitempty"`
	Published        string         `json:"published"`
	LastModified     string         `json:"lastModified"`
	VulnStatus       string         `json:"vulnStatus,omitempty"`
	Descriptions     []LangString   `json:"descriptions"`
	Metrics          Metrics        `json:"metrics"`
	Weaknesses       []NVDWeakness  `json:"weaknesses,omitempty"`
	References       []NVDReference `json:"references"`
}

type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type NVDWeakness struct {
	Source      string       `json:"source,omitempty"`
	Type        string       `json:"type,omitempty"`
	Description []LangString `json:"description"`
}

type NVDReference struct {
	URL    string   `json:"url"`
	Source string   `json:"source,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Metrics 按CVSS版本分组的评分
type Metrics struct {
	CvssMetricV31 []CvssMetric `json:"cvssMetricV31,omitempty"`
	CvssMetricV30 []CvssMetric `json:"cvssMetricV30,omitempty"`
	CvssMetricV2  []CvssMetric `json:"cvssMetricV2,omitempty"`
}

// CvssMetric v2/v3.0/v3.1 共用同一结构。
// v2 的 baseSeverity 在条目上，v3 的在 cvssData 里，所以两层都是可选的。
type CvssMetric struct {
	Source       string    `json:"source,omitempty"`
	Type         string    `json:"type,omitempty"`
	Version      *string   `json:"version,omitempty"`
	BaseSeverity *string   `json:"baseSeverity,omitempty"`
	BaseScore    *float64  `json:"baseScore,omitempty"`
	VectorString *string   `json:"vectorString,omitempty"`
	CvssData     *CvssData `json:"cvssData,omitempty"`
}

type CvssData struct {
	Version      *string  `json:"version,omitempty"`
	VectorString *string  `json:"vectorString,omitempty"`
	BaseScore    *float64 `json:"baseScore,omitempty"`
	BaseSeverity *string  `json:"baseSeverity,omitempty"`
}
