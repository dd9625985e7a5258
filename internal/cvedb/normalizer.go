package cvedb

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"

	"CVECatalog/internal/model"
)

// FeedSource 来自NVD的记录和参考链接统一使用该来源标签
const FeedSource = "NVD"

const cwePrefix = "CWE-"

// NVD 实际返回的时间不一定带时区后缀
var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	model.DateLayout,
}

// NormalizedRecord 归一化后的一条记录
type NormalizedRecord struct {
	Vulnerability model.Vulnerability
	References    []model.Reference
	Raw           json.RawMessage
}

// CVSS 选中的评分
type CVSS struct {
	Version  *string
	Severity *string
	Score    *float64
	Vector   *string
}

// Normalize 将NVD记录转换为内部模型
func Normalize(vuln NVDVulnerability) NormalizedRecord {
	cve := vuln.CVE
	summary := englishSummary(cve.Descriptions)
	cvss := pickCVSS(cve.Metrics)

	v := model.Vulnerability{
		ID:          cve.ID,
		Summary:     summary,
		Description: lo.ToPtr(summary),
		Published:   parseFeedDate(cve.Published),
		Modified:    parseFeedDate(cve.LastModified),
		Severity:    cvss.Severity,
		CVSSVersion: cvss.Version,
		CVSSScore:   cvss.Score,
		CVSSVector:  cvss.Vector,
		CWEID:       firstCWE(cve.Weaknesses),
		Source:      lo.ToPtr(FeedSource),
		Status:      model.InitialStatus,
	}

	return NormalizedRecord{
		Vulnerability: v,
		References:    normalizeReferences(cve.ID, cve.References),
	}
}

// 优先英文描述，否则取第一条
func englishSummary(descriptions []LangString) string {
	if d, ok := lo.Find(descriptions, func(d LangString) bool { return d.Lang == "en" }); ok {
		return d.Value
	}
	if len(descriptions) > 0 {
		return descriptions[0].Value
	}
	return ""
}

// 按 weakness -> description 的顺序找第一个 CWE- 开头的值
func firstCWE(weaknesses []NVDWeakness) *string {
	for _, w := range weaknesses {
		for _, d := range w.Description {
			if strings.HasPrefix(d.Value, cwePrefix) {
				return lo.ToPtr(d.Value)
			}
		}
	}
	return nil
}

func parseFeedDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return lo.ToPtr(model.DateOf(t))
		}
	}
	return nil
}

// pickCVSS 优先级 v3.1 > v3.0 > v2.0，取该组第一条
func pickCVSS(m Metrics) CVSS {
	groups := []struct {
		version string
		entries []CvssMetric
	}{
		{"3.1", m.CvssMetricV31},
		{"3.0", m.CvssMetricV30},
		{"2.0", m.CvssMetricV2},
	}

	for _, g := range groups {
		if len(g.entries) == 0 {
			continue
		}
		entry := g.entries[0]
		data := entry.CvssData
		if data == nil {
			data = &CvssData{}
		}

		return CVSS{
			Version:  lo.ToPtr(lo.CoalesceOrEmpty(lo.FromPtr(entry.Version), g.version)),
			Severity: lo.CoalesceOrEmpty(entry.BaseSeverity, data.BaseSeverity),
			Score:    lo.CoalesceOrEmpty(entry.BaseScore, data.BaseScore),
			Vector:   lo.CoalesceOrEmpty(data.VectorString, entry.VectorString),
		}
	}

	return CVSS{}
}

// normalizeReferences 去空白、去空URL、按URL去重（保留第一次出现）
func normalizeReferences(cveID string, refs []NVDReference) []model.Reference {
	cleaned := lo.FilterMap(refs, func(r NVDReference, _ int) (model.Reference, bool) {
		u := strings.TrimSpace(r.URL)
		if u == "" {
			return model.Reference{}, false
		}
		ref := model.Reference{
			CVEID:  cveID,
			URL:    u,
			Source: lo.ToPtr(FeedSource),
		}
		if len(r.Tags) > 0 {
			ref.Tags = lo.ToPtr(strings.Join(r.Tags, ","))
		}
		return ref, true
	})

	return lo.UniqBy(cleaned, func(r model.Reference) string { return r.URL })
}
