package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"CVECatalog/internal/cvedb"
	"CVECatalog/internal/model"
)

// CSVHeader 导出文件的列顺序
var CSVHeader = []string{"cve_id", "summary", "severity", "cvss_score", "published", "status", "products", "cwe_id"}

var severityColor = map[string]func(a ...interface{}) string{
	string(model.SeverityNone):     color.New(color.FgCyan).SprintFunc(),
	string(model.SeverityLow):      color.New(color.FgBlue).SprintFunc(),
	string(model.SeverityMedium):   color.New(color.FgYellow).SprintFunc(),
	string(model.SeverityHigh):     color.New(color.FgHiRed).SprintFunc(),
	string(model.SeverityCritical): color.New(color.FgRed).SprintFunc(),
}

type OutputFormatter struct {
	format string
	out    io.Writer
}

func NewOutputFormatter(format string, out io.Writer) *OutputFormatter {
	return &OutputFormatter{format: strings.ToLower(format), out: out}
}

// PrintRows 输出查询结果
func (of *OutputFormatter) PrintRows(rows []model.SearchRow) error {
	if of.format == "json" {
		return of.printJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(of.out, "❌ 没有匹配的CVE")
		return nil
	}

	var builder strings.Builder
	for _, r := range rows {
		builder.WriteString(fmt.Sprintf("%s | %s | CVSS %s | %s | %s\n",
			r.ID, colorizeSeverity(r.Severity), formatScore(r.CVSSScore), orDash(model.FormatDate(r.Published)), r.Products))
		builder.WriteString(fmt.Sprintf("  %s\n", r.Summary))
		builder.WriteString(fmt.Sprintf("  CWE: %s\n\n", orDash(lo.FromPtr(r.CWEID))))
	}
	_, err := io.WriteString(of.out, builder.String())
	return err
}

// PrintDetail 输出单个CVE的完整信息
func (of *OutputFormatter) PrintDetail(d *model.VulnerabilityDetail) error {
	if of.format == "json" {
		return of.printJSON(d)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("\n%s  [%s]\n", color.New(color.Bold).Sprint(d.ID), d.Status))
	builder.WriteString(strings.Repeat("═", 60) + "\n")

	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "摘要:\t%s\n", d.Summary)
	if d.Description != nil && *d.Description != d.Summary {
		fmt.Fprintf(w, "描述:\t%s\n", *d.Description)
	}
	fmt.Fprintf(w, "严重性:\t%s\n", colorizeSeverity(d.Severity))
	fmt.Fprintf(w, "CVSS:\t%s (v%s)\n", formatScore(d.CVSSScore), orDash(lo.FromPtr(d.CVSSVersion)))
	fmt.Fprintf(w, "向量:\t%s\n", orDash(lo.FromPtr(d.CVSSVector)))
	fmt.Fprintf(w, "发布:\t%s\n", orDash(model.FormatDate(d.Published)))
	fmt.Fprintf(w, "修改:\t%s\n", orDash(model.FormatDate(d.Modified)))
	if d.Weakness != nil {
		fmt.Fprintf(w, "CWE:\t%s (%s)\n", d.Weakness.ID, d.Weakness.Name)
	} else {
		fmt.Fprintf(w, "CWE:\t-\n")
	}
	fmt.Fprintf(w, "来源:\t%s\n", orDash(lo.FromPtr(d.Source)))
	fmt.Fprintf(w, "原始记录:\t%d\n", d.RawCount)
	w.Flush()

	builder.WriteString("\n🔗 参考链接:\n")
	if len(d.References) == 0 {
		builder.WriteString("  -\n")
	}
	for _, ref := range d.References {
		builder.WriteString(fmt.Sprintf("  %s", ref.URL))
		if ref.Tags != nil {
			builder.WriteString(fmt.Sprintf(" [%s]", *ref.Tags))
		}
		builder.WriteString("\n")
	}

	builder.WriteString("\n📦 受影响产品:\n")
	if len(d.Affected) == 0 {
		builder.WriteString("  -\n")
	}
	for _, ap := range d.Affected {
		builder.WriteString(fmt.Sprintf("  %s:%s %s\n", ap.Vendor, ap.Product, FormatRange(ap.VersionRange)))
	}

	builder.WriteString("\n📝 状态历史:\n")
	if len(d.History) == 0 {
		builder.WriteString("  -\n")
	}
	for _, h := range d.History {
		builder.WriteString(fmt.Sprintf("  %s  %s", h.ChangedAt.Format("2006-01-02 15:04:05"), h.Status))
		if h.Note != nil {
			builder.WriteString(fmt.Sprintf("  (%s)", *h.Note))
		}
		builder.WriteString("\n")
	}

	_, err := io.WriteString(of.out, builder.String())
	return err
}

// PrintMatches 输出 affected-by 的结果
func (of *OutputFormatter) PrintMatches(matches []cvedb.AffectedMatch) error {
	if of.format == "json" {
		return of.printJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(of.out, "✅ 没有已知CVE影响该版本")
		return nil
	}

	w := tabwriter.NewWriter(of.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CVE\t严重性\tCVSS\t版本范围\t摘要")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			m.CVEID, colorizeSeverity(m.Severity), formatScore(m.Score), FormatRange(m.Product.VersionRange), m.Summary)
	}
	return w.Flush()
}

// PrintCounts 输出各表行数
func (of *OutputFormatter) PrintCounts(counts []cvedb.TableCount) error {
	if of.format == "json" {
		return of.printJSON(counts)
	}
	w := tabwriter.NewWriter(of.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "表\t行数")
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Table, c.Count)
	}
	return w.Flush()
}

func (of *OutputFormatter) printJSON(v interface{}) error {
	enc := json.NewEncoder(of.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV 表头加每行一条记录，缺失的值写空单元格
func WriteCSV(w io.Writer, rows []model.SearchRow) error {
	writer := csv.NewWriter(w)

	// 写入表头
	if err := writer.Write(CSVHeader); err != nil {
		return xerrors.Errorf("failed to write CSV header: %w", err)
	}

	// 写入数据
	for _, r := range rows {
		score := ""
		if r.CVSSScore != nil {
			score = strconv.FormatFloat(*r.CVSSScore, 'f', -1, 64)
		}
		if err := writer.Write([]string{
			r.ID,
			r.Summary,
			lo.FromPtr(r.Severity),
			score,
			model.FormatDate(r.Published),
			r.Status,
			r.Products,
			lo.FromPtr(r.CWEID),
		}); err != nil {
			return xerrors.Errorf("failed to write CSV row %s: %w", r.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportCSV 写入CSV文件
func ExportCSV(path string, rows []model.SearchRow) error {
	f, err := os.Create(path)
	if err != nil {
		return xerrors.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return xerrors.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// FormatRange 例如 [1.0, 2.0)
func FormatRange(rng model.VersionRange) string {
	if rng.Min == nil && rng.Max == nil {
		return "(所有版本)"
	}
	left, right := "(", ")"
	if rng.Min != nil && rng.IncludeMin {
		left = "["
	}
	if rng.Max != nil && rng.IncludeMax {
		right = "]"
	}
	return fmt.Sprintf("%s%s, %s%s", left, lo.FromPtrOr(rng.Min, "*"), lo.FromPtrOr(rng.Max, "*"), right)
}

func colorizeSeverity(severity *string) string {
	if severity == nil {
		return "-"
	}
	if fn, ok := severityColor[*severity]; ok {
		return fn(*severity)
	}
	return *severity
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

