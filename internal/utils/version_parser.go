package utils

import (
	"regexp"
	"strings"

	version "github.com/hashicorp/go-version"
	"golang.org/x/xerrors"
)

var versionCore = regexp.MustCompile(`\d+(\.\d+)*([-+~][0-9A-Za-z.\-+~]*)?`)

// VersionParser 版本号解析器
type VersionParser struct{}

func NewVersionParser() *VersionParser {
	return &VersionParser{}
}

// NormalizeVersion 标准化版本号
func (vp *VersionParser) NormalizeVersion(v string) string {
	// 移除多余的空格和前缀
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "version")
	v = strings.TrimPrefix(v, "Version")
	v = strings.TrimSpace(v)

	if match := versionCore.FindString(v); match != "" {
		return match
	}

	return v
}

// Parse 标准化后交给go-version解析
func (vp *VersionParser) Parse(v string) (*version.Version, error) {
	normalized := vp.NormalizeVersion(v)
	if normalized == "" {
		return nil, xerrors.New("empty version")
	}
	parsed, err := version.NewVersion(normalized)
	if err != nil {
		return nil, xerrors.Errorf("unable to parse version %q: %w", v, err)
	}
	return parsed, nil
}

// CompareVersions 比较版本号，无法解析时退化为字符串比较
func (vp *VersionParser) CompareVersions(v1, v2 string) int {
	a, errA := vp.Parse(v1)
	b, errB := vp.Parse(v2)
	if errA != nil || errB != nil {
		return strings.Compare(v1, v2)
	}
	return a.Compare(b)
}
