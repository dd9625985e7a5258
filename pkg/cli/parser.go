package cli

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"CVECatalog/internal/model"
)

// FilterOptions search 与 export-csv 共用的过滤参数
type FilterOptions struct {
	Keyword   string
	Severity  string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

func (o *FilterOptions) bind(cmd *cobra.Command, paginate bool) {
	cmd.Flags().StringVar(&o.Keyword, "keyword", "", "按摘要或描述中的文本过滤（不区分大小写）")
	cmd.Flags().StringVar(&o.Severity, "severity", "", "严重性: NONE, LOW, MEDIUM, HIGH, CRITICAL")
	cmd.Flags().StringVar(&o.StartDate, "start-date", "", "YYYY-MM-DD（发布日期不早于）")
	cmd.Flags().StringVar(&o.EndDate, "end-date", "", "YYYY-MM-DD（发布日期不晚于）")
	if paginate {
		cmd.Flags().IntVar(&o.Limit, "limit", 25, "返回的最大行数")
		cmd.Flags().IntVar(&o.Offset, "offset", 0, "跳过的行数")
	}
}

// Filter 校验并转换为查询条件，任何非法输入都在访问数据库之前返回
func (o *FilterOptions) Filter(paginate bool) (model.SearchFilter, error) {
	filter := model.SearchFilter{
		Paginate: paginate,
		Limit:    o.Limit,
		Offset:   o.Offset,
	}

	// 关键字原样使用，空格也参与匹配
	if o.Keyword != "" {
		filter.Keyword = lo.ToPtr(o.Keyword)
	}
	if o.Severity != "" {
		sev, err := model.ParseSeverity(o.Severity)
		if err != nil {
			return model.SearchFilter{}, err
		}
		filter.Severity = &sev
	}
	if o.StartDate != "" {
		start, err := model.ParseDate("start-date", o.StartDate)
		if err != nil {
			return model.SearchFilter{}, err
		}
		filter.StartDate = &start
	}
	if o.EndDate != "" {
		end, err := model.ParseDate("end-date", o.EndDate)
		if err != nil {
			return model.SearchFilter{}, err
		}
		filter.EndDate = &end
	}

	if err := filter.Validate(); err != nil {
		return model.SearchFilter{}, err
	}
	return filter, nil
}

// RangeOptions link 命令的版本范围参数
type RangeOptions struct {
	Min        string
	Max        string
	IncludeMin bool
	IncludeMax bool
}

func (o *RangeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Min, "min", "", "最低受影响版本")
	cmd.Flags().StringVar(&o.Max, "max", "", "最高受影响版本")
	cmd.Flags().BoolVar(&o.IncludeMin, "include-min", true, "最低版本本身是否受影响")
	cmd.Flags().BoolVar(&o.IncludeMax, "include-max", false, "最高版本本身是否受影响")
}

func (o *RangeOptions) Range() model.VersionRange {
	rng := model.VersionRange{
		IncludeMin: o.IncludeMin,
		IncludeMax: o.IncludeMax,
	}
	if v := strings.TrimSpace(o.Min); v != "" {
		rng.Min = lo.ToPtr(v)
	}
	if v := strings.TrimSpace(o.Max); v != "" {
		rng.Max = lo.ToPtr(v)
	}
	return rng
}
