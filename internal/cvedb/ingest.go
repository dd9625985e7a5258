package cvedb

import (
	"context"

	"golang.org/x/xerrors"

	"CVECatalog/internal/utils"
)

// Fetcher 按ID获取单条feed记录
type Fetcher interface {
	FetchCVE(ctx context.Context, cveID string) (*FetchResult, error)
}

// Ingestor 获取 -> 归一化 -> 写入
type Ingestor struct {
	fetcher Fetcher
	db      *CVEDatabase
	logger  *utils.Logger
}

func NewIngestor(fetcher Fetcher, db *CVEDatabase) *Ingestor {
	return &Ingestor{
		fetcher: fetcher,
		db:      db,
		logger:  utils.NewLogger("ingest"),
	}
}

// IngestResult 摄取结果
type IngestResult struct {
	Record NormalizedRecord
	UpsertResult
}

// Ingest 获取失败或记录不存在时直接返回，不写入任何数据
func (in *Ingestor) Ingest(ctx context.Context, cveID string, opts UpsertOptions) (*IngestResult, error) {
	logger := in.logger.WithField("cve", cveID)
	logger.Info("从NVD获取 %s ...", cveID)

	fetched, err := in.fetcher.FetchCVE(ctx, cveID)
	if err != nil {
		return nil, xerrors.Errorf("fetch %s: %w", cveID, err)
	}

	rec := Normalize(fetched.Vulnerability)
	rec.Raw = fetched.Raw
	if rec.Vulnerability.ID == "" {
		rec.Vulnerability.ID = cveID
		for i := range rec.References {
			rec.References[i].CVEID = cveID
		}
	}

	res, err := in.db.UpsertRecord(ctx, rec, opts)
	if err != nil {
		return nil, xerrors.Errorf("store %s: %w", cveID, err)
	}

	logger.Info("%s 写入完成 (新建: %v, 新增参考链接: %d)", rec.Vulnerability.ID, res.Created, res.ReferencesAdded)
	return &IngestResult{Record: rec, UpsertResult: res}, nil
}
