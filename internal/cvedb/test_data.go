package cvedb

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

type sampleAffected struct {
	cveID   string
	vendor  string
	product string
}

// 演示数据
var (
	sampleWeaknesses = []model.Weakness{
		{ID: "CWE-79", Name: "Cross-site Scripting"},
		{ID: "CWE-89", Name: "SQL Injection"},
	}

	sampleCVEs = []model.Vulnerability{
		{
			ID:          "CVE-2024-12345",
			Summary:     "ExampleCMS XSS in comments",
			Description: lo.ToPtr("Reflected XSS allows script injection."),
			Published:   lo.ToPtr(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)),
			Modified:    lo.ToPtr(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)),
			Severity:    lo.ToPtr("HIGH"),
			CVSSVersion: lo.ToPtr("3.1"),
			CVSSScore:   lo.ToPtr(7.4),
			CVSSVector:  lo.ToPtr("CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:U/C:H/I:H/A:N"),
			CWEID:       lo.ToPtr("CWE-79"),
			Source:      lo.ToPtr("InternalTest"),
			Status:      "New",
		},
		{
			ID:          "CVE-2025-00001",
			Summary:     "ShopMaster SQL Injection in product filter",
			Description: lo.ToPtr("Improper neutralization of special elements in SQL commands."),
			Published:   lo.ToPtr(time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)),
			Modified:    lo.ToPtr(time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)),
			Severity:    lo.ToPtr("CRITICAL"),
			CVSSVersion: lo.ToPtr("3.1"),
			CVSSScore:   lo.ToPtr(9.1),
			CVSSVector:  lo.ToPtr("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"),
			CWEID:       lo.ToPtr("CWE-89"),
			Source:      lo.ToPtr("ResearchLab"),
			Status:      "Investigating",
		},
	}

	sampleLinks = []sampleAffected{
		{cveID: "CVE-2024-12345", vendor: "Acme", product: "ExampleCMS"},
		{cveID: "CVE-2025-00001", vendor: "Globex", product: "ShopMaster"},
	}

	sampleReferences = []model.Reference{
		{CVEID: "CVE-2024-12345", URL: "https://example.com/advisories/2024-12345", Source: lo.ToPtr("vendor"), Tags: lo.ToPtr("advisory")},
		{CVEID: "CVE-2025-00001", URL: "https://researchlab.example/poc", Source: lo.ToPtr("research"), Tags: lo.ToPtr("poc,exploit")},
	}
)

// InsertSample 写入演示数据，已存在的行保持不变
func (cd *CVEDatabase) InsertSample(ctx context.Context) error {
	cd.logger.Info("初始化演示CVE数据...")

	added := 0
	err := cd.withTx(ctx, func(tx *sql.Tx) error {
		for _, w := range sampleWeaknesses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cwe (cwe_id, name) VALUES (?, ?) ON CONFLICT (cwe_id) DO NOTHING`,
				w.ID, w.Name,
			); err != nil {
				return xerrors.Errorf("failed to insert %s: %w", w.ID, err)
			}
		}

		for _, v := range sampleCVEs {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO cve
				(cve_id, summary, description, published, modified, severity,
				 cvss_version, cvss_score, cvss_vector, cwe_id, source, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (cve_id) DO NOTHING`,
				v.ID, v.Summary, v.Description, dateArg(v.Published), dateArg(v.Modified), v.Severity,
				v.CVSSVersion, v.CVSSScore, v.CVSSVector, v.CWEID, v.Source, v.Status,
			)
			if err != nil {
				return xerrors.Errorf("failed to insert %s: %w", v.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
				cd.logger.Debug("插入CVE: %s", v.ID)
			}
		}

		for _, l := range sampleLinks {
			vendorID, err := ensureVendor(ctx, tx, l.vendor)
			if err != nil {
				return err
			}
			productID, err := ensureProduct(ctx, tx, vendorID, l.product)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO affected (cve_id, product_id) VALUES (?, ?) ON CONFLICT (cve_id, product_id) DO NOTHING`,
				l.cveID, productID,
			); err != nil {
				return xerrors.Errorf("failed to link %s: %w", l.cveID, err)
			}
		}

		for _, ref := range sampleReferences {
			if _, err := insertReference(ctx, tx, ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cd.logger.Info("演示数据初始化完成，新增 %d 个CVE记录", added)
	return nil
}
