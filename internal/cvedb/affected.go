package cvedb

import (
	"context"
	"database/sql"
	"strings"

	"golang.org/x/xerrors"

	"CVECatalog/internal/model"
)

// ensureVendor 按名称获取厂商ID，不存在则创建
func ensureVendor(ctx context.Context, q querier, name string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO vendor (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name,
	); err != nil {
		return 0, xerrors.Errorf("failed to insert vendor %s: %w", name, err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT vendor_id FROM vendor WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, xerrors.Errorf("failed to look up vendor %s: %w", name, err)
	}
	return id, nil
}

// ensureProduct 按 (厂商, 名称) 获取产品ID，不存在则创建
func ensureProduct(ctx context.Context, q querier, vendorID int64, name string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO product (vendor_id, name) VALUES (?, ?) ON CONFLICT (vendor_id, name) DO NOTHING`,
		vendorID, name,
	); err != nil {
		return 0, xerrors.Errorf("failed to insert product %s: %w", name, err)
	}
	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT product_id FROM product WHERE vendor_id = ? AND name = ?`, vendorID, name,
	).Scan(&id); err != nil {
		return 0, xerrors.Errorf("failed to look up product %s: %w", name, err)
	}
	return id, nil
}

func upsertAffected(ctx context.Context, q querier, a model.Affected) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO affected (cve_id, product_id, version_min, version_max, include_min, include_max)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (cve_id, product_id) DO UPDATE SET
			version_min = excluded.version_min,
			version_max = excluded.version_max,
			include_min = excluded.include_min,
			include_max = excluded.include_max`,
		a.CVEID, a.ProductID, a.Min, a.Max, a.IncludeMin, a.IncludeMax,
	)
	if err != nil {
		return xerrors.Errorf("failed to link %s to product %d: %w", a.CVEID, a.ProductID, err)
	}
	return nil
}

// LinkAffected 关联CVE与厂商/产品，厂商和产品按需创建
func (cd *CVEDatabase) LinkAffected(ctx context.Context, cveID, vendor, product string, rng model.VersionRange) error {
	vendor = strings.TrimSpace(vendor)
	product = strings.TrimSpace(product)
	if vendor == "" {
		return &model.ValidationError{Field: "vendor", Value: vendor, Reason: "must not be empty"}
	}
	if product == "" {
		return &model.ValidationError{Field: "product", Value: product, Reason: "must not be empty"}
	}
	if err := ValidateRange(rng); err != nil {
		return err
	}

	err := cd.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := cveExists(ctx, tx, cveID)
		if err != nil {
			return err
		}
		if !exists {
			return xerrors.Errorf("%s: %w", cveID, ErrNotFound)
		}

		vendorID, err := ensureVendor(ctx, tx, vendor)
		if err != nil {
			return err
		}
		productID, err := ensureProduct(ctx, tx, vendorID, product)
		if err != nil {
			return err
		}
		return upsertAffected(ctx, tx, model.Affected{CVEID: cveID, ProductID: productID, VersionRange: rng})
	})
	if err != nil {
		return err
	}

	cd.logger.Info("%s 关联到 %s:%s", cveID, vendor, product)
	return nil
}

// AffectedProducts 返回某个CVE关联的所有产品
func (cd *CVEDatabase) AffectedProducts(ctx context.Context, cveID string) ([]model.AffectedProduct, error) {
	return affectedProducts(ctx, cd.db, `WHERE a.cve_id = ?`, cveID)
}

func affectedProducts(ctx context.Context, q querier, where string, args ...interface{}) ([]model.AffectedProduct, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT v.name, p.name, a.version_min, a.version_max, a.include_min, a.include_max
		FROM affected a
		JOIN product p ON p.product_id = a.product_id
		JOIN vendor  v ON v.vendor_id = p.vendor_id
		`+where+`
		ORDER BY v.name, p.name`, args...)
	if err != nil {
		return nil, xerrors.Errorf("failed to query affected products: %w", err)
	}
	defer rows.Close()

	var products []model.AffectedProduct
	for rows.Next() {
		var ap model.AffectedProduct
		var min, max sql.NullString
		if err := rows.Scan(&ap.Vendor, &ap.Product, &min, &max, &ap.IncludeMin, &ap.IncludeMax); err != nil {
			return nil, xerrors.Errorf("failed to scan affected product: %w", err)
		}
		ap.Min = nullString(min)
		ap.Max = nullString(max)
		products = append(products, ap)
	}
	return products, rows.Err()
}
