package cvedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"CVECatalog/internal/utils"
)

var (
	// ErrNotFound 记录不存在（feed中没有，或本地库中没有该CVE）
	ErrNotFound = xerrors.New("not found")
)

// driverName sqlite3 加上 ulower()：内置的 LOWER() 只处理ASCII
const driverName = "sqlite3_cvedb"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS cwe (
	cwe_id TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cve (
	cve_id TEXT PRIMARY KEY,
	summary TEXT NOT NULL,
	description TEXT,
	published TEXT,
	modified TEXT,
	severity TEXT,
	cvss_version TEXT,
	cvss_score REAL,
	cvss_vector TEXT,
	cwe_id TEXT REFERENCES cwe(cwe_id),
	source TEXT,
	status TEXT NOT NULL DEFAULT 'New'
);

CREATE INDEX IF NOT EXISTS idx_cve_published ON cve(published);
CREATE INDEX IF NOT EXISTS idx_cve_severity ON cve(severity);
CREATE INDEX IF NOT EXISTS idx_cve_cwe ON cve(cwe_id);

CREATE TABLE IF NOT EXISTS vendor (
	vendor_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS product (
	product_id INTEGER PRIMARY KEY AUTOINCREMENT,
	vendor_id INTEGER NOT NULL REFERENCES vendor(vendor_id),
	name TEXT NOT NULL,
	CONSTRAINT uq_vendor_product UNIQUE (vendor_id, name)
);

CREATE INDEX IF NOT EXISTS idx_product_name ON product(name);

CREATE TABLE IF NOT EXISTS affected (
	cve_id TEXT NOT NULL REFERENCES cve(cve_id) ON DELETE CASCADE,
	product_id INTEGER NOT NULL REFERENCES product(product_id) ON DELETE CASCADE,
	version_min TEXT,
	version_max TEXT,
	include_min INTEGER NOT NULL DEFAULT 1,
	include_max INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (cve_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_affected_product ON affected(product_id);

CREATE TABLE IF NOT EXISTS reference (
	ref_id INTEGER PRIMARY KEY AUTOINCREMENT,
	cve_id TEXT NOT NULL REFERENCES cve(cve_id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	source TEXT,
	tags TEXT,
	CONSTRAINT uq_reference_url UNIQUE (cve_id, url)
);

CREATE TABLE IF NOT EXISTS status_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cve_id TEXT NOT NULL REFERENCES cve(cve_id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	note TEXT,
	changed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS raw_nvd (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cve_id TEXT NOT NULL REFERENCES cve(cve_id) ON DELETE CASCADE,
	payload TEXT NOT NULL,
	ingested_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// 所有表名，按依赖顺序
var tableNames = []string{"cwe", "cve", "vendor", "product", "affected", "reference", "status_history", "raw_nvd"}

// querier 同时被 *sql.DB 和 *sql.Tx 实现
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type CVEDatabase struct {
	db     *sql.DB
	path   string
	logger *utils.Logger
}

// NewCVEDatabase 打开（必要时创建）数据库并初始化表
func NewCVEDatabase(dbPath string) (*CVEDatabase, error) {
	logger := utils.NewLogger("cvedb")

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, xerrors.Errorf("failed to create database directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %w", err)
	}

	cvedb := &CVEDatabase{
		db:     db,
		path:   dbPath,
		logger: logger,
	}

	// 初始化表
	if err := cvedb.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return cvedb, nil
}

// InitSchema 建表，可重复执行
func (cd *CVEDatabase) InitSchema(ctx context.Context) error {
	if _, err := cd.db.ExecContext(ctx, schema); err != nil {
		return xerrors.Errorf("failed to create tables: %w", err)
	}
	cd.logger.Debug("数据库表已就绪: %s", cd.path)
	return nil
}

// withTx 在一个事务中执行fn，fn返回错误时整体回滚
func (cd *CVEDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := cd.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TableCount 单表行数
type TableCount struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// Counts 统计各表行数
func (cd *CVEDatabase) Counts(ctx context.Context) ([]TableCount, error) {
	var counts []TableCount
	for _, table := range tableNames {
		var count int
		// 表名来自固定列表
		if err := cd.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, xerrors.Errorf("failed to count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Count: count})
	}
	return counts, nil
}

// HasData 检查数据库中是否有数据
func (cd *CVEDatabase) HasData(ctx context.Context) (bool, error) {
	count, err := cd.GetCveCount(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetCveCount 获取CVE总数
func (cd *CVEDatabase) GetCveCount(ctx context.Context) (int, error) {
	var count int
	err := cd.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cve").Scan(&count)
	if err != nil {
		return 0, xerrors.Errorf("failed to count CVEs: %w", err)
	}
	return count, nil
}

func (cd *CVEDatabase) Path() string {
	return cd.path
}

func (cd *CVEDatabase) Close() error {
	return cd.db.Close()
}

func cveExists(ctx context.Context, q querier, cveID string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM cve WHERE cve_id = ?", cveID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, xerrors.Errorf("failed to look up %s: %w", cveID, err)
	}
	return true, nil
}
