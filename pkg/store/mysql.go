package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"conf-compose/pkg/model"
)

type runRow struct {
	ID          string        `gorm:"primaryKey;size:36"`
	Build       string        `gorm:"size:64"`
	NodesFile   string        `gorm:"size:512"`
	TunnelsFile string        `gorm:"size:512"`
	CreatedAt   time.Time     `gorm:"index"`
	Artifacts   []artifactRow `gorm:"foreignKey:RunID;references:ID"`
}

func (runRow) TableName() string { return "compose_runs" }

type artifactRow struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:36;index"`
	Node          string `gorm:"size:255;index"`
	NodeID        int
	File          string `gorm:"size:512"`
	Digest        string `gorm:"size:64"`
	EntranceRules int
	ForwardRules  int
	CreatedAt     time.Time
}

func (artifactRow) TableName() string { return "compose_artifacts" }

func (a artifactRow) record() model.ArtifactRecord {
	return model.ArtifactRecord{
		RunID:         a.RunID,
		Node:          a.Node,
		NodeID:        a.NodeID,
		File:          a.File,
		Digest:        a.Digest,
		EntranceRules: a.EntranceRules,
		ForwardRules:  a.ForwardRules,
		CreatedAt:     a.CreatedAt,
	}
}

// GormLedger stores runs through gorm. OpenMySQL is the usual way to get one.
type GormLedger struct {
	db *gorm.DB
}

// MySQLDSN builds the DSN from the environment:
//
//	MYSQL_DSN or MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASS, MYSQL_DB
func MySQLDSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	s := mysqlSettingsFromEnv()
	return s.dsn(s.DB)
}

type mysqlSettings struct {
	Host, Port, User, Pass, DB string
}

func mysqlSettingsFromEnv() mysqlSettings {
	return mysqlSettings{
		Host: getenv("MYSQL_HOST", "127.0.0.1"),
		Port: getenv("MYSQL_PORT", "3306"),
		User: getenv("MYSQL_USER", "root"),
		Pass: getenv("MYSQL_PASS", ""),
		DB:   getenv("MYSQL_DB", "conf_compose"),
	}
}

func (s mysqlSettings) dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", s.User, s.Pass, s.Host, s.Port, db)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// OpenMySQL connects to MySQL and migrates the ledger tables. An empty dsn
// is taken from the environment; a missing database is created when the DSN
// came from the MYSQL_* variables.
func OpenMySQL(ctx context.Context, dsn string) (*GormLedger, error) {
	fromParts := dsn == "" && os.Getenv("MYSQL_DSN") == ""
	if dsn == "" {
		dsn = MySQLDSN()
	}
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		if !fromParts || !strings.Contains(err.Error(), "Unknown database") {
			return nil, fmt.Errorf("mysql open: %w", err)
		}
		if cerr := createDatabase(ctx, mysqlSettingsFromEnv()); cerr != nil {
			return nil, fmt.Errorf("create database failed: %w", cerr)
		}
		if db, err = gorm.Open(mysql.Open(dsn), cfg); err != nil {
			return nil, fmt.Errorf("mysql open: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(5)
	return NewGormLedger(ctx, db)
}

// NewGormLedger wraps an open gorm connection and migrates the ledger tables.
func NewGormLedger(ctx context.Context, db *gorm.DB) (*GormLedger, error) {
	if err := db.WithContext(ctx).AutoMigrate(&runRow{}, &artifactRow{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &GormLedger{db: db}, nil
}

func createDatabase(ctx context.Context, s mysqlSettings) error {
	db, err := sql.Open("mysql", s.dsn(""))
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4", s.DB))
	return err
}

func (g *GormLedger) RecordRun(ctx context.Context, run model.Run) error {
	row := runRow{
		ID:          run.ID,
		Build:       run.Build,
		NodesFile:   run.NodesFile,
		TunnelsFile: run.TunnelsFile,
		CreatedAt:   run.CreatedAt,
	}
	for _, a := range stamp(run) {
		row.Artifacts = append(row.Artifacts, artifactRow{
			RunID:         a.RunID,
			Node:          a.Node,
			NodeID:        a.NodeID,
			File:          a.File,
			Digest:        a.Digest,
			EntranceRules: a.EntranceRules,
			ForwardRules:  a.ForwardRules,
			CreatedAt:     a.CreatedAt,
		})
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

func (g *GormLedger) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	q := g.db.WithContext(ctx).
		Preload("Artifacts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []runRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Run, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		run := model.Run{
			ID:          r.ID,
			Build:       r.Build,
			NodesFile:   r.NodesFile,
			TunnelsFile: r.TunnelsFile,
			CreatedAt:   r.CreatedAt,
		}
		for _, a := range r.Artifacts {
			run.Artifacts = append(run.Artifacts, a.record())
		}
		out = append(out, run)
	}
	return out, nil
}

func (g *GormLedger) ListNodeHistory(ctx context.Context, node string, limit int) ([]model.ArtifactRecord, error) {
	q := g.db.WithContext(ctx).Where("node = ?", node).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []artifactRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.ArtifactRecord, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i].record())
	}
	return out, nil
}

func (g *GormLedger) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
