package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Runner 执行 db/migrations 下的 NNNN_name_up.sql，每个文件一个事务，
// 版本号记录在 schema_migrations。
type Runner struct {
	Dir    string
	Logger *zap.Logger
}

// Migration 一个向上迁移文件
type Migration struct {
	Version int64
	Path    string
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// EnsureTable 保证 schema_migrations 表存在
func EnsureTable(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, createTableSQL)
	return err
}

// AppliedVersions 已应用版本
func AppliedVersions(ctx context.Context, db *pgxpool.Pool) (map[int64]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	applied := make(map[int64]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// Pending 未应用的迁移，按版本升序；文件名前缀不是数字的忽略
func (r Runner) Pending(fsys fs.FS, applied map[int64]bool) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*_up.sql")
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		ver, err := strconv.ParseInt(prefix, 10, 64)
		if err != nil || applied[ver] {
			continue
		}
		out = append(out, Migration{Version: ver, Path: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up 应用全部未执行的迁移，返回本次应用数量；失败时已应用的部分保留
func (r Runner) Up(ctx context.Context, db *pgxpool.Pool) (int, error) {
	if r.Dir == "" {
		return 0, errors.New("migrations dir is empty")
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := EnsureTable(ctx, db); err != nil {
		return 0, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}
	fsys := os.DirFS(r.Dir)
	pending, err := r.Pending(fsys, applied)
	if err != nil {
		return 0, err
	}
	for i, m := range pending {
		sql, err := fs.ReadFile(fsys, m.Path)
		if err != nil {
			return i, err
		}
		err = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.Version)
			return err
		})
		if err != nil {
			return i, fmt.Errorf("migration %s: %w", m.Path, err)
		}
		logger.Info("migration applied", zap.Int64("version", m.Version), zap.String("file", m.Path))
	}
	return len(pending), nil
}
