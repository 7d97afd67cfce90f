package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gorm.io/gorm"

	cfgpkg "github.com/taoyao-code/swap-server/internal/config"
	"github.com/taoyao-code/swap-server/internal/migrate"
	"github.com/taoyao-code/swap-server/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/swap-server/internal/storage/pg"
)

// Database 已打开的数据库句柄
type Database struct {
	Gorm *gorm.DB
	SQL  *sql.DB
	// Pool 仅 postgres 驱动下非空
	Pool *pgxpool.Pool
}

// Close 关闭连接（postgres 下 sql.DB 基于连接池，一并关闭）
func (d *Database) Close() {
	if d == nil {
		return
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// OpenDatabase 按驱动建立数据库连接并按需迁移。
// postgres：pgxpool + SQL 迁移 + GORM；sqlite：纯 Go 驱动 + AutoMigrate，用于本地开发与演示。
func OpenDatabase(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*Database, error) {
	switch cfg.Driver {
	case "sqlite":
		gdb, err := gormrepo.OpenSQLite(cfg.DSN, log, cfg.AutoMigrate)
		if err != nil {
			log.Error("db open error", zap.String("driver", cfg.Driver), zap.Error(err))
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		return &Database{Gorm: gdb, SQL: sqlDB}, nil
	case "postgres":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*Database, error) {
	pool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		n, err := (migrate.Runner{Dir: cfg.MigrationsDir, Logger: log}).Up(ctx, pool)
		if err != nil {
			log.Error("db migrate error", zap.Error(err))
			pool.Close()
			return nil, err
		}
		log.Info("db migrations applied", zap.Int("count", n))
	}
	gdb, err := gormrepo.OpenPostgres(pool, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Database{Gorm: gdb, SQL: sqlDB, Pool: pool}, nil
}
