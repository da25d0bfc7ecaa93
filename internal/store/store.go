package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	_ "github.com/jackc/pgx/v4/stdlib"

	"HandSync/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open 按配置打开数据库。sqlite 单连接（单写者模型）；postgres 库不存在则先创建再连
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		db, err = gorm.Open(sqlite.Open(sqliteDSN(cfg.DSN)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("打开sqlite失败: %w", err)
		}
		// sqlite 只允许一个写连接，读写都走同一连接避免 SQLITE_BUSY
		cfg.MaxOpenConns, cfg.MaxIdleConns = 1, 1
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
		if err != nil {
			if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "3D000") {
				log.Info("目标数据库不存在，尝试自动创建…")
				if e := ensureDatabaseExists(cfg.DSN); e != nil {
					return nil, fmt.Errorf("创建数据库失败: %w", e)
				}
				db, err = gorm.Open(postgres.Open(cfg.DSN), gormCfg)
			}
			if err != nil {
				return nil, fmt.Errorf("连接PostgreSQL失败: %w", err)
			}
		}
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	log.WithFields(logrus.Fields{"driver": db.Dialector.Name()}).Info("数据库连接成功")
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqliteDSN 文件路径补上外键开关
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "poker.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// adminDSN 把业务库 DSN 改写为指向维护库 postgres 的 DSN，同时返回业务库名。
// 业务库就是 postgres 或未指定库名时 name 为空
func adminDSN(dsn string) (admin, name string, err error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", fmt.Errorf("解析DSN失败: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", "", fmt.Errorf("自动建库只支持 URL 形式的 DSN: %q", u.Scheme)
	}
	name = strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if name == "postgres" {
		name = ""
	}
	u.Path = "/postgres"
	return u.String(), name, nil
}

// ensureDatabaseExists 目标库不存在时经维护库创建，已存在则什么都不做
func ensureDatabaseExists(dsn string) error {
	admin, name, err := adminDSN(dsn)
	if err != nil || name == "" {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := sql.Open("pgx", admin)
	if err != nil {
		return fmt.Errorf("连接维护库失败: %w", err)
	}
	defer conn.Close()

	var exists bool
	if err := conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("查询数据库 %s 失败: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := conn.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("创建数据库 %s 失败: %w", name, err)
	}
	return nil
}
