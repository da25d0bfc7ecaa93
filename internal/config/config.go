package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Database DatabaseConfig `mapstructure:"database"` // 存储配置
	Ingest   IngestConfig   `mapstructure:"ingest"`   // 回放入库配置
	Mapping  MappingConfig  `mapstructure:"mapping"`  // 玩家映射配置
	Report   ReportConfig   `mapstructure:"report"`   // 报表配置
	Server   ServerConfig   `mapstructure:"server"`   // 只读 HTTP 服务
	Log      LogConfig      `mapstructure:"log"`      // 日志
}

// DatabaseConfig 数据库配置；driver 为 sqlite 时 dsn 是文件路径
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // sqlite / postgres
	DSN             string        `mapstructure:"dsn"`               // 连接串
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM 日志：silent/error/warn/info
}

// IngestConfig 入库配置
type IngestConfig struct {
	RawDir  string `mapstructure:"raw_dir"` // 回放目录
	Pattern string `mapstructure:"pattern"` // 文件匹配
	Format  string `mapstructure:"format"`  // 回放格式（解析器注册名）
}

// MappingConfig 映射配置
type MappingConfig struct {
	File  string `mapstructure:"file"`  // YAML 路径
	Prune bool   `mapstructure:"prune"` // 删除配置中已不存在的映射
}

// ReportConfig 报表配置
type ReportConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	MinSessions int    `mapstructure:"min_sessions"` // 进入排行榜所需最少场次
	ChartWidth  int    `mapstructure:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text / json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "poker.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("ingest.raw_dir", "raw")
	v.SetDefault("ingest.pattern", "*.json")
	v.SetDefault("ingest.format", "json")
	v.SetDefault("mapping.file", "player_map.yaml")
	v.SetDefault("mapping.prune", false)
	v.SetDefault("report.output_dir", "_site")
	v.SetDefault("report.min_sessions", 3)
	v.SetDefault("report.chart_width", 1024)
	v.SetDefault("report.chart_height", 512)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig 加载配置文件，敏感项从 .env / 环境变量覆盖（不提交 git）。
// 配置文件不存在时使用默认值。
func LoadConfig(path string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	setDefaults(v)

	// 2. 读取 yaml
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("HANDSYNC_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("HANDSYNC_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HANDSYNC_RAW_DIR"); v != "" {
		cfg.Ingest.RawDir = v
	}
	if v := os.Getenv("HANDSYNC_MAPPING_FILE"); v != "" {
		cfg.Mapping.File = v
	}
	if v := os.Getenv("HANDSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HANDSYNC_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}
