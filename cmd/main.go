package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"HandSync/internal/config"
	"HandSync/internal/model"
	"HandSync/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// 退出码：1 为一般错误，2 为解析/入库/映射/表结构错误
const (
	exitFailure  = 1
	exitPipeline = 2
)

// app 命令共享的运行时状态，在 Before 中初始化
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	out    io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	if err := a.cli().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:  "handsync",
		Usage: "扑克回放入库、玩家身份映射与统计报表",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/config.yaml",
				Usage:   "配置文件路径",
				EnvVars: []string{"HANDSYNC_CONFIG"},
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			a.initDBCommand(),
			a.ingestCommand(),
			a.loadMappingsCommand(),
			a.unmappedCommand(),
			a.exportMappingsCommand(),
			a.statsCommand(),
			a.reportCommand(),
			a.serveCommand(),
			a.runCommand(),
		},
	}
}

func (a *app) setup(c *cli.Context) error {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("加载配置文件失败: %v", err), exitFailure)
	}
	a.cfg = cfg

	// 2. 初始化日志
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	a.logger = logger
	a.logger.Debug("配置文件加载成功")

	return nil
}

// database 首次使用时连接数据库；help 等命令不需要连库
func (a *app) database() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(a.cfg.Database, a.logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) teardown(_ *cli.Context) error {
	if a.db == nil {
		return nil
	}
	if err := store.Close(a.db); err != nil {
		a.logger.WithError(err).Warn("关闭数据库连接失败")
	}
	return nil
}

// newLogger 按配置设置级别与格式
func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetOutput(os.Stderr)
	return logger, nil
}

// exitError 流水线错误用单独的退出码，其它错误按一般失败处理
func exitError(err error) error {
	if err == nil {
		return nil
	}
	if model.IsPipelineError(err) {
		return cli.Exit(err.Error(), exitPipeline)
	}
	return cli.Exit(err.Error(), exitFailure)
}
