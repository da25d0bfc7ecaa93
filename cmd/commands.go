package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"HandSync/internal/api"
	"HandSync/internal/model"
	"HandSync/internal/report"
	"HandSync/internal/service"
	"HandSync/internal/store"

	"github.com/urfave/cli/v2"
)

func (a *app) initDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-db",
		Usage: "创建或校验表结构（幂等）",
		Action: func(c *cli.Context) error {
			db, err := a.database()
			if err != nil {
				return exitError(err)
			}
			if err := store.Initialize(c.Context, db); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(a.out, "表结构已就绪")
			return nil
		},
	}
}

func (a *app) ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "解析回放文件并入库；不传参数时使用配置中的 raw_dir",
		ArgsUsage: "[file|dir]...",
		Action: func(c *cli.Context) error {
			paths := c.Args().Slice()
			if len(paths) == 0 {
				paths = []string{a.cfg.Ingest.RawDir}
			}
			res, err := a.ingest(c, paths)
			if err != nil {
				return exitError(err)
			}
			return exitError(res.Err())
		},
	}
}

// ingest 执行入库并逐个打印文档结果
func (a *app) ingest(c *cli.Context, paths []string) (*service.BatchResult, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	svc, err := service.NewIngestService(db, a.logger, a.cfg.Ingest)
	if err != nil {
		return nil, err
	}
	res, err := svc.IngestPaths(c.Context, paths...)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Succeeded {
		fmt.Fprintf(a.out, "OK    %s  game=%s written=%d already_present=%d\n",
			d.Document, d.Summary.GameID, d.Summary.Written(), d.Summary.AlreadyPresent())
	}
	for _, f := range res.Failed {
		fmt.Fprintf(a.out, "FAIL  %s  %s\n", f.Document, f.Reason)
	}
	fmt.Fprintf(a.out, "成功 %d，失败 %d（run %s）\n", len(res.Succeeded), len(res.Failed), res.RunID)
	return res, nil
}

func (a *app) loadMappingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "load-mappings",
		Usage:     "加载玩家映射 YAML 写入增强层；任何配置问题都不会部分写入",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "prune", Usage: "删除文件中已不存在的映射与规范玩家"},
		},
		Action: func(c *cli.Context) error {
			file := c.Args().First()
			if file == "" {
				file = a.cfg.Mapping.File
			}
			prune := a.cfg.Mapping.Prune
			if c.IsSet("prune") {
				prune = c.Bool("prune")
			}
			return exitError(a.loadMappings(c, file, prune))
		},
	}
}

func (a *app) loadMappings(c *cli.Context, file string, prune bool) error {
	rm, err := service.LoadMappingsFile(file)
	if err != nil {
		return err
	}
	db, err := a.database()
	if err != nil {
		return err
	}
	if err := store.Initialize(c.Context, db); err != nil {
		return err
	}
	res, err := service.NewIdentityService(db, a.logger).ApplyMappings(c.Context, rm, service.ApplyOptions{Prune: prune})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "规范玩家 %d，映射 %d", res.CanonicalPlayers, res.Mappings)
	if prune {
		fmt.Fprintf(a.out, "，删除规范玩家 %d，删除映射 %d", res.PrunedPlayers, res.PrunedMappings)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) unmappedCommand() *cli.Command {
	return &cli.Command{
		Name:  "unmapped",
		Usage: "列出没有映射的原始玩家",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "aliases", Usage: "按 (id, 昵称) 列出没有精确映射的组合"},
		},
		Action: func(c *cli.Context) error {
			db, err := a.database()
			if err != nil {
				return exitError(err)
			}
			if err := store.Initialize(c.Context, db); err != nil {
				return exitError(err)
			}
			svc := service.NewIdentityService(db, a.logger)

			if c.Bool("aliases") {
				rows, err := svc.UnmappedAliases(c.Context)
				if err != nil {
					return exitError(err)
				}
				for _, r := range rows {
					fmt.Fprintf(a.out, "%-24s %-24s %6d\n", r.PlayerID, r.Nickname, r.HandsPlayed)
				}
				fmt.Fprintf(a.out, "共 %d 个未映射别名\n", len(rows))
				return nil
			}

			rows, err := svc.UnmappedPlayers(c.Context)
			if err != nil {
				return exitError(err)
			}
			for _, r := range rows {
				fmt.Fprintf(a.out, "%-24s %-24s %6d\n", r.PlayerID, r.ScreenName, r.HandsPlayed)
			}
			fmt.Fprintf(a.out, "共 %d 个未映射玩家\n", len(rows))
			return nil
		},
	}
}

func (a *app) exportMappingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "export-mappings",
		Usage:     "按已入库的原始玩家生成映射模板；file 为 - 时输出到标准输出",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "覆盖已存在的文件"},
		},
		Action: func(c *cli.Context) error {
			file := c.Args().First()
			if file == "" {
				file = a.cfg.Mapping.File
			}
			if file != "-" && !c.Bool("force") {
				if _, err := os.Stat(file); err == nil {
					return cli.Exit(fmt.Sprintf("%s 已存在，使用 --force 覆盖", file), exitFailure)
				}
			}

			db, err := a.database()
			if err != nil {
				return exitError(err)
			}
			if err := store.Initialize(c.Context, db); err != nil {
				return exitError(err)
			}
			data, err := service.NewIdentityService(db, a.logger).ExportTemplate(c.Context)
			if err != nil {
				return exitError(err)
			}
			if file == "-" {
				_, err = a.out.Write(data)
				return exitError(err)
			}
			if err := os.WriteFile(file, data, 0o644); err != nil {
				return exitError(fmt.Errorf("写入映射模板失败: %w", err))
			}
			fmt.Fprintf(a.out, "映射模板已写入 %s\n", file)
			return nil
		},
	}
}

func (a *app) statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "打印各表行数",
		Action: func(c *cli.Context) error {
			db, err := a.database()
			if err != nil {
				return exitError(err)
			}
			if err := store.Initialize(c.Context, db); err != nil {
				return exitError(err)
			}
			counts, err := store.Stats(c.Context, db)
			if err != nil {
				return exitError(err)
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return exitError(enc.Encode(counts))
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "输出目录（默认取配置 report.output_dir）"},
		&cli.IntFlag{Name: "min-sessions", Usage: "进入排行榜所需最少场次（默认取配置 report.min_sessions）"},
	}
}

func (a *app) reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "按已保存的映射生成报表（JSON、XLSX、PNG 图表）",
		Flags: reportFlags(),
		Action: func(c *cli.Context) error {
			return exitError(a.report(c))
		},
	}
}

func (a *app) report(c *cli.Context) error {
	out := a.cfg.Report.OutputDir
	if c.IsSet("out") {
		out = c.String("out")
	}
	minSessions := a.cfg.Report.MinSessions
	if c.IsSet("min-sessions") {
		minSessions = c.Int("min-sessions")
	}
	if minSessions < 0 {
		return fmt.Errorf("min-sessions 不能为负数: %d", minSessions)
	}

	db, err := a.database()
	if err != nil {
		return err
	}
	if err := store.Initialize(c.Context, db); err != nil {
		return err
	}
	rm, err := service.NewIdentityService(db, a.logger).PersistedMappings(c.Context)
	if err != nil {
		return err
	}
	rep, err := service.NewAggregationService(db, a.logger).BuildReport(c.Context, rm, minSessions)
	if err != nil {
		return err
	}
	files, err := report.WriteAll(out, rep, report.ChartOptions{
		Width:  a.cfg.Report.ChartWidth,
		Height: a.cfg.Report.ChartHeight,
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(a.out, f)
	}
	a.logger.WithField("dir", out).Info("报表已生成")
	return nil
}

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动只读 HTTP 接口",
		Action: func(c *cli.Context) error {
			db, err := a.database()
			if err != nil {
				return exitError(err)
			}
			if err := store.Initialize(c.Context, db); err != nil {
				return exitError(err)
			}
			r, err := api.NewRouter(db, a.logger, a.cfg)
			if err != nil {
				return exitError(err)
			}
			port := a.cfg.Server.Port
			a.logger.Infof("服务启动成功，端口：%d", port)
			if err := r.Run(fmt.Sprintf(":%d", port)); err != nil {
				return cli.Exit(fmt.Sprintf("启动服务失败: %v", err), exitFailure)
			}
			return nil
		},
	}
}

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "完整流程：入库 raw_dir -> 加载映射 -> 生成报表",
		Flags: reportFlags(),
		Action: func(c *cli.Context) error {
			res, err := a.ingest(c, []string{a.cfg.Ingest.RawDir})
			if err != nil {
				return exitError(err)
			}

			// 映射文件可选：不存在时沿用库中已保存的映射
			if _, statErr := os.Stat(a.cfg.Mapping.File); statErr == nil {
				if err := a.loadMappings(c, a.cfg.Mapping.File, a.cfg.Mapping.Prune); err != nil {
					return exitError(err)
				}
			} else if errors.Is(statErr, os.ErrNotExist) {
				a.logger.WithField("file", a.cfg.Mapping.File).Warn("映射文件不存在，使用已保存的映射")
			} else {
				return exitError(&model.ConfigError{Source: a.cfg.Mapping.File, Err: statErr})
			}

			if err := a.report(c); err != nil {
				return exitError(err)
			}
			// 报表照常生成，但有失败文档时仍以非零退出
			return exitError(res.Err())
		},
	}
}
