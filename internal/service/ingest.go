package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"HandSync/internal/adapter"
	_ "HandSync/internal/adapter/jsonreplay"
	"HandSync/internal/config"
	"HandSync/internal/interfaces"
	"HandSync/internal/model"
	"HandSync/internal/repository"
	"HandSync/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type IngestService struct {
	db      *gorm.DB
	logger  *logrus.Logger
	repo    interfaces.ReplayRepository
	parser  interfaces.ReplayParser
	pattern string
}

// DocumentResult 成功入库的文档
type DocumentResult struct {
	Document string               `json:"document"`
	Summary  *model.IngestSummary `json:"summary"`
}

// DocumentFailure 失败的文档及原因
type DocumentFailure struct {
	Document string `json:"document"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// BatchResult 一次批量入库的结果，每个文档独立成败
type BatchResult struct {
	RunID     string            `json:"run_id"`
	Succeeded []DocumentResult  `json:"succeeded"`
	Failed    []DocumentFailure `json:"failed"`
}

// Err 汇总所有失败；全部成功时返回 nil
func (b *BatchResult) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(b.Failed))
	for _, f := range b.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

func NewIngestService(db *gorm.DB, logger *logrus.Logger, cfg config.IngestConfig) (*IngestService, error) {
	format := cfg.Format
	if format == "" {
		format = "json"
	}
	parser, err := adapter.New(format, logger)
	if err != nil {
		return nil, err
	}
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = "*.json"
	}
	return &IngestService{
		db:      db,
		logger:  logger,
		repo:    repository.NewReplayRepository(db),
		parser:  parser,
		pattern: pattern,
	}, nil
}

// IngestFile 解析并入库单个文件（一个事务）
func (s *IngestService) IngestFile(ctx context.Context, path string) (*model.IngestSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.IngestError{Document: path, Err: fmt.Errorf("读取文件失败: %w", err)}
	}
	replay, err := s.parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return s.repo.SaveReplay(ctx, replay)
}

// IngestDir 目录下按 pattern 匹配的全部文件
func (s *IngestService) IngestDir(ctx context.Context, dir string) (*BatchResult, error) {
	return s.IngestPaths(ctx, dir)
}

// IngestPaths 文件或目录混合输入；按文件名字典序逐个入库，单个失败不影响其它文件。
// 只有表结构错误会中止整个批次
func (s *IngestService) IngestPaths(ctx context.Context, paths ...string) (*BatchResult, error) {
	res := &BatchResult{RunID: uuid.NewString()}
	log := s.logger.WithField("run_id", res.RunID)

	if err := store.Initialize(ctx, s.db); err != nil {
		return res, err
	}

	files, failures := s.expand(paths)
	res.Failed = append(res.Failed, failures...)
	log.WithField("files", len(files)).Info("开始入库")

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		summary, err := s.IngestFile(ctx, f)
		if err != nil {
			var se *model.SchemaError
			if errors.As(err, &se) {
				log.WithError(err).Error("表结构不匹配，终止本次入库")
				return res, err
			}
			log.WithError(err).WithField("document", f).Warn("文档入库失败")
			res.Failed = append(res.Failed, DocumentFailure{Document: f, Reason: err.Error(), Err: err})
			continue
		}
		log.WithFields(logrus.Fields{
			"document":        f,
			"game_id":         summary.GameID,
			"written":         summary.Written(),
			"already_present": summary.AlreadyPresent(),
		}).Info("文档入库成功")
		res.Succeeded = append(res.Succeeded, DocumentResult{Document: f, Summary: summary})
	}

	log.WithFields(logrus.Fields{
		"succeeded": len(res.Succeeded),
		"failed":    len(res.Failed),
	}).Info("入库完成")
	return res, nil
}

// expand 展开目录，去重后按字典序排列；不存在的路径记为失败
func (s *IngestService) expand(paths []string) ([]string, []DocumentFailure) {
	seen := make(map[string]bool)
	var files []string
	var failures []DocumentFailure
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			e := &model.IngestError{Document: p, Err: fmt.Errorf("路径不可用: %w", err)}
			failures = append(failures, DocumentFailure{Document: p, Reason: e.Error(), Err: e})
			continue
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, s.pattern))
		if err != nil {
			e := &model.IngestError{Document: p, Err: fmt.Errorf("匹配文件失败: %w", err)}
			failures = append(failures, DocumentFailure{Document: p, Reason: e.Error(), Err: e})
			continue
		}
		for _, m := range matches {
			if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
				add(m)
			}
		}
	}
	sort.Strings(files)
	return files, failures
}
