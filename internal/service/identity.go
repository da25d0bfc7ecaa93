package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"HandSync/internal/model"
	"HandSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ApplyOptions 映射写入选项
type ApplyOptions struct {
	Prune bool // 全量同步：删除配置中已不存在的映射与规范玩家
}

// IdentityService 玩家身份映射：加载配置、写入增强层、查询未映射玩家、导出模板
type IdentityService struct {
	repo   repository.IdentityRepository
	logger *logrus.Logger
}

func NewIdentityService(db *gorm.DB, logger *logrus.Logger) *IdentityService {
	return &IdentityService{
		repo:   repository.NewIdentityRepository(db),
		logger: logger,
	}
}

// LoadMappingsFile 读取映射 YAML 文件
func LoadMappingsFile(path string) (*model.ResolvedMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ConfigError{Source: path, Err: err}
	}
	defer f.Close()
	return LoadMappings(f, path)
}

// LoadMappings 解析并校验映射配置。所有问题一次性收集后返回 ConfigError；
// 同一 (原始 id, 昵称) 出现在两个不同规范玩家下属于歧义，绝不按后者覆盖
func LoadMappings(r io.Reader, source string) (*model.ResolvedMap, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc model.MappingDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &model.ConfigError{Source: source, Err: errors.New("文件为空，缺少 canonical_players")}
		}
		return nil, &model.ConfigError{Source: source, Err: fmt.Errorf("YAML 格式错误: %w", err)}
	}

	var (
		problems  []string
		ambiguous bool
		players   = make([]model.CanonicalPlayer, 0, len(doc.CanonicalPlayers))
		mappings  []model.PlayerMapping
		ids       = make(map[string]int)
		owners    = make(map[model.AliasKey]string)
	)
	for i, e := range doc.CanonicalPlayers {
		id, name := strings.TrimSpace(e.ID), strings.TrimSpace(e.Name)
		where := fmt.Sprintf("canonical_players[%d]", i)
		if id == "" {
			problems = append(problems, where+": 缺少 id")
		}
		if name == "" {
			problems = append(problems, where+": 缺少 name")
		}
		if id != "" {
			if prev, dup := ids[id]; dup {
				problems = append(problems, fmt.Sprintf("%s: id %q 与 canonical_players[%d] 重复", where, id, prev))
				continue
			}
			ids[id] = i
		}
		players = append(players, model.CanonicalPlayer{CanonicalID: id, DisplayName: name})

		for j, a := range e.Aliases {
			rawID, nick := strings.TrimSpace(a.ID), strings.TrimSpace(a.Nickname)
			if rawID == "" || nick == "" {
				problems = append(problems, fmt.Sprintf("%s.aliases[%d]: id 和 nickname 都不能为空", where, j))
				continue
			}
			key := model.AliasKey{RawPlayerID: rawID, Nickname: nick}
			if owner, seen := owners[key]; seen {
				if owner != id {
					ambiguous = true
					problems = append(problems, fmt.Sprintf("%s.aliases[%d]: (%s, %s) 同时属于 %q 和 %q", where, j, rawID, nick, owner, id))
				}
				continue
			}
			owners[key] = id
			mappings = append(mappings, model.PlayerMapping{RawPlayerID: rawID, Nickname: nick, CanonicalID: id})
		}
	}

	if len(problems) > 0 {
		ce := &model.ConfigError{Source: source, Problems: problems}
		if ambiguous {
			ce.Err = model.ErrAmbiguousAlias
		}
		return nil, ce
	}
	return model.NewResolvedMap(players, mappings), nil
}

// ApplyMappings 把映射写入增强层（单事务）；不修改核心层
func (s *IdentityService) ApplyMappings(ctx context.Context, rm *model.ResolvedMap, opts ApplyOptions) (*repository.ApplyResult, error) {
	res, err := s.repo.ApplyMappings(ctx, rm.CanonicalPlayers(), rm.Mappings(), opts.Prune)
	if err != nil {
		return nil, fmt.Errorf("写入映射失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"canonical_players": res.CanonicalPlayers,
		"mappings":          res.Mappings,
		"pruned_players":    res.PrunedPlayers,
		"pruned_mappings":   res.PrunedMappings,
	}).Info("玩家映射已写入")
	return res, nil
}

// PersistedMappings 从库中已保存的增强层重建映射
func (s *IdentityService) PersistedMappings(ctx context.Context) (*model.ResolvedMap, error) {
	players, mappings, err := s.repo.LoadMappings(ctx)
	if err != nil {
		return nil, err
	}
	return model.NewResolvedMap(players, mappings), nil
}

// UnmappedPlayers 核心层中出现、但增强层没有任何映射的原始玩家
func (s *IdentityService) UnmappedPlayers(ctx context.Context) ([]repository.RawPlayerView, error) {
	return s.repo.ListUnmappedPlayers(ctx)
}

// UnmappedAliases 没有精确映射的 (原始 id, 昵称)，这些组合在报表中按原始身份统计
func (s *IdentityService) UnmappedAliases(ctx context.Context) ([]repository.AliasView, error) {
	return s.repo.ListUnmappedAliases(ctx)
}

const templateHeader = `# 玩家身份映射配置
#
# 每个原始玩家生成了一个独立的规范玩家，按需合并：
# 把同一个人的多个别名（id + nickname）放到同一个条目的 aliases 下，
# 并删除多余的条目。id 保持稳定，name 用于报表展示。
#
# 示例：
#   - id: "alice"
#     name: "Alice"
#     aliases:
#       - id: "abc123"
#         nickname: "ali"
#       - id: "xyz789"
#         nickname: "AlicePoker"
#
`

// ExportTemplate 每个原始玩家一个规范条目，别名取其最近昵称，作为人工整理的起点
func (s *IdentityService) ExportTemplate(ctx context.Context) ([]byte, error) {
	players, err := s.repo.ListRawPlayers(ctx)
	if err != nil {
		return nil, err
	}
	doc := model.MappingDocument{CanonicalPlayers: make([]model.MappingEntry, 0, len(players))}
	for _, p := range players {
		doc.CanonicalPlayers = append(doc.CanonicalPlayers, model.MappingEntry{
			ID:      p.PlayerID,
			Name:    p.ScreenName,
			Aliases: []model.MappingAlias{{ID: p.PlayerID, Nickname: p.ScreenName}},
		})
	}

	var buf bytes.Buffer
	buf.WriteString(templateHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("生成映射模板失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("生成映射模板失败: %w", err)
	}
	s.logger.WithField("players", len(players)).Info("映射模板已生成")
	return buf.Bytes(), nil
}
