package interfaces

import (
	"context"

	"HandSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ReplayParser 所有回放格式必须实现的核心接口
type ReplayParser interface {
	Format() string                                                  // 格式名
	Parse(document string, data []byte) (*model.ParsedReplay, error) // 解析为中间表示，纯函数
}

// ReplayRepository 回放入库接口：单文档一个事务
type ReplayRepository interface {
	SaveReplay(ctx context.Context, replay *model.ParsedReplay) (*model.IngestSummary, error)
}

// Factory 回放解析器工厂函数签名
type Factory func(logger *logrus.Logger) ReplayParser
