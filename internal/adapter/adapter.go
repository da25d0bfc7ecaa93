package adapter

import (
	"fmt"

	"HandSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// New 按格式名创建解析器实例
func New(format string, logger *logrus.Logger) (interfaces.ReplayParser, error) {
	factory, ok := GetFactory(format)
	if !ok {
		return nil, fmt.Errorf("未支持的回放格式: %s（已注册：%v）", format, ListFactories())
	}
	p := factory(logger)
	if p == nil {
		return nil, fmt.Errorf("格式%s的工厂函数返回nil", format)
	}
	logger.WithField("format", format).Debug("回放解析器初始化成功")
	return p, nil
}
