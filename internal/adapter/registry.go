package adapter

import (
	"fmt"
	"sort"

	"HandSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ========== 全局工厂函数注册表 ==========
var factoryRegistry = make(map[string]interfaces.Factory)

// Register 供解析器 init 函数调用，注册工厂函数
func Register(format string, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("格式%s的工厂函数不能为nil", format))
	}
	if _, exists := factoryRegistry[format]; exists {
		logrus.Warnf("格式%s的解析器已注册，将覆盖原有实现", format)
	}
	factoryRegistry[format] = factory
}

// GetFactory 获取指定格式的工厂函数
func GetFactory(format string) (interfaces.Factory, bool) {
	factory, ok := factoryRegistry[format]
	return factory, ok
}

// ListFactories 列出所有已注册的格式，按名称排序
func ListFactories() []string {
	formats := make([]string, 0, len(factoryRegistry))
	for f := range factoryRegistry {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}
