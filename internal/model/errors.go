package model

import (
	"errors"
	"fmt"
	"strings"
)

// 错误原因哨兵，配合 errors.Is 判断具体失败类型
var (
	ErrMissingField        = errors.New("缺少必填字段")
	ErrUnknownAction       = errors.New("无法识别的动作类型")
	ErrMalformedCard       = errors.New("非法牌面")
	ErrUnknownSeat         = errors.New("引用了不存在的座位")
	ErrNetGainUndetermined = errors.New("无法确定净输赢")
	ErrConflictingPayload  = errors.New("同一自然键已存在且内容不同")
	ErrInvariant           = errors.New("违反数据不变量")
	ErrAmbiguousAlias      = errors.New("别名同时映射到多个规范玩家")
)

// ParseError 回放文件格式错误或结构不一致，不重试
type ParseError struct {
	Document string // 文件名/文档标识
	Location string // 出错位置，如 hands[2].events[5]
	Token    string // 原始值（可为空）
	Err      error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "解析 %s 失败", e.Document)
	if e.Location != "" {
		fmt.Fprintf(&b, " (%s)", e.Location)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " %q", e.Token)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IngestError 存储失败或跨记录不变量被破坏，整个文档事务回滚
type IngestError struct {
	Document string
	GameID   string
	HandID   string
	Err      error
}

func (e *IngestError) Error() string {
	msg := fmt.Sprintf("入库 %s 失败", e.Document)
	if e.GameID != "" {
		msg += fmt.Sprintf(" game=%s", e.GameID)
	}
	if e.HandID != "" {
		msg += fmt.Sprintf(" hand=%s", e.HandID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IngestError) Unwrap() error { return e.Err }

// ConfigError 映射配置不合法；出现时不会提交任何映射
type ConfigError struct {
	Source   string
	Problems []string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("映射配置 %s 无效", e.Source)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SchemaError 已有表结构与预期不符（不做自动迁移），致命
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := "表结构不匹配: " + e.Table
	if e.Column != "" {
		msg += "." + e.Column
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsPipelineError 是否为需要非零退出码的流水线错误
func IsPipelineError(err error) bool {
	var pe *ParseError
	var ie *IngestError
	var ce *ConfigError
	var se *SchemaError
	return errors.As(err, &pe) || errors.As(err, &ie) || errors.As(err, &ce) || errors.As(err, &se)
}
