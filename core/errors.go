package core

import (
	"errors"
	"unicode/utf8"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），基于 errors.As，可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 输入错误：INVALID_INPUT（既没有 features_dict 也没有 features_vector）
//   - 生成输出错误：MALFORMED_OUTPUT（LLM 输出中找不到可解析的 JSON）
//   - 能力缺失：UNAVAILABLE（打分器没有任何可用能力）
//   - 上游错误：UPSTREAM_FAILURE（生成/向量/关系库后端失败）
type DomainError struct {
	Code    string // 错误代码（如 "INVALID_INPUT", "MALFORMED_OUTPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "extract", "llm"）
	Detail  string // 诊断信息（如截断后的原始输出片段）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 暴露底层错误，保证 errors.Is(err, context.Canceled) 等判断可用。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewMalformedOutput 创建 MALFORMED_OUTPUT 错误，Detail 为原始文本截断后的片段。
func NewMalformedOutput(module, message, text string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeMalformedOutput,
		Message: message,
		Detail:  Excerpt(text, MaxExcerptLen),
	}
}

// MaxExcerptLen 是错误中携带的原始文本片段的最大字符数。
const MaxExcerptLen = 200

// Excerpt 按字符（rune）截断文本，超出部分以 "..." 标记。
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound        = "NOT_FOUND"        // 资源不存在
	ErrorCodeNotSupported    = "NOT_SUPPORTED"    // 操作不支持
	ErrorCodeUnavailable     = "UNAVAILABLE"      // 能力不可用
	ErrorCodeInvalidInput    = "INVALID_INPUT"    // 输入无效
	ErrorCodeMalformedOutput = "MALFORMED_OUTPUT" // 生成输出无法解析
	ErrorCodeUpstreamFailure = "UPSTREAM_FAILURE" // 上游后端失败
	ErrorCodeInternalError   = "INTERNAL_ERROR"   // 内部错误
)

// 模块名称常量
const (
	ModuleFeature = "feature" // 特征模块
	ModuleModel   = "model"   // 打分模块
	ModuleExplain = "explain" // 解释模块
	ModuleExtract = "extract" // 结构化输出抽取
	ModuleLLM     = "llm"     // 生成后端
	ModuleStore   = "store"   // 存储模块
	ModuleRAG     = "rag"     // 检索增强
	ModuleExpert  = "expert"  // 编排模块
	ModuleConfig  = "config"  // 配置模块
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsMalformedOutput 检查错误是否为 MALFORMED_OUTPUT
func IsMalformedOutput(err error) bool { return hasCode(err, ErrorCodeMalformedOutput) }

// IsUpstreamFailure 检查错误是否为 UPSTREAM_FAILURE
func IsUpstreamFailure(err error) bool { return hasCode(err, ErrorCodeUpstreamFailure) }
