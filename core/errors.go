package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误传播策略（训练侧与服务侧刻意不对称）：
//   - 训练侧错误（DATA_INSUFFICIENT 等）向批处理任务调用方大声失败
//   - 服务侧错误（BUNDLE_LOAD / TIMEOUT / UNAVAILABLE）由降级链路吸收，
//     只记录日志，绝不透传给推荐请求的调用方
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DATA_INSUFFICIENT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "model", "bundle"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
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

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 依赖/服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐引擎专用错误代码
	ErrorCodeDataInsufficient = "DATA_INSUFFICIENT" // 训练序列不足（致命，训练侧）
	ErrorCodeParse            = "PARSE"             // 单个事件 payload 解析失败（非致命）
	ErrorCodeBundleLoad       = "BUNDLE_LOAD"       // 模型包加载失败（服务侧降级）
	ErrorCodeTimeout          = "TIMEOUT"           // 外部调用超时（服务侧降级）
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleExtract   = "extract"   // 序列抽取模块
	ModuleModel     = "model"     // 向量模型模块
	ModuleIndex     = "index"     // 相似度索引模块
	ModuleBundle    = "bundle"    // 模型包模块
	ModuleRecommend = "recommend" // 在线推荐模块
	ModuleRegistry  = "registry"  // 模型版本登记模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsDataInsufficient 检查错误是否为训练数据不足
func IsDataInsufficient(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeDataInsufficient
	}
	return false
}

// IsBundleLoad 检查错误是否为模型包加载失败
func IsBundleLoad(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeBundleLoad
	}
	return false
}

// IsTimeout 检查错误是否为外部调用超时
func IsTimeout(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeTimeout
	}
	return false
}
