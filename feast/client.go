// Package feast 提供 Feast Feature Store 的客户端与购买历史 Provider。
//
// 领域层只依赖 Client 接口与 core.HistoryStore；
// 基础设施层由官方 SDK 的 gRPC 实现承担。
package feast

import (
	"context"
	"time"
)

// Client 是 Feast 在线特征读取的客户端接口。
//
// 引擎只消费在线特征（实时推荐链路），离线特征与物化
// 属于特征平台侧的职责，不在此接口内。
type Client interface {
	// GetOnlineFeatures 获取在线特征（用于实时推荐）
	//
	// 参数：
	//   - features: 特征名称列表，例如 ["purchase_history:product_ids"]
	//   - entityRows: 实体行，例如 [{"customer_id": "c_1001"}]
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征名称列表，例如 ["purchase_history:product_ids"]
	Features []string

	// EntityRows 实体行，例如 [{"customer_id": "c_1001"}]
	EntityRows []map[string]any

	// Project 项目名称（可选，为空时取客户端默认值）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，每个元素对应一个实体行
	FeatureVectors []FeatureVector
}

// FeatureVector 特征向量
type FeatureVector struct {
	// Values 特征值，key 为特征名称
	Values map[string]any

	// EntityRow 对应的实体行
	EntityRow map[string]any
}

// ClientOption Feast 客户端配置选项
type ClientOption func(*ClientConfig)

// ClientConfig Feast 客户端配置
type ClientConfig struct {
	// Endpoint 服务端点
	Endpoint string

	// Project 项目名称
	Project string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息（nil 表示无认证）
	Auth *AuthConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	// Type 认证类型，目前支持 "static"（gRPC 静态 Token）
	Type string

	// Token 静态认证 Token
	Token string
}

// WithTimeout 配置选项：设置超时时间
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithStaticAuth 配置选项：使用静态 Token 认证
func WithStaticAuth(token string) ClientOption {
	return func(c *ClientConfig) {
		c.Auth = &AuthConfig{Type: "static", Token: token}
	}
}
