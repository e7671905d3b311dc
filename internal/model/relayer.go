package model

// RateLimitConfig 定义接入方的限流规则
type RateLimitConfig struct {
	QPS   float64 `json:"qps"`
	Burst int     `json:"burst"`
}

// Relayer 代表一个接入方：提交授权请求的桥接/中继进程
type Relayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	ApiKey string `json:"api_key"` // 网关颁发给中继方的 Access Key

	// Terminal public keys (ed25519, hex) allowed to countersign
	// authorization payloads for this relayer. Empty = no signature checks.
	AllowedSigners []string `json:"allowed_signers,omitempty"`

	Rate RateLimitConfig `json:"rate_limit"`
}
