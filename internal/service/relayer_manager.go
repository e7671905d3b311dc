package service

import (
	"sync"

	"github.com/cresca-pay/vaultgate/internal/config"
	"github.com/cresca-pay/vaultgate/internal/model"
	"golang.org/x/time/rate"
)

// RelayerManager 管理中继方信息以及各自的限流器
type RelayerManager struct {
	mu             sync.RWMutex
	relayers       map[string]*model.Relayer // Key: Gateway ApiKey
	limiters       map[string]*rate.Limiter  // Key: RelayerID
	config         *config.Config
	defaultRelayer *model.Relayer
}

func NewRelayerManager(cfg *config.Config) *RelayerManager {
	rm := &RelayerManager{
		relayers: make(map[string]*model.Relayer),
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}

	// 配置化中继方 (优先)
	if len(cfg.Relayers) > 0 {
		for _, relayerCfg := range cfg.Relayers {
			rm.Register(&model.Relayer{
				ID:             relayerCfg.ID,
				Name:           relayerCfg.Name,
				ApiKey:         relayerCfg.APIKey,
				AllowedSigners: relayerCfg.Signers,
				Rate: model.RateLimitConfig{
					QPS:   relayerCfg.QPS,
					Burst: relayerCfg.Burst,
				},
			})
		}
		return rm
	}

	// 初始化默认中继方（兼容单接入方模式）
	defaultRelayer := &model.Relayer{
		ID:     "default-relayer",
		Name:   "Default Relayer",
		ApiKey: cfg.Auth.APIKey,
		Rate: model.RateLimitConfig{
			QPS:   10, // 默认 10 QPS
			Burst: 20,
		},
	}
	if defaultRelayer.ApiKey == "" {
		defaultRelayer.ApiKey = "sk-default-12345"
	}
	rm.Register(defaultRelayer)
	rm.defaultRelayer = defaultRelayer

	return rm
}

func (rm *RelayerManager) Register(r *model.Relayer) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r == nil {
		return
	}
	rm.relayers[r.ApiKey] = r

	// 初始化限流器。配置为 0 视为不限流。
	limit := rate.Limit(r.Rate.QPS)
	if limit == 0 {
		limit = rate.Inf
	}
	burst := r.Rate.Burst
	if burst == 0 {
		burst = 1
	}
	rm.limiters[r.ID] = rate.NewLimiter(limit, burst)
}

func (rm *RelayerManager) RemoveByID(id string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for key, relayer := range rm.relayers {
		if relayer != nil && relayer.ID == id {
			delete(rm.relayers, key)
			delete(rm.limiters, relayer.ID)
		}
	}
}

func (rm *RelayerManager) GetByID(id string) (*model.Relayer, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, relayer := range rm.relayers {
		if relayer != nil && relayer.ID == id {
			return relayer, true
		}
	}
	return nil, false
}

func (rm *RelayerManager) List() []*model.Relayer {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	results := make([]*model.Relayer, 0, len(rm.relayers))
	seen := make(map[string]struct{})
	for _, relayer := range rm.relayers {
		if relayer == nil {
			continue
		}
		if _, ok := seen[relayer.ID]; ok {
			continue
		}
		seen[relayer.ID] = struct{}{}
		results = append(results, relayer)
	}
	return results
}

func (rm *RelayerManager) GetByApiKey(apiKey string) (*model.Relayer, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.relayers[apiKey]
	return r, ok
}

func (rm *RelayerManager) DefaultRelayer() *model.Relayer {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.defaultRelayer
}

// GetLimiter 获取中继方的限流器
func (rm *RelayerManager) GetLimiter(relayerID string) *rate.Limiter {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.limiters[relayerID]
}
