package service

import (
	"context"

	"github.com/cresca-pay/vaultgate/internal/config"
	"github.com/cresca-pay/vaultgate/internal/ledger"
	"github.com/cresca-pay/vaultgate/internal/manager"
	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
	"github.com/cresca-pay/vaultgate/internal/signer"
	"github.com/cresca-pay/vaultgate/internal/stream"
)

// VaultService 是 HTTP 层和账本引擎之间的业务门面：
// 负责签名校验、事件广播，真正的账本规则都在 ledger.Engine 里。
type VaultService struct {
	engine *ledger.Engine
	hub    *stream.Hub
	config *config.Config
	replay *manager.ReplayGuard
}

func NewVaultService(cfg *config.Config, engine *ledger.Engine, hub *stream.Hub) *VaultService {
	return &VaultService{
		engine: engine,
		hub:    hub,
		config: cfg,
		replay: manager.NewReplayGuard(),
	}
}

func (s *VaultService) Engine() *ledger.Engine {
	return s.engine
}

func (s *VaultService) CreateVault(ctx context.Context, req model.CreateVaultRequest) (*model.CreditVault, error) {
	vault, err := s.engine.InitializeVault(ctx, req.Owner, req.VaultID)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

func (s *VaultService) Deposit(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	vault, err := s.engine.DepositCollateral(ctx, owner, vaultID, amount)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

func (s *VaultService) Withdraw(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	vault, err := s.engine.WithdrawCollateral(ctx, owner, vaultID, amount)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

func (s *VaultService) Repay(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	vault, err := s.engine.RepayCredit(ctx, owner, vaultID, amount)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

// Authorize runs the payment state machine. The relayer's configured signer
// list gates whether a terminal countersignature is demanded.
func (s *VaultService) Authorize(ctx context.Context, relayer *model.Relayer, req model.AuthorizePaymentRequest) (*model.AuthorizePaymentResponse, error) {
	if err := s.verifySignature(relayer, req); err != nil {
		return nil, err
	}

	result, err := s.engine.AuthorizePayment(ctx, req.Owner, req.VaultID, req.Merchant, req.Amount)
	if err != nil {
		return nil, err
	}

	resp := &model.AuthorizePaymentResponse{
		Approved:        result.Approved,
		Reason:          result.Reason,
		NewOutstanding:  result.NewOutstanding,
		AvailableCredit: result.AvailableCredit,
		AmountDisplay:   model.FormatUnits(req.Amount),
	}

	eventType := stream.EventPaymentApproved
	if !result.Approved {
		eventType = stream.EventPaymentDeclined
	}
	s.publish(stream.Event{
		Type:    eventType,
		Owner:   req.Owner,
		VaultID: req.VaultID,
		Data: map[string]interface{}{
			"merchant":         req.Merchant,
			"amount":           req.Amount,
			"reason":           result.Reason,
			"new_outstanding":  result.NewOutstanding,
			"available_credit": result.AvailableCredit,
		},
	})

	return resp, nil
}

func (s *VaultService) verifySignature(relayer *model.Relayer, req model.AuthorizePaymentRequest) error {
	required := s.config != nil && s.config.Auth.RequireSignature
	var signerKeys []string
	if relayer != nil {
		signerKeys = relayer.AllowedSigners
	}
	if !required && len(signerKeys) == 0 {
		return nil
	}

	if req.Signature == "" {
		return apperrors.New(apperrors.ErrUnauthorized, "terminal signature required", nil)
	}

	payment := &signer.Payment{
		Owner:    req.Owner,
		VaultID:  req.VaultID,
		Merchant: req.Merchant,
		Amount:   req.Amount,
		Nonce:    req.Nonce,
		IssuedAt: req.IssuedAt,
	}

	// 请求可以指明用哪把已登记的公钥验签，否则逐一尝试
	matchedKey := ""
	if req.SignerKey != "" {
		if !containsKey(signerKeys, req.SignerKey) {
			return apperrors.New(apperrors.ErrUnauthorized, "signer key not registered for relayer", nil)
		}
		if err := signer.VerifyPaymentSignature(payment, req.Signature, req.SignerKey); err != nil {
			return apperrors.New(apperrors.ErrUnauthorized, "invalid terminal signature", err)
		}
		matchedKey = req.SignerKey
	} else {
		if len(signerKeys) == 0 {
			// 全局要求签名但该中继方没有登记公钥
			return apperrors.New(apperrors.ErrUnauthorized, "no signer keys registered for relayer", nil)
		}
		for _, key := range signerKeys {
			if signer.VerifyPaymentSignature(payment, req.Signature, key) == nil {
				matchedKey = key
				break
			}
		}
		if matchedKey == "" {
			return apperrors.New(apperrors.ErrUnauthorized, "invalid terminal signature", nil)
		}
	}

	// 签名有效，再拦截重放
	if req.Nonce > 0 && !s.replay.Consume(matchedKey, req.Nonce) {
		return apperrors.New(apperrors.ErrUnauthorized, "nonce already used", nil)
	}
	return nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func (s *VaultService) publishVault(v *model.CreditVault) {
	if v == nil {
		return
	}
	s.publish(stream.Event{
		Type:    stream.EventVaultUpdated,
		Owner:   v.Owner,
		VaultID: v.VaultID,
		Data: map[string]interface{}{
			"collateral_amount":   v.CollateralAmount,
			"credit_limit":        v.CreditLimit,
			"outstanding_balance": v.OutstandingBalance,
			"active":              v.Active,
		},
	})
}

func (s *VaultService) publish(ev stream.Event) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ev)
}

// ---- Admin operations ----
// 管理接口由 AdminMiddleware 鉴权，执行时以当前协议 authority 的身份落账。

func (s *VaultService) Pause(ctx context.Context) error {
	caller, err := s.currentAuthority()
	if err != nil {
		return err
	}
	if err := s.engine.Pause(ctx, caller); err != nil {
		return err
	}
	logger.Warn("protocol paused", "authority", caller)
	s.publish(stream.Event{Type: stream.EventProtocolPaused})
	return nil
}

func (s *VaultService) Unpause(ctx context.Context) error {
	caller, err := s.currentAuthority()
	if err != nil {
		return err
	}
	if err := s.engine.Unpause(ctx, caller); err != nil {
		return err
	}
	logger.Info("protocol resumed", "authority", caller)
	s.publish(stream.Event{Type: stream.EventProtocolResumed})
	return nil
}

func (s *VaultService) SetAuthority(ctx context.Context, next string) error {
	caller, err := s.currentAuthority()
	if err != nil {
		return err
	}
	return s.engine.SetAuthority(ctx, caller, next)
}

func (s *VaultService) SetVaultRisk(ctx context.Context, owner string, vaultID, ltvBps, rateBps uint64) (*model.CreditVault, error) {
	caller, err := s.currentAuthority()
	if err != nil {
		return nil, err
	}
	vault, err := s.engine.SetVaultRisk(ctx, caller, owner, vaultID, ltvBps, rateBps)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

func (s *VaultService) SetDailyLimit(ctx context.Context, owner string, vaultID, limit uint64) (*model.CreditVault, error) {
	caller, err := s.currentAuthority()
	if err != nil {
		return nil, err
	}
	return s.engine.SetDailyLimit(ctx, caller, owner, vaultID, limit)
}

func (s *VaultService) SetVaultActive(ctx context.Context, owner string, vaultID uint64, active bool) (*model.CreditVault, error) {
	caller, err := s.currentAuthority()
	if err != nil {
		return nil, err
	}
	vault, err := s.engine.SetVaultActive(ctx, caller, owner, vaultID, active)
	if err != nil {
		return nil, err
	}
	s.publishVault(vault)
	return vault, nil
}

func (s *VaultService) RefreshInterestRate(ctx context.Context, owner string, vaultID uint64) (*model.CreditVault, error) {
	caller, err := s.currentAuthority()
	if err != nil {
		return nil, err
	}
	return s.engine.RefreshInterestRate(ctx, caller, owner, vaultID)
}

func (s *VaultService) currentAuthority() (string, error) {
	p, err := s.engine.Protocol()
	if err != nil {
		return "", err
	}
	return p.Authority, nil
}
