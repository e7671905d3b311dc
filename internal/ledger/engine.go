package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
	"github.com/cresca-pay/vaultgate/internal/pkg/metrics"
)

// Custodian moves collateral in and out of vault custody. Implementations
// wrap the external token-transfer mechanism; the engine only sees
// success/failure.
type Custodian interface {
	// Deposit moves amount from the owner's wallet into vault custody.
	Deposit(ctx context.Context, owner, vaultKey string, amount uint64) error
	// Withdraw moves amount from vault custody back to the owner.
	Withdraw(ctx context.Context, owner, vaultKey string, amount uint64) error
	// Collect moves a repayment from the owner to the protocol treasury.
	Collect(ctx context.Context, owner, treasury string, amount uint64) error
}

// Store is the write-through snapshot persistence behind the engine. The
// in-memory state is the source of truth; persistence failures are logged
// and never fail a ledger operation.
type Store interface {
	SaveProtocol(ctx context.Context, p *model.ProtocolState) error
	SaveVault(ctx context.Context, v *model.CreditVault) error
}

// Engine owns the protocol singleton and all credit vaults. Every externally
// invoked operation is atomic: it either commits all of its writes or none.
// Each vault is guarded by its own mutex and held for the full duration of
// an authorization, so concurrent payments against one vault execute
// serially.
type Engine struct {
	mu       sync.RWMutex // guards protocol state and map shape
	protocol *model.ProtocolState
	vaults   map[string]*vaultEntry
	perOwner map[string]int

	custody           Custodian
	store             Store
	now               func() time.Time
	defaultDailyLimit uint64
}

type vaultEntry struct {
	mu    sync.Mutex
	state model.CreditVault
}

type Option func(*Engine)

// WithClock overrides the engine clock. Tests use this to drive accrual and
// daily-window arithmetic deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithStore(store Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithDefaultDailyLimit overrides the daily cap new vaults start with.
func WithDefaultDailyLimit(limit uint64) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.defaultDailyLimit = limit
		}
	}
}

func NewEngine(custody Custodian, opts ...Option) *Engine {
	e := &Engine{
		vaults:            make(map[string]*vaultEntry),
		perOwner:          make(map[string]int),
		custody:           custody,
		now:               time.Now,
		defaultDailyLimit: model.DefaultDailyLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitializeProtocol creates the protocol singleton. Fails if one already
// exists; there is exactly one ProtocolState for the lifetime of the engine.
func (e *Engine) InitializeProtocol(ctx context.Context, authority, treasury string, defaultLTVBps, baseRateBps uint64) (*model.ProtocolState, error) {
	if defaultLTVBps < model.MinLTVBps || defaultLTVBps > model.MaxLTVBps {
		return nil, apperrors.Newf(apperrors.ErrInvalidLTV, "default ltv %d bps out of range [%d, %d]", defaultLTVBps, model.MinLTVBps, model.MaxLTVBps)
	}
	if baseRateBps > model.MaxInterestRateBps {
		return nil, apperrors.Newf(apperrors.ErrInvalidInterestRate, "base rate %d bps exceeds cap %d", baseRateBps, model.MaxInterestRateBps)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.protocol != nil {
		return nil, apperrors.New(apperrors.ErrProtocolExists, "protocol already initialized", nil)
	}

	now := e.now()
	e.protocol = &model.ProtocolState{
		Authority:           authority,
		Treasury:            treasury,
		DefaultLTVBps:       defaultLTVBps,
		BaseInterestRateBps: baseRateBps,
		Paused:              false,
		CreatedAt:           now,
		LastUpdate:          now,
	}
	snapshot := *e.protocol
	e.persistProtocol(ctx, &snapshot)
	logger.Info("protocol initialized", "authority", authority, "default_ltv_bps", defaultLTVBps, "base_rate_bps", baseRateBps)
	return &snapshot, nil
}

// Hydrate seeds the engine from persisted snapshots. Called once at startup,
// before the gateway starts serving.
func (e *Engine) Hydrate(protocol *model.ProtocolState, vaults []*model.CreditVault) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if protocol != nil {
		p := *protocol
		e.protocol = &p
	}
	for _, v := range vaults {
		vv := *v
		e.vaults[vv.Key()] = &vaultEntry{state: vv}
		e.perOwner[vv.Owner]++
	}
	e.refreshGauges()
}

// Protocol returns a copy of the protocol state.
func (e *Engine) Protocol() (*model.ProtocolState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.protocol == nil {
		return nil, apperrors.New(apperrors.ErrProtocolNotInitialized, "protocol not initialized", nil)
	}
	p := *e.protocol
	return &p, nil
}

// Pause flips the circuit breaker. Authority-gated; the flag is observed by
// the next operation to start, never mid-flight.
func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.protocol == nil {
		return apperrors.New(apperrors.ErrProtocolNotInitialized, "protocol not initialized", nil)
	}
	if caller != e.protocol.Authority {
		return apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	e.protocol.Paused = paused
	e.protocol.LastUpdate = e.now()
	snapshot := *e.protocol
	e.persistProtocol(ctx, &snapshot)
	logger.Warn("protocol pause flag changed", "paused", paused, "caller", caller)
	return nil
}

// SetAuthority rotates the protocol authority.
func (e *Engine) SetAuthority(ctx context.Context, caller, next string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.protocol == nil {
		return apperrors.New(apperrors.ErrProtocolNotInitialized, "protocol not initialized", nil)
	}
	if caller != e.protocol.Authority {
		return apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	if next == "" {
		return apperrors.NewInvalidRequest("new authority must not be empty")
	}
	e.protocol.Authority = next
	e.protocol.LastUpdate = e.now()
	snapshot := *e.protocol
	e.persistProtocol(ctx, &snapshot)
	logger.Warn("protocol authority rotated", "previous", caller, "next", next)
	return nil
}

// GetVault returns a snapshot of the vault.
func (e *Engine) GetVault(owner string, vaultID uint64) (*model.CreditVault, error) {
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	v := entry.state
	return &v, nil
}

// ListVaults returns snapshots of every vault, for admin tooling.
func (e *Engine) ListVaults() []*model.CreditVault {
	e.mu.RLock()
	entries := make([]*vaultEntry, 0, len(e.vaults))
	for _, entry := range e.vaults {
		entries = append(entries, entry)
	}
	e.mu.RUnlock()

	out := make([]*model.CreditVault, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		v := entry.state
		entry.mu.Unlock()
		out = append(out, &v)
	}
	return out
}

// checkOperational reads the pause flag (and protocol presence) at the start
// of every vault-mutating call.
func (e *Engine) checkOperational() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.protocol == nil {
		return apperrors.New(apperrors.ErrProtocolNotInitialized, "protocol not initialized", nil)
	}
	if e.protocol.Paused {
		return apperrors.New(apperrors.ErrProtocolPaused, "protocol is paused", nil)
	}
	return nil
}

func (e *Engine) authority() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.protocol == nil {
		return ""
	}
	return e.protocol.Authority
}

func (e *Engine) treasury() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.protocol == nil {
		return ""
	}
	return e.protocol.Treasury
}

func (e *Engine) entry(owner string, vaultID uint64) (*vaultEntry, error) {
	key := model.VaultKey(owner, vaultID)
	e.mu.RLock()
	entry, ok := e.vaults[key]
	e.mu.RUnlock()
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrVaultNotFound, "vault %s not found", key)
	}
	return entry, nil
}

// updateAggregates applies a delta to the protocol aggregates. Aggregates
// are reporting counters; they saturate instead of failing the operation
// that produced them.
func (e *Engine) updateAggregates(ctx context.Context, apply func(p *model.ProtocolState)) {
	e.mu.Lock()
	if e.protocol == nil {
		e.mu.Unlock()
		return
	}
	apply(e.protocol)
	e.protocol.LastUpdate = e.now()
	snapshot := *e.protocol
	e.refreshGauges()
	e.mu.Unlock()
	e.persistProtocol(ctx, &snapshot)
}

// refreshGauges mirrors aggregates into prometheus. Caller holds e.mu.
func (e *Engine) refreshGauges() {
	if e.protocol == nil {
		return
	}
	metrics.VaultsTotal.Set(float64(e.protocol.TotalVaults))
	metrics.CollateralTotal.Set(float64(e.protocol.TotalCollateral))
	metrics.OutstandingTotal.Set(float64(e.protocol.TotalOutstanding))
}

func (e *Engine) persistProtocol(ctx context.Context, p *model.ProtocolState) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveProtocol(ctx, p); err != nil {
		logger.Error("failed to persist protocol snapshot", "error", err)
	}
}

func (e *Engine) persistVault(ctx context.Context, v model.CreditVault) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveVault(ctx, &v); err != nil {
		logger.Error("failed to persist vault snapshot", "vault", v.Key(), "error", err)
	}
}

// satAdd is a saturating add for reporting aggregates.
func satAdd(a, b uint64) uint64 {
	if sum, ok := model.AddChecked(a, b); ok {
		return sum
	}
	return ^uint64(0)
}

// satSub floors at zero.
func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
