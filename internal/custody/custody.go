// Package custody wraps the external token-transfer mechanism that moves
// collateral in and out of vault custody. The ledger only depends on the
// transfer succeeding or failing; settlement details live here.
package custody

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBank is an in-process custodian. It backs development mode and
// tests; production deployments plug a bridge to the settlement chain into
// the same interface.
type MemoryBank struct {
	mu       sync.Mutex
	wallets  map[string]uint64 // owner wallet balances
	vaults   map[string]uint64 // custody balance per vault key
	treasury map[string]uint64 // collected repayments per treasury identity

	// unlimited skips wallet balance enforcement; dev mode default
	unlimited bool
}

func NewMemoryBank(unlimited bool) *MemoryBank {
	return &MemoryBank{
		wallets:   make(map[string]uint64),
		vaults:    make(map[string]uint64),
		treasury:  make(map[string]uint64),
		unlimited: unlimited,
	}
}

// Fund credits an owner wallet. Test and dev seeding only.
func (b *MemoryBank) Fund(owner string, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wallets[owner] += amount
}

func (b *MemoryBank) Deposit(ctx context.Context, owner, vaultKey string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.unlimited {
		if b.wallets[owner] < amount {
			return fmt.Errorf("owner %s has %d, cannot transfer %d", owner, b.wallets[owner], amount)
		}
		b.wallets[owner] -= amount
	}
	b.vaults[vaultKey] += amount
	return nil
}

func (b *MemoryBank) Withdraw(ctx context.Context, owner, vaultKey string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vaults[vaultKey] < amount {
		return fmt.Errorf("vault custody %s holds %d, cannot release %d", vaultKey, b.vaults[vaultKey], amount)
	}
	b.vaults[vaultKey] -= amount
	b.wallets[owner] += amount
	return nil
}

func (b *MemoryBank) Collect(ctx context.Context, owner, treasury string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.unlimited {
		if b.wallets[owner] < amount {
			return fmt.Errorf("owner %s has %d, cannot repay %d", owner, b.wallets[owner], amount)
		}
		b.wallets[owner] -= amount
	}
	b.treasury[treasury] += amount
	return nil
}

// TreasuryBalance reports repayments collected for a treasury identity.
func (b *MemoryBank) TreasuryBalance(treasury string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.treasury[treasury]
}

// CustodyBalance reports the collateral held for a vault.
func (b *MemoryBank) CustodyBalance(vaultKey string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vaults[vaultKey]
}

// WalletBalance reports an owner's free balance.
func (b *MemoryBank) WalletBalance(owner string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wallets[owner]
}
