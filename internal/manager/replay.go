package manager

import (
	"sync"

	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
)

// ReplayGuard tracks the highest accepted nonce per terminal signer key.
// A signed authorization is accepted only if its nonce is strictly greater
// than the last one seen for that key, so a captured request cannot be
// replayed against the gateway.
//
// State is per-instance. Multi-instance deployments additionally rely on
// the idempotency layer, which is shared through Redis.
type ReplayGuard struct {
	mu     sync.Mutex
	nonces map[string]uint64 // Key: signer public key (hex)
}

func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		nonces: make(map[string]uint64),
	}
}

// Check reports whether nonce is fresh for the signer without consuming it.
func (g *ReplayGuard) Check(signerKey string, nonce uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return nonce > g.nonces[signerKey]
}

// Consume accepts the nonce if it is fresh and records it. Returns false
// on a replay.
func (g *ReplayGuard) Consume(signerKey string, nonce uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if nonce <= g.nonces[signerKey] {
		logger.Warn("replayed nonce rejected", "signer", signerKey, "nonce", nonce)
		return false
	}
	g.nonces[signerKey] = nonce
	return true
}

// Reset clears the recorded nonce for a signer. Used when a terminal is
// re-provisioned and its counter starts over.
func (g *ReplayGuard) Reset(signerKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nonces, signerKey)
}
