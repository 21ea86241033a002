package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goToken/claims"
	"github.com/MrEthical07/goToken/signing"
	"github.com/MrEthical07/goToken/token"
)

var (
	// ErrNoActiveKey is returned by Issue and Verify before the first rotation or install.
	ErrNoActiveKey = errors.New("no active key pair")
	// ErrNotRSAAlgorithm is returned when the manager is configured with a non-RSA algorithm.
	ErrNotRSAAlgorithm = errors.New("key manager requires an RSA algorithm")
	// ErrKeyPairMismatch is returned by Install when the public key does not belong to the private key.
	ErrKeyPairMismatch = errors.New("public key does not match private key")
)

// Config configures a Manager.
type Config struct {
	// Algorithm is the RSA algorithm used for issuance; defaults to RS256.
	Algorithm signing.Algorithm
	// Revocations, when set, is consulted by Verify and by the rotation re-encode pass.
	Revocations token.RevocationChecker
	// Now overrides the clock used for iat and expiry checks.
	Now func() time.Time
}

// Rotation is the result of Manager.Rotate.
type Rotation struct {
	KeyPair KeyPair
	// Reencoded maps every tracked token that verified under the previous pair
	// to its replacement signed with the new pair.
	Reencoded map[string]string
	// Dropped counts tracked tokens that no longer verified and were not migrated.
	Dropped int
}

// Manager owns the active RSA key pair and the set of tokens it issued.
//
// Verify and Active are lock-free. Issue may run concurrently with other
// Issue calls; Rotate and Install exclude Issue while they swap the pair.
type Manager struct {
	alg         signing.Algorithm
	revocations token.RevocationChecker
	now         func() time.Time

	active atomic.Pointer[KeyPair]

	rotateMu sync.Mutex
	// mu is held shared by Issue and exclusively while the pair is swapped.
	mu sync.RWMutex

	trackedMu sync.Mutex
	tracked   map[string]struct{}
}

// NewManager returns a Manager with no active pair.
func NewManager(cfg Config) (*Manager, error) {
	alg := cfg.Algorithm
	if alg == signing.AlgorithmUnknown {
		alg = signing.RS256
	}
	if alg.Family() != signing.FamilyRSA {
		return nil, fmt.Errorf("%w: %s", ErrNotRSAAlgorithm, alg)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		alg:         alg,
		revocations: cfg.Revocations,
		now:         now,
		tracked:     make(map[string]struct{}),
	}, nil
}

// Algorithm returns the signing algorithm of issued tokens.
func (m *Manager) Algorithm() signing.Algorithm {
	return m.alg
}

// Active returns a copy of the active pair.
func (m *Manager) Active() (KeyPair, bool) {
	p := m.active.Load()
	if p == nil {
		return KeyPair{}, false
	}
	return p.clone(), true
}

// Install adopts an existing pair without touching tracked tokens. It is meant
// for bootstrapping from configured key material.
func (m *Manager) Install(pair KeyPair) error {
	priv, err := signing.ParsePrivateKey(pair.PrivateKey)
	if err != nil {
		return err
	}
	pub, err := signing.ParsePublicKey(pair.PublicKey)
	if err != nil {
		return err
	}
	if !priv.PublicKey.Equal(pub) {
		return ErrKeyPairMismatch
	}

	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	next := pair.clone()
	m.active.Store(&next)
	return nil
}

// Issue signs payload with the active private key and tracks the result so a
// later Rotate re-signs it.
func (m *Manager) Issue(payload claims.Claims, opts token.EncodeOptions) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pair := m.active.Load()
	if pair == nil {
		return "", ErrNoActiveKey
	}
	if opts.Now == nil {
		opts.Now = m.now
	}
	tok, err := token.Encode(payload, m.alg, pair.PrivateKey, opts)
	if err != nil {
		return "", err
	}
	m.track(tok)
	return tok, nil
}

// Track registers a token issued elsewhere under the active pair. It fails
// with ErrNoActiveKey before the first Install or Rotate.
func (m *Manager) Track(tok string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active.Load() == nil {
		return ErrNoActiveKey
	}
	m.track(tok)
	return nil
}

func (m *Manager) track(tok string) {
	m.trackedMu.Lock()
	m.tracked[tok] = struct{}{}
	m.trackedMu.Unlock()
}

// Untrack removes tok from the tracked set.
func (m *Manager) Untrack(tok string) {
	m.trackedMu.Lock()
	delete(m.tracked, tok)
	m.trackedMu.Unlock()
}

// Tracked returns a point-in-time copy of the tracked tokens.
func (m *Manager) Tracked() []string {
	m.trackedMu.Lock()
	defer m.trackedMu.Unlock()
	out := make([]string, 0, len(m.tracked))
	for tok := range m.tracked {
		out = append(out, tok)
	}
	return out
}

// Verify decodes tok against the active public key.
func (m *Manager) Verify(ctx context.Context, tok string, req claims.Requirements) (claims.Claims, error) {
	pair := m.active.Load()
	if pair == nil {
		return nil, ErrNoActiveKey
	}
	return token.Decode(ctx, tok, m.alg, pair.PublicKey, token.DecodeOptions{
		Requirements: req,
		Revocations:  m.revocations,
		Now:          m.now,
	})
}

// Rotate generates a new pair, re-signs every tracked token that still
// verifies under the current pair, then adopts the new pair. Tokens that fail
// to verify (expired, revoked, tampered) are skipped, not reported as errors.
// The tracked set afterwards holds exactly the re-encoded tokens.
//
// The first rotation, with no active pair, returns an empty Reencoded map.
func (m *Manager) Rotate(ctx context.Context) (Rotation, error) {
	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	next, err := GenerateKeyPair()
	if err != nil {
		return Rotation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rotation := Rotation{Reencoded: make(map[string]string)}

	old := m.active.Load()
	if old != nil {
		for _, oldTok := range m.Tracked() {
			payload, err := token.Decode(ctx, oldTok, m.alg, old.PublicKey, token.DecodeOptions{
				Revocations: m.revocations,
				Now:         m.now,
			})
			if err != nil {
				rotation.Dropped++
				continue
			}
			newTok, err := token.Encode(payload, m.alg, next.PrivateKey, token.EncodeOptions{Now: m.now})
			if err != nil {
				rotation.Dropped++
				continue
			}
			rotation.Reencoded[oldTok] = newTok
		}
	}

	tracked := make(map[string]struct{}, len(rotation.Reencoded))
	for _, tok := range rotation.Reencoded {
		tracked[tok] = struct{}{}
	}
	m.trackedMu.Lock()
	m.tracked = tracked
	m.trackedMu.Unlock()

	m.active.Store(&next)
	rotation.KeyPair = next.clone()
	return rotation, nil
}
