// Package evidence implements the tamper-evident decision trail: a
// hash-chained append-only log with a Merkle root and optional ed25519
// signatures over the most recent entry.
package evidence

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is a single evidence record. The canonical form hashed into the
// chain is the encoding/json serialisation of this struct: field order is
// fixed by declaration, and the payload is embedded as the JSON bytes it was
// appended with (compacted, keys not re-ordered), so the hash is
// reproducible across processes.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  [32]byte        `json:"prev_hash"`
}

// Hash returns the SHA-256 of the entry's canonical serialisation.
func (e *Entry) Hash() [32]byte {
	bytes, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("evidence: entry serialization failed: %v", err))
	}
	return sha256.Sum256(bytes)
}

// BrokenChainError reports the first chain link that failed verification.
type BrokenChainError struct {
	Index    int
	Expected [32]byte
	Actual   [32]byte
}

func (e *BrokenChainError) Error() string {
	return fmt.Sprintf("hash chain broken at index %d: expected %s, got %s",
		e.Index, hex.EncodeToString(e.Expected[:]), hex.EncodeToString(e.Actual[:]))
}

// Pack is the append-only evidence log. Appends are single-writer; reads
// take snapshots under the same lock.
type Pack struct {
	mu         sync.Mutex
	entries    []Entry
	signingKey ed25519.PrivateKey
}

// NewPack creates a pack without signing capability.
func NewPack() *Pack {
	return &Pack{}
}

// NewSigningPack creates a pack with a freshly generated ed25519 key pair.
func NewSigningPack() (*Pack, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &Pack{signingKey: priv}, nil
}

// Append adds an entry for the given event type and payload, maintaining the
// hash chain. The payload must be valid JSON.
func (p *Pack) Append(eventType string, payload json.RawMessage) Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var prevHash [32]byte
	if n := len(p.entries); n > 0 {
		prevHash = p.entries[n-1].Hash()
	}

	entry := Entry{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Payload:   payload,
		PrevHash:  prevHash,
	}
	p.entries = append(p.entries, entry)
	return entry
}

// Entries returns a copy of all entries.
func (p *Pack) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries in the pack.
func (p *Pack) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// TamperPayload overwrites the payload at index i. Exposed for tamper-detection
// tests; not part of the production surface.
func (p *Pack) TamperPayload(i int, payload json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= 0 && i < len(p.entries) {
		p.entries[i].Payload = payload
	}
}

// VerifyChain checks every link: entry 0 must carry the zero hash, and every
// later entry's prev_hash must equal the hash of its predecessor.
func (p *Pack) VerifyChain() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.entries {
		var expected [32]byte
		if i > 0 {
			expected = p.entries[i-1].Hash()
		}
		if p.entries[i].PrevHash != expected {
			return &BrokenChainError{
				Index:    i,
				Expected: expected,
				Actual:   p.entries[i].PrevHash,
			}
		}
	}
	return nil
}

// MerkleRoot computes the Merkle tree root over all entries. Leaf hashes are
// the entry hashes; an odd layer duplicates its last leaf. An empty pack
// yields the zero hash.
func (p *Pack) MerkleRoot() [32]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return [32]byte{}
	}

	layer := make([][32]byte, len(p.entries))
	for i := range p.entries {
		layer[i] = p.entries[i].Hash()
	}

	for len(layer) > 1 {
		if len(layer)%2 != 0 {
			layer = append(layer, layer[len(layer)-1])
		}
		next := make([][32]byte, 0, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			h := sha256.New()
			h.Write(layer[i][:])
			h.Write(layer[i+1][:])
			var combined [32]byte
			copy(combined[:], h.Sum(nil))
			next = append(next, combined)
		}
		layer = next
	}
	return layer[0]
}

// SignLast signs the canonical serialisation of the last entry with the
// pack's ed25519 key. Returns nil when there is no key or no entries.
func (p *Pack) SignLast() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.signingKey == nil || len(p.entries) == 0 {
		return nil
	}
	last := &p.entries[len(p.entries)-1]
	bytes, err := json.Marshal(last)
	if err != nil {
		panic(fmt.Sprintf("evidence: entry serialization failed: %v", err))
	}
	return ed25519.Sign(p.signingKey, bytes)
}

// VerifySignature checks an ed25519 signature of the last entry against the
// given public key. Returns false for an empty pack or malformed key.
func (p *Pack) VerifySignature(signature, publicKey []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(publicKey) != ed25519.PublicKeySize || len(p.entries) == 0 {
		return false
	}
	last := &p.entries[len(p.entries)-1]
	bytes, err := json.Marshal(last)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), bytes, signature)
}

// PublicKey returns the verifying key bytes, or nil when unsigned.
func (p *Pack) PublicKey() []byte {
	if p.signingKey == nil {
		return nil
	}
	return p.signingKey.Public().(ed25519.PublicKey)
}
