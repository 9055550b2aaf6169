package domain

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces UUIDv4 identifiers. Commands receive one explicitly so tests can pin
// identities instead of relying on a global random source.
type IDGenerator interface {
	NewUUID() uuid.UUID
}

// RandomIDs draws identifiers from crypto/rand via uuid.New.
type RandomIDs struct{}

func (RandomIDs) NewUUID() uuid.UUID {
	return uuid.New()
}

// SeededIDs yields a reproducible sequence of valid version-4 UUIDs for a given seed.
type SeededIDs struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededIDs(seed uint64) *SeededIDs {
	return &SeededIDs{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededIDs) NewUUID() uuid.UUID {
	s.mu.Lock()
	var raw [16]byte
	binary.LittleEndian.PutUint64(raw[0:8], s.rng.Uint64())
	binary.LittleEndian.PutUint64(raw[8:16], s.rng.Uint64())
	s.mu.Unlock()

	// NewRandomFromReader stamps the version and variant bits onto the 16 bytes it reads.
	u, err := uuid.NewRandomFromReader(bytes.NewReader(raw[:]))
	if err != nil {
		panic("domain: seeded uuid: " + err.Error())
	}
	return u
}
