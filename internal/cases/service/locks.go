package service

import (
	"sync"

	"casework/pkg/domain"
)

// numCaseShards spreads per-case serialization over a fixed set of mutexes. Two cases that hash
// to the same shard wait for each other; two commands on one case always do.
const numCaseShards = 128

type caseLocks struct {
	shards [numCaseShards]sync.Mutex
}

func newCaseLocks() *caseLocks {
	return &caseLocks{}
}

// lock acquires the shard for id and returns its release.
func (l *caseLocks) lock(id domain.CaseID) func() {
	m := &l.shards[hashCaseID(id)%numCaseShards]
	m.Lock()
	return m.Unlock
}

// hashCaseID is FNV-1a over the raw uuid bytes.
func hashCaseID(id domain.CaseID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range id {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return h
}
