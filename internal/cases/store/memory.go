package store

import (
	"context"
	"sync"

	"casework/internal/cases/models"
	"casework/pkg/domain"
)

// Memory keeps encoded case documents in process. Storing bytes rather than pointers keeps loaded
// cases independent of each other and of the stored copy.
type Memory struct {
	mu       sync.RWMutex
	docs     map[domain.CaseID][]byte
	byNumber map[string]domain.CaseID
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[domain.CaseID][]byte),
		byNumber: make(map[string]domain.CaseID),
	}
}

func (m *Memory) Create(_ context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byNumber[c.CaseNumber()]; taken {
		return numberTaken(c.CaseNumber())
	}
	if _, exists := m.docs[c.ID()]; exists {
		return caseExists(c.ID())
	}
	m.docs[c.ID()] = data
	m.byNumber[c.CaseNumber()] = c.ID()
	c.MarkPersisted()
	return nil
}

func (m *Memory) Load(_ context.Context, id domain.CaseID) (*models.ConflictCase, error) {
	m.mu.RLock()
	data, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, caseNotFound(id.String())
	}
	return Unmarshal(data)
}

func (m *Memory) FindByNumber(ctx context.Context, caseNumber string) (*models.ConflictCase, error) {
	m.mu.RLock()
	id, ok := m.byNumber[caseNumber]
	m.mu.RUnlock()
	if !ok {
		return nil, caseNotFound(caseNumber)
	}
	return m.Load(ctx, id)
}

func (m *Memory) Save(_ context.Context, c *models.ConflictCase) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.docs[c.ID()]
	if !ok {
		return caseNotFound(c.ID().String())
	}
	current, err := stamp(stored)
	if err != nil {
		return err
	}
	if !current.matches(c) {
		return staleWrite(c)
	}
	m.docs[c.ID()] = data
	c.MarkPersisted()
	return nil
}

// Len reports the number of stored cases.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
