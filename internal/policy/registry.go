package policy

import (
	"cmp"
	"slices"
	"sync"

	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
)

// Registry tracks every policy version per organization and owns activation.
//
// Invariant: at most one policy per organization has StatusActive.
type Registry struct {
	mu       sync.RWMutex
	policies map[domain.PolicyID]Policy
	index    *Index
}

// NewRegistry returns a registry that keeps ix in sync with registered policies.
// A nil ix creates a private index.
func NewRegistry(ix *Index) *Registry {
	if ix == nil {
		ix = &Index{policies: make(map[domain.PolicyID]*indexed)}
	}
	return &Registry{policies: make(map[domain.PolicyID]Policy), index: ix}
}

// Index exposes the search index fed by the registry. Statuses reported by the index are those
// at registration; Get is authoritative.
func (r *Registry) Index() *Index {
	return r.index
}

// Register stores a policy. Policies arriving as active go through Activate so the
// single-active rule holds.
func (r *Registry) Register(p Policy) error {
	if err := Validate(p); err != nil {
		return err
	}
	wantActive := p.Status == StatusActive
	if wantActive {
		p.Status = StatusDraft
	}

	r.mu.Lock()
	if _, exists := r.policies[p.ID]; exists {
		r.mu.Unlock()
		return dErrors.Wrap(sentinel.ErrAlreadyUsed, dErrors.CodeConflict, "policy "+p.ID.String()+" is already registered")
	}
	if err := r.index.Put(p); err != nil {
		r.mu.Unlock()
		return err
	}
	r.policies[p.ID] = p.Clone()
	r.mu.Unlock()

	if wantActive {
		_, err := r.Activate(p.ID)
		return err
	}
	return nil
}

// Activate makes the policy the organization's active one. A previously active policy of the
// same organization becomes superseded; it is returned when there was one.
func (r *Registry) Activate(id domain.PolicyID) (*Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.policies[id]
	if !ok {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "policy "+id.String()+" not found")
	}
	if target.Status == StatusArchived {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "archived policy "+id.String()+" cannot be activated")
	}
	if target.Status == StatusActive {
		return nil, nil
	}

	var superseded *Policy
	for pid, p := range r.policies {
		if p.OrganizationID == target.OrganizationID && p.Status == StatusActive {
			p.Status = StatusSuperseded
			r.policies[pid] = p
			prev := p.Clone()
			superseded = &prev
		}
	}
	target.Status = StatusActive
	r.policies[id] = target
	return superseded, nil
}

// Archive retires a policy. Archiving the active policy leaves the organization without one.
func (r *Registry) Archive(id domain.PolicyID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[id]
	if !ok {
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "policy "+id.String()+" not found")
	}
	p.Status = StatusArchived
	r.policies[id] = p
	return nil
}

// Active returns the organization's active policy.
func (r *Registry) Active(organizationID string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.policies {
		if p.OrganizationID == organizationID && p.Status == StatusActive {
			return p.Clone(), nil
		}
	}
	return Policy{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "organization "+organizationID+" has no active policy")
}

// Get returns a registered policy with its current status.
func (r *Registry) Get(id domain.PolicyID) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok {
		return Policy{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "policy "+id.String()+" not found")
	}
	return p.Clone(), nil
}

// List returns the organization's policies ordered by version.
func (r *Registry) List(organizationID string) []Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Policy
	for _, p := range r.policies {
		if p.OrganizationID == organizationID {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Policy) int {
		return cmp.Or(cmp.Compare(a.Version, b.Version), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return out
}
