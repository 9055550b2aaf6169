// Package policy indexes workplace policies and answers keyword searches over their sections.
//
// The index only reflects what it is given. Which policy is active for an organization is
// decided by Registry.
package policy

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
	pstrings "casework/pkg/platform/strings"
)

// Validate checks the policy header and its section tree. Parents must exist within the same
// policy and the parent chain may not loop.
func Validate(p Policy) error {
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "policy id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "policy name is required")
	}
	if !p.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid policy status: "+string(p.Status))
	}

	parents := make(map[domain.SectionID]*domain.SectionID, len(p.Sections))
	for _, s := range p.Sections {
		if s.ID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "section id is required")
		}
		if _, dup := parents[s.ID]; dup {
			return dErrors.New(dErrors.CodeValidation, "duplicate section id "+s.ID.String())
		}
		parents[s.ID] = s.ParentID
	}
	for id, parent := range parents {
		if parent != nil {
			if _, ok := parents[*parent]; !ok {
				return dErrors.New(dErrors.CodeValidation, "section "+id.String()+" references unknown parent "+parent.String())
			}
		}
		// Walking more steps than there are sections means the chain revisits a node.
		cur, steps := parent, 0
		for cur != nil {
			if *cur == id || steps > len(parents) {
				return dErrors.New(dErrors.CodeValidation, "section "+id.String()+" is part of a parent cycle")
			}
			cur = parents[*cur]
			steps++
		}
	}
	return nil
}

// indexed is a validated policy with sections in search order and keywords normalized.
type indexed struct {
	policy   Policy
	ordered  []Section
	keywords [][]string
}

func newIndexed(p Policy) (*indexed, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	p = p.Clone()
	for i := range p.Sections {
		p.Sections[i].Type = p.Sections[i].Type.Normalize()
		p.Sections[i].Keywords = pstrings.CleanList(p.Sections[i].Keywords)
	}

	ordered := slices.Clone(p.Sections)
	slices.SortStableFunc(ordered, func(a, b Section) int {
		return cmp.Compare(a.OrderIndex, b.OrderIndex)
	})
	keywords := make([][]string, len(ordered))
	for i, s := range ordered {
		keywords[i] = pstrings.FoldList(s.Keywords)
	}
	return &indexed{policy: p, ordered: ordered, keywords: keywords}, nil
}

func (ix *indexed) search(query string, types []SectionType) []Section {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	var out []Section
	for i, s := range ix.ordered {
		if len(types) > 0 && !slices.Contains(types, s.Type) {
			continue
		}
		if pstrings.ContainsFold(s.Title, q) || pstrings.ContainsFold(s.Content, q) ||
			pstrings.AnyContainsFold(ix.keywords[i], q) {
			out = append(out, s.clone())
		}
	}
	return out
}

// Search returns the sections of p whose title, content or keywords contain query,
// case-insensitively, in section order. Results are not ranked. A blank query matches nothing.
func Search(p Policy, query string) ([]Section, error) {
	ix, err := newIndexed(p)
	if err != nil {
		return nil, err
	}
	return ix.search(query, nil), nil
}

// Index holds validated policies for repeated searches. Safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	policies map[domain.PolicyID]*indexed
}

// NewIndex validates and indexes the given policies.
func NewIndex(policies ...Policy) (*Index, error) {
	ix := &Index{policies: make(map[domain.PolicyID]*indexed, len(policies))}
	for _, p := range policies {
		if err := ix.Put(p); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Put indexes p, replacing any earlier version with the same id.
func (ix *Index) Put(p Policy) error {
	entry, err := newIndexed(p)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.policies[p.ID] = entry
	return nil
}

// Get returns a copy of the indexed policy.
func (ix *Index) Get(id domain.PolicyID) (Policy, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.policies[id]
	if !ok {
		return Policy{}, sentinel.ErrNotFound
	}
	return entry.policy.Clone(), nil
}

// Search runs a keyword search over one indexed policy, optionally restricted to section types.
func (ix *Index) Search(id domain.PolicyID, query string, types ...SectionType) ([]Section, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.policies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return entry.search(query, types), nil
}

// Section looks up a section by id within a policy.
func (ix *Index) Section(policyID domain.PolicyID, sectionID domain.SectionID) (Section, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.policies[policyID]
	if !ok {
		return Section{}, sentinel.ErrNotFound
	}
	for _, s := range entry.ordered {
		if s.ID == sectionID {
			return s.clone(), nil
		}
	}
	return Section{}, sentinel.ErrNotFound
}
