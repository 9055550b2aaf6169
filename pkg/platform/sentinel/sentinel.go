package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Repositories and publishers return these
// (optionally wrapped) so the case service can translate them into domain errors.
//
//   - ErrNotFound: no case/policy is stored under the key
//   - ErrConflict: the stored version moved since it was read
//   - ErrAlreadyUsed: a unique key (such as a case number) is taken
//   - ErrUnavailable: backing store or broker temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
