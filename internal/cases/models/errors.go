package models

import (
	"errors"

	dErrors "casework/pkg/domain-errors"
)

// Error kinds returned by case commands. Callers branch with errors.Is; transport maps the
// attached domain-error code. A command that returns one of these has changed nothing.
var (
	ErrMissingEvidence          = errors.New("missing evidence")
	ErrNoRecommendation         = errors.New("no recommendation")
	ErrDuplicateDocumentType    = errors.New("duplicate document type")
	ErrAlreadyReviewed          = errors.New("already reviewed")
	ErrAlreadySigned            = errors.New("already signed")
	ErrAlreadyCertified         = errors.New("already certified")
	ErrReviewRequiredFirst      = errors.New("review required first")
	ErrSignatureRequiredFirst   = errors.New("signature required first")
	ErrCaseLocked               = errors.New("case locked")
	ErrComparisonAlreadyPresent = errors.New("comparison already present")
	ErrActionNotRecommended     = errors.New("action not recommended")
	ErrActionAlreadySelected    = errors.New("action already selected")
	ErrStaleWrite               = errors.New("stale write")

	ErrInvalidTransition         = errors.New("invalid transition")
	ErrNoComplainant             = errors.New("no complainant")
	ErrNoActionSelected          = errors.New("no action selected")
	ErrDocumentNotApproved       = errors.New("generated document not approved")
	ErrEscalationNotSelected     = errors.New("escalation not selected")
	ErrDocumentNotFound          = errors.New("document not found")
	ErrDocumentApproved          = errors.New("generated document already approved")
	ErrInvalidTimestamp          = errors.New("invalid timestamp")
	ErrActionSelectionNotAllowed = errors.New("action selection not allowed")
	ErrCaseNumberTaken           = errors.New("case number taken")
)

func violation(kind error, msg string) error {
	return dErrors.Wrap(kind, dErrors.CodeInvariantViolation, msg)
}

func conflict(kind error, msg string) error {
	return dErrors.Wrap(kind, dErrors.CodeConflict, msg)
}

func missing(kind error, msg string) error {
	return dErrors.Wrap(kind, dErrors.CodeNotFound, msg)
}

func invalid(msg string) error {
	return dErrors.New(dErrors.CodeValidation, msg)
}

// IsValidation reports whether err is a boundary validation failure rather than a rejected
// transition.
func IsValidation(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeValidation)
}
