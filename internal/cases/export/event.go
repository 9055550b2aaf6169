// Package export ships case audit entries to downstream consumers.
//
// Every audit entry a command appends becomes one Event. Compliance events (status transitions
// and document attestations) are published synchronously and a failure fails the caller.
// Operational events are buffered and published in the background; under pressure the oldest
// are dropped.
package export

import (
	"context"
	"time"

	"github.com/google/uuid"

	"casework/internal/cases/models"
	"casework/pkg/domain"
	"casework/pkg/requestcontext"
)

// Event is the exported form of one audit entry. Consumers deduplicate on ID.
type Event struct {
	ID         uuid.UUID            `json:"id"`
	CaseID     domain.CaseID        `json:"caseId"`
	CaseNumber string               `json:"caseNumber"`
	Seq        int                  `json:"seq"`
	Category   models.AuditCategory `json:"category"`
	Action     models.AuditAction   `json:"action"`
	Details    string               `json:"details"`
	ActorID    string               `json:"actorId"`
	ActorName  string               `json:"actorName"`
	Timestamp  time.Time            `json:"timestamp"`
	RequestID  string               `json:"requestId,omitempty"`
}

// FromCase builds events for the audit entries appended after the first from entries.
// Seq is the entry's position in the case's insertion-ordered log.
func FromCase(ctx context.Context, c *models.ConflictCase, from int) []Event {
	entries := c.AuditSince(from)
	if len(entries) == 0 {
		return nil
	}
	if from < 0 {
		from = 0
	}
	requestID := requestcontext.RequestID(ctx)
	out := make([]Event, 0, len(entries))
	for i, e := range entries {
		out = append(out, Event{
			ID:         e.ID,
			CaseID:     c.ID(),
			CaseNumber: c.CaseNumber(),
			Seq:        from + i,
			Category:   e.Action.Category(),
			Action:     e.Action,
			Details:    e.Details,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Timestamp:  e.Timestamp,
			RequestID:  requestID,
		})
	}
	return out
}

// Split partitions events by category, preserving order within each part.
func Split(events []Event) (compliance, operations []Event) {
	for _, e := range events {
		if e.Category == models.CategoryCompliance {
			compliance = append(compliance, e)
		} else {
			operations = append(operations, e)
		}
	}
	return compliance, operations
}
