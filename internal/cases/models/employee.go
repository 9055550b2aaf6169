package models

import (
	"strings"

	"casework/pkg/domain"
)

// InvolvedEmployee is a party or witness named in a case.
type InvolvedEmployee struct {
	ID         domain.EmployeeID `json:"id"`
	Name       string            `json:"name"`
	Role       string            `json:"role"`
	Department string            `json:"department"`
	// EmployeeNumber is the organization's own badge/HR number, when known.
	EmployeeNumber string `json:"employeeId,omitempty"`
	IsComplainant  bool   `json:"isComplainant"`
}

func (e InvolvedEmployee) validate() error {
	if e.ID.IsNil() {
		return invalid("employee id is required")
	}
	if strings.TrimSpace(e.Name) == "" {
		return invalid("employee name is required")
	}
	return nil
}

// complainants returns complainant-flagged employees in insertion order.
func (c *ConflictCase) complainants() []InvolvedEmployee {
	var out []InvolvedEmployee
	for _, e := range c.employees {
		if e.IsComplainant {
			out = append(out, e)
		}
	}
	return out
}

// PartyA is the first complainant added to the case.
func (c *ConflictCase) PartyA() (InvolvedEmployee, bool) {
	parties := c.complainants()
	if len(parties) < 1 {
		return InvolvedEmployee{}, false
	}
	return parties[0], true
}

// PartyB is the second complainant added to the case.
func (c *ConflictCase) PartyB() (InvolvedEmployee, bool) {
	parties := c.complainants()
	if len(parties) < 2 {
		return InvolvedEmployee{}, false
	}
	return parties[1], true
}

// Witnesses returns every involved employee that is neither Party A nor Party B, including any
// complainant beyond the second.
func (c *ConflictCase) Witnesses() []InvolvedEmployee {
	var out []InvolvedEmployee
	seen := 0
	for _, e := range c.employees {
		if e.IsComplainant && seen < 2 {
			seen++
			continue
		}
		out = append(out, e)
	}
	return out
}

func (c *ConflictCase) hasEmployee(id domain.EmployeeID) bool {
	for _, e := range c.employees {
		if e.ID == id {
			return true
		}
	}
	return false
}
