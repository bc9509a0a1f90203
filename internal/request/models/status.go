package models

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a Request.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusNew            Status = "NEW"
	StatusMatched        Status = "MATCHED"
	StatusInProgress     Status = "IN_PROGRESS"
	StatusReviewClient   Status = "REVIEW_CLIENT"
	StatusReviewAdmin    Status = "REVIEW_ADMIN"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Visibility controls who can see and accept a Request.
type Visibility string

const (
	VisibilityAssigned Visibility = "ASSIGNED"
	VisibilityOpen     Visibility = "OPEN"
)

var (
	// ErrInvalidTransition is returned for status moves outside the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyAssigned is returned to every pool acceptance that loses the race.
	ErrAlreadyAssigned = errors.New("request already assigned")
)

// transitions is the lifecycle graph. CANCELLED has no outgoing edges here:
// leaving it requires the explicit Reactivate action.
var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusNew, StatusCancelled},
	StatusNew:            {StatusMatched, StatusCancelled},
	StatusMatched:        {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusReviewClient, StatusReviewAdmin, StatusCancelled},
	StatusReviewClient:   {StatusCompleted, StatusReviewAdmin, StatusInProgress, StatusCancelled},
	StatusReviewAdmin:    {StatusCompleted, StatusReviewClient, StatusInProgress, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// ParseStatus validates a wire value.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Same-status writes are always allowed and treated as no-ops.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further work can happen without reactivation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsRoutable reports whether the request may still be published to the pool.
func (s Status) IsRoutable() bool {
	return s == StatusPendingPayment || s == StatusNew
}
