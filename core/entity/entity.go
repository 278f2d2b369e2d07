package entity

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound = errors.New("entity not found in list")
)

// Status is the soft active/inactive flag shared by all managed entities.
// "Deleting" an entity in this domain means flipping it to inactive, never
// removing the record.
type Status string

const (
	StatusActive   Status = "A"
	StatusInactive Status = "I"
)

func (s Status) Active() bool { return s == StatusActive }

func (s Status) Toggled() Status {
	if s.Active() {
		return StatusInactive
	}
	return StatusActive
}

type (
	// Managed is the constraint all listed entity types satisfy. WithStatus
	// returns a copy with only the status changed; SearchFields returns the
	// values the list's text filter matches against.
	Managed[E any] interface {
		EntityID() string
		EntityStatus() Status
		WithStatus(Status) E
		SearchFields() []string
	}

	PageRequest struct {
		Page          int
		Size          int
		SortField     string
		SortAscending bool
	}

	Page[E any] struct {
		Content       []E `json:"content"`
		TotalElements int `json:"total_elements"`
		TotalPages    int `json:"total_pages"`
	}

	// Gateway abstracts one upstream microservice's REST surface for a single
	// entity type. A FetchPage failure signals that pagination is unavailable;
	// callers fall back to FetchAll. SetActive/SetInactive return nil when the
	// server reply carries no body.
	Gateway[E Managed[E]] interface {
		FetchAll(ctx context.Context) ([]E, error)
		FetchPage(ctx context.Context, req PageRequest) (Page[E], error)
		FetchByID(ctx context.Context, id string) (E, error)
		Create(ctx context.Context, payload interface{}) (E, error)
		SetActive(ctx context.Context, id string) (*E, error)
		SetInactive(ctx context.Context, id string) (*E, error)
	}
)
