package domain

import (
	"time"

	usersdomain "github.com/4ndr33w/projecthub-backend/internal/users/domain"
)

// Status of a project.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Project is the normalized row form. AdminID is set at creation and never
// changes afterwards.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Image       []byte     `json:"image,omitempty"`
	AdminID     string     `json:"admin_id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ProjectAggregate is a project with its member users resolved from the
// membership table. Members never include the admin.
type ProjectAggregate struct {
	Project
	Members []usersdomain.User `json:"members"`
}

// CreateProjectRequest carries the data needed to create a project.
type CreateProjectRequest struct {
	Name        string
	Description string
	Image       []byte
	AdminID     string
	Status      Status
}

// UpdateProjectRequest replaces the mutable fields of a project. The admin
// cannot be reassigned through updates.
type UpdateProjectRequest struct {
	Name        string
	Description string
	Image       []byte
	Status      Status
}
