package domain

import "time"

// Membership is one row of the project_users join table: user UserID is a
// member of project ProjectID. The pair is unique. The project admin is
// related through projects.admin_id and never appears here.
type Membership struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
