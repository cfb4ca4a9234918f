package port

import "context"

// DirectoryUser is the subset of the org directory record the workflow needs
type DirectoryUser struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Active     bool   `json:"active"`
}

// Directory is the external user/org directory. The engine only depends on it
// to check that an approver id exists at line-creation time.
type Directory interface {
	// UserExists reports whether the user id is known to the directory
	UserExists(ctx context.Context, userID string) (bool, error)

	// GetUser returns the directory record, or nil if unknown
	GetUser(ctx context.Context, userID string) (*DirectoryUser, error)
}

// Notifier delivers transition notifications to an external dispatch service.
// Delivery is best effort: a failed notification never fails a transition.
type Notifier interface {
	Notify(ctx context.Context, payload map[string]interface{}) error
}
