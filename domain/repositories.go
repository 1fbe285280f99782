package domain

import (
	"context"
	"time"
)

// UserRepository persists interactive users.
type UserRepository interface {
	// UpsertUser inserts the user or refreshes its profile fields.
	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	// ListProjects returns the owner's projects, newest first.
	ListProjects(ctx context.Context, ownerID string) ([]*Project, error)
	UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	// DeleteProject removes the project with its tasks, labels, comments and API keys.
	DeleteProject(ctx context.Context, id string) error
	// LatestProject returns the owner's most recently created project or ErrNotFound.
	LatestProject(ctx context.Context, ownerID string) (*Project, error)
}

// APIKeyRepository persists hashed project API keys.
type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, key *APIKey) error
	ListAPIKeys(ctx context.Context, projectID string) ([]*APIKey, error)
	DeleteAPIKey(ctx context.Context, projectID, id string) error

	// TouchAPIKey sets last_used_at on the key matching keyHash and returns the
	// updated row in the same statement. Returns ErrNotFound when no key matches.
	TouchAPIKey(ctx context.Context, keyHash string, at time.Time) (*APIKey, error)

	// GetAPIKeyByHash is the read-only lookup used when TouchAPIKey fails.
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*APIKey, error)
}

// ClientRepository persists dynamically registered OAuth clients.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *OAuthClient) error
	GetClient(ctx context.Context, clientID string) (*OAuthClient, error)
}

// AuthCodeRepository persists authorization codes.
type AuthCodeRepository interface {
	SaveAuthCode(ctx context.Context, code *AuthCode) error

	// RedeemAuthCode atomically flips used from false to true on an unexpired
	// code and returns the row. Of any number of concurrent callers for the
	// same code at most one receives the row; the rest get ErrNotFound.
	RedeemAuthCode(ctx context.Context, code string, now time.Time) (*AuthCode, error)

	// GetAuthCode is a read-only lookup used to classify failed redemptions.
	GetAuthCode(ctx context.Context, code string) (*AuthCode, error)

	DeleteExpiredAuthCodes(ctx context.Context, now time.Time) (int64, error)
}

// TokenRepository persists hashed access tokens.
type TokenRepository interface {
	SaveAccessToken(ctx context.Context, token *AccessToken) error
	GetAccessToken(ctx context.Context, tokenHash string) (*AccessToken, error)
	UpdateTokenProject(ctx context.Context, tokenHash, projectID string) error
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// TaskRepository persists tasks and their label links.
//
//nolint:interfacebloat
type TaskRepository interface {
	// CreateTask appends the task after the highest position in its project.
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, projectID string, filter TaskFilter) ([]*Task, error)
	CountTasks(ctx context.Context, projectID string, filter TaskFilter) (int, error)
	// UpdateTask writes every mutable column of task.
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error
	// ReorderTasks sets position to the slice index for each id inside projectID.
	ReorderTasks(ctx context.Context, projectID string, orderedIDs []string) error
	SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) error
}

// LabelRepository persists project labels.
type LabelRepository interface {
	CreateLabel(ctx context.Context, label *Label) error
	GetLabel(ctx context.Context, id string) (*Label, error)
	ListLabels(ctx context.Context, projectID string) ([]*Label, error)
	DeleteLabel(ctx context.Context, id string) error
}

// CommentRepository persists task comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *Comment) error
	// ListComments returns comments oldest first.
	ListComments(ctx context.Context, taskID string) ([]*Comment, error)
}

// Store is the full credential and task store implemented by each backend.
type Store interface {
	UserRepository
	ProjectRepository
	APIKeyRepository
	ClientRepository
	AuthCodeRepository
	TokenRepository
	TaskRepository
	LabelRepository
	CommentRepository

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
