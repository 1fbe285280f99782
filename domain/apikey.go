package domain

import "time"

// APIKey is a long-lived project credential used by agents.
// Only the SHA-256 digest of the secret is stored; KeyPrefix is kept for display.
type APIKey struct {
	ID         string     `bson:"_id"                    json:"id"`
	ProjectID  string     `bson:"project_id"             json:"project_id"`
	Name       string     `bson:"name"                   json:"name"`
	KeyHash    string     `bson:"key_hash"               json:"-"`
	KeyPrefix  string     `bson:"key_prefix"             json:"key_prefix"`
	CreatedAt  time.Time  `bson:"created_at"             json:"created_at"`
	LastUsedAt *time.Time `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
}
