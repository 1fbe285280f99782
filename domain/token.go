package domain

import "time"

// AccessToken is the persisted record of an issued bearer token.
// The plaintext is returned to the client once; TokenHash is its SHA-256 digest.
type AccessToken struct {
	TokenHash string    `bson:"_id"                  json:"-"`
	ClientID  string    `bson:"client_id"            json:"client_id"`
	UserID    string    `bson:"user_id"              json:"user_id"`
	ProjectID string    `bson:"project_id,omitempty" json:"project_id,omitempty"`
	Scope     string    `bson:"scope"                json:"scope"`
	ExpiresAt time.Time `bson:"expires_at"           json:"expires_at"`
	CreatedAt time.Time `bson:"created_at"           json:"created_at"`
}
