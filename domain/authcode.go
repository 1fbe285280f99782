package domain

import "time"

// AuthCode represents an OAuth 2.0 authorization code bound to a PKCE challenge.
type AuthCode struct {
	Code          string    `bson:"_id"                  json:"code"`                 // Opaque code value
	ClientID      string    `bson:"client_id"            json:"client_id"`            // Client application ID
	UserID        string    `bson:"user_id"              json:"user_id"`              // User who authorized the request
	ProjectID     string    `bson:"project_id,omitempty" json:"project_id,omitempty"` // Empty when resolved lazily
	RedirectURI   string    `bson:"redirect_uri"         json:"redirect_uri"`         // Client's callback URL
	CodeChallenge string    `bson:"code_challenge"       json:"code_challenge"`       // S256 challenge
	Scope         string    `bson:"scope"                json:"scope"`                // Authorized scope
	ExpiresAt     time.Time `bson:"expires_at"           json:"expires_at"`           // Expiration timestamp
	Used          bool      `bson:"used"                 json:"used"`                 // Whether code has been exchanged
	CreatedAt     time.Time `bson:"created_at"           json:"created_at"`           // Creation timestamp
}

// IsExpired reports whether the code is past its expiry at now.
func (c *AuthCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
