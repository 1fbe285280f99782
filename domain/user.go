package domain

import "time"

// User is a human account created on first interactive login.
// ID is the identity-provider subject, e.g. "github:1234".
type User struct {
	ID        string    `bson:"_id"                  json:"id"`
	Name      string    `bson:"name"                 json:"name"`
	Email     string    `bson:"email,omitempty"      json:"email,omitempty"`
	AvatarURL string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt time.Time `bson:"created_at"           json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"           json:"updated_at"`
}

// Project is the tenant boundary. Every authorization decision resolves to exactly one project.
type Project struct {
	ID          string    `bson:"_id"         json:"id"`
	Name        string    `bson:"name"        json:"name"`
	Description string    `bson:"description" json:"description"`
	OwnerID     string    `bson:"owner_id"    json:"owner_id"`
	CreatedAt   time.Time `bson:"created_at"  json:"created_at"`
}

// ProjectPatch carries optional project changes.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
