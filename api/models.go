// Package api holds the wire types shared by the HTTP surface and its clients.
package api

import (
	"go.pilab.hu/taskboard/domain"
)

const TokenTypeBearer = "Bearer"

// TokenRequest is the token endpoint body. Both form and JSON encodings are accepted.
//
//nolint:tagliatelle
type TokenRequest struct {
	GrantType    string `form:"grant_type"    json:"grant_type"`
	Code         string `form:"code"          json:"code"`
	ClientID     string `form:"client_id"     json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
	CodeVerifier string `form:"code_verifier" json:"code_verifier"`
	RedirectURI  string `form:"redirect_uri"  json:"redirect_uri"`
}

// TokenResponse represents an OAuth 2.0 token response
//
//nolint:tagliatelle
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Me is the signed-in user with their projects.
type Me struct {
	User     *domain.User      `json:"user"`
	Projects []*domain.Project `json:"projects"`
}

type ProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

//nolint:tagliatelle
type TaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Priority    *int               `json:"priority"`
	DueDate     Optional[string]   `json:"due_date"`
	Status      *domain.TaskStatus `json:"status"`
	Completed   *bool              `json:"completed"`
	Assignee    Optional[string]   `json:"assignee"`
}

type MoveRequest struct {
	Status   domain.TaskStatus `json:"status"`
	Position int               `json:"position"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

//nolint:tagliatelle
type LabelsRequest struct {
	LabelIDs []string `json:"label_ids"`
}

type LabelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

type APIKeyRequest struct {
	Name string `json:"name"`
}

// CreatedAPIKey is returned once; Key is never shown again.
type CreatedAPIKey struct {
	*domain.APIKey
	Key string `json:"key"`
}

type PresencePayload struct {
	Roster []string `json:"roster"`
}
