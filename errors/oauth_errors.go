package errors

import (
	"fmt"
	"net/http"
)

// OAuth2Error is the wire form of an OAuth 2.0 error response.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// StatusCode returns the HTTP status the error is served with.
func (e *OAuth2Error) StatusCode() int {
	switch e.Code {
	case InvalidClient:
		return http.StatusUnauthorized
	case ServerError:
		return http.StatusInternalServerError
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// Standard OAuth2 error codes plus the registration ones of RFC 7591.
const (
	InvalidRequest        = "invalid_request"
	UnauthorizedClient    = "unauthorized_client"
	AccessDenied          = "access_denied"
	UnsupportedGrantType  = "unsupported_grant_type"
	UnsupportedResponse   = "unsupported_response_type"
	InvalidClient         = "invalid_client"
	InvalidGrant          = "invalid_grant"
	InvalidScope          = "invalid_scope"
	ServerError           = "server_error"
	InvalidClientMetadata = "invalid_client_metadata"
	InvalidRedirectURI    = "invalid_redirect_uri"
	RateLimited           = "rate_limited"
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description}
}

// NewInvalidGrant never says which check failed.
func NewInvalidGrant() *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidGrant,
		Description: "The authorization code is invalid, expired or already used",
	}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

func NewInvalidPKCE(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: fmt.Sprintf("PKCE validation failed: %s", description),
	}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedGrantType,
		Description: "The authorization grant type is not supported",
	}
}

func NewUnsupportedResponseType() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedResponse,
		Description: "Only response_type=code is supported",
	}
}

func NewInvalidScope(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidScope, Description: description}
}

func NewInvalidClientMetadata(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClientMetadata, Description: description}
}

func NewInvalidRedirectURI(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRedirectURI, Description: description}
}

func NewRateLimited() *OAuth2Error {
	return &OAuth2Error{Code: RateLimited, Description: "Too many requests"}
}
