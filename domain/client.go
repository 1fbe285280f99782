package domain

import "time"

// OAuthClient is a dynamically registered OAuth client.
//
//nolint:tagliatelle
type OAuthClient struct {
	ClientID     string    `bson:"_id"                   json:"client_id"`
	SecretHash   string    `bson:"secret_hash,omitempty" json:"-"` // empty for public clients
	Name         string    `bson:"client_name"           json:"client_name"`
	RedirectURIs []string  `bson:"redirect_uris"         json:"redirect_uris"`
	CreatedAt    time.Time `bson:"created_at"            json:"created_at"`
}

// AllowsRedirect reports whether uri is an exact member of the allow-list.
func (c *OAuthClient) AllowsRedirect(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}
