package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"
)

var (
	GithubUserInfoEndpoint   = "https://api.github.com/user"
	GithubUserEmailsEndpoint = "https://api.github.com/user/emails"
)

// GitHubConfig holds the OAuth app credentials.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides github.com, for tests.
	Endpoint *oauth2.Endpoint
}

// GitHubProvider implements OAuth2Provider for GitHub.
type GitHubProvider struct {
	oauth *oauth2.Config
}

// NewGitHubProvider creates a new GitHubProvider.
func NewGitHubProvider(cfg GitHubConfig) (*GitHubProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	endpoint := githubOAuth2.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
	}, nil
}

func (g *GitHubProvider) Name() string { return "github" }

func (g *GitHubProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return g.oauth.AuthCodeURL(state, opts...)
}

func (g *GitHubProvider) ExchangeCode(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	token, err := g.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeCodeFailed, err)
	}
	return token, nil
}

// FetchUserInfo fetches the profile and, when the profile email is private,
// the primary verified address.
func (g *GitHubProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalUserInfo, error) {
	client := g.oauth.Client(ctx, token)

	userResp, err := client.Get(GithubUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	defer userResp.Body.Close()

	if userResp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(userResp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrFetchUserInfoFailed, userResp.StatusCode, string(bodyBytes))
	}

	var rawUserInfo struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		Email     string      `json:"email"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.NewDecoder(userResp.Body).Decode(&rawUserInfo); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchUserInfoFailed, err)
	}
	if rawUserInfo.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrFetchUserInfoFailed)
	}

	email := rawUserInfo.Email
	if email == "" {
		email = g.primaryEmail(client)
	}

	return &ExternalUserInfo{
		ProviderUserID: string(rawUserInfo.ID),
		Email:          email,
		Name:           rawUserInfo.Name,
		Username:       rawUserInfo.Login,
		PictureURL:     rawUserInfo.AvatarURL,
	}, nil
}

// primaryEmail returns the primary verified address or, failing that, the first verified one.
func (g *GitHubProvider) primaryEmail(client *http.Client) string {
	emailResp, err := client.Get(GithubUserEmailsEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("github: failed to get user emails")
		return ""
	}
	defer emailResp.Body.Close()
	if emailResp.StatusCode != http.StatusOK {
		return ""
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(emailResp.Body).Decode(&emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

var _ OAuth2Provider = (*GitHubProvider)(nil)
