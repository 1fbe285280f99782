package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.pilab.hu/taskboard/domain"
)

// Clients

func (s *Store) CreateClient(ctx context.Context, client *domain.OAuthClient) error {
	uris, err := json.Marshal(client.RedirectURIs)
	if err != nil {
		return fmt.Errorf("encoding redirect uris: %w", err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO oauth_clients (client_id, secret_hash, name, redirect_uris, created_at) VALUES (?, ?, ?, ?, ?)`,
		client.ClientID, emptyAsNull(client.SecretHash), client.Name, string(uris), toMillis(client.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*domain.OAuthClient, error) {
	var (
		c       domain.OAuthClient
		secret  sql.NullString
		uris    string
		created int64
	)
	err := s.queryRow(ctx,
		`SELECT client_id, secret_hash, name, redirect_uris, created_at FROM oauth_clients WHERE client_id = ?`,
		clientID).Scan(&c.ClientID, &secret, &c.Name, &uris, &created)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal([]byte(uris), &c.RedirectURIs); err != nil {
		return nil, fmt.Errorf("decoding redirect uris of client %s: %w", clientID, err)
	}
	c.SecretHash = secret.String
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

// Authorization codes

const authCodeColumns = `code, client_id, user_id, project_id, redirect_uri, code_challenge, scope, expires_at, used, created_at`

func scanAuthCode(row scanner) (*domain.AuthCode, error) {
	var (
		c                domain.AuthCode
		project          sql.NullString
		expires, created int64
		used             int
	)
	err := row.Scan(&c.Code, &c.ClientID, &c.UserID, &project, &c.RedirectURI,
		&c.CodeChallenge, &c.Scope, &expires, &used, &created)
	if err != nil {
		return nil, notFound(err)
	}
	c.ProjectID = project.String
	c.ExpiresAt = fromMillis(expires)
	c.CreatedAt = fromMillis(created)
	c.Used = used != 0
	return &c, nil
}

func (s *Store) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	_, err := s.exec(ctx,
		`INSERT INTO oauth_codes (`+authCodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.Code, code.ClientID, code.UserID, emptyAsNull(code.ProjectID), code.RedirectURI,
		code.CodeChallenge, code.Scope, toMillis(code.ExpiresAt), boolToInt(code.Used), toMillis(code.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		log.Error().Err(err).Str("client_id", code.ClientID).Msg("Error saving authorization code")
		return fmt.Errorf("inserting authorization code: %w", err)
	}
	return nil
}

// RedeemAuthCode is a single conditional UPDATE so concurrent callers race on the row lock.
func (s *Store) RedeemAuthCode(ctx context.Context, code string, now time.Time) (*domain.AuthCode, error) {
	return scanAuthCode(s.queryRow(ctx,
		`UPDATE oauth_codes SET used = 1
		 WHERE code = ? AND used = 0 AND expires_at > ?
		 RETURNING `+authCodeColumns,
		code, toMillis(now)))
}

func (s *Store) GetAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	return scanAuthCode(s.queryRow(ctx, `SELECT `+authCodeColumns+` FROM oauth_codes WHERE code = ?`, code))
}

func (s *Store) DeleteExpiredAuthCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM oauth_codes WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired codes: %w", err)
	}
	return res.RowsAffected()
}

// Access tokens

const tokenColumns = `token_hash, client_id, user_id, project_id, scope, expires_at, created_at`

func (s *Store) SaveAccessToken(ctx context.Context, token *domain.AccessToken) error {
	_, err := s.exec(ctx,
		`INSERT INTO oauth_tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.TokenHash, token.ClientID, token.UserID, emptyAsNull(token.ProjectID),
		token.Scope, toMillis(token.ExpiresAt), toMillis(token.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("inserting access token: %w", err)
	}
	return nil
}

func (s *Store) GetAccessToken(ctx context.Context, tokenHash string) (*domain.AccessToken, error) {
	var (
		t                domain.AccessToken
		project          sql.NullString
		expires, created int64
	)
	err := s.queryRow(ctx, `SELECT `+tokenColumns+` FROM oauth_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&t.TokenHash, &t.ClientID, &t.UserID, &project, &t.Scope, &expires, &created)
	if err != nil {
		return nil, notFound(err)
	}
	t.ProjectID = project.String
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	return &t, nil
}

func (s *Store) UpdateTokenProject(ctx context.Context, tokenHash, projectID string) error {
	res, err := s.exec(ctx,
		`UPDATE oauth_tokens SET project_id = ? WHERE token_hash = ?`, emptyAsNull(projectID), tokenHash)
	if err != nil {
		return fmt.Errorf("binding token project: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM oauth_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return res.RowsAffected()
}
