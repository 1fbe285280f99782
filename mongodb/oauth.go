package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/taskboard/domain"
)

func (s *Store) CreateClient(ctx context.Context, client *domain.OAuthClient) error {
	_, err := s.clients.InsertOne(ctx, client)
	return insertErr(err, "client")
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*domain.OAuthClient, error) {
	var c domain.OAuthClient
	if err := s.clients.FindOne(ctx, bson.M{"_id": clientID}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	if _, err := s.codes.InsertOne(ctx, code); err != nil {
		log.Error().Err(err).Str("client_id", code.ClientID).Msg("Error saving authorization code")
		return insertErr(err, "authorization code")
	}
	return nil
}

// RedeemAuthCode relies on FindOneAndUpdate being atomic per document.
func (s *Store) RedeemAuthCode(ctx context.Context, code string, now time.Time) (*domain.AuthCode, error) {
	var c domain.AuthCode
	err := s.codes.FindOneAndUpdate(ctx,
		bson.M{"_id": code, "used": false, "expires_at": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"used": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) GetAuthCode(ctx context.Context, code string) (*domain.AuthCode, error) {
	var c domain.AuthCode
	if err := s.codes.FindOne(ctx, bson.M{"_id": code}).Decode(&c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *Store) DeleteExpiredAuthCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.codes.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("deleting expired codes: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) SaveAccessToken(ctx context.Context, token *domain.AccessToken) error {
	_, err := s.tokens.InsertOne(ctx, token)
	return insertErr(err, "access token")
}

func (s *Store) GetAccessToken(ctx context.Context, tokenHash string) (*domain.AccessToken, error) {
	var t domain.AccessToken
	if err := s.tokens.FindOne(ctx, bson.M{"_id": tokenHash}).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Store) UpdateTokenProject(ctx context.Context, tokenHash, projectID string) error {
	update := bson.M{"$set": bson.M{"project_id": projectID}}
	if projectID == "" {
		update = bson.M{"$unset": bson.M{"project_id": ""}}
	}
	res, err := s.tokens.UpdateOne(ctx, bson.M{"_id": tokenHash}, update)
	if err != nil {
		return fmt.Errorf("binding token project: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}
	return res.DeletedCount, nil
}
