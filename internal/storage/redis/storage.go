package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Entities are JSON blobs; secondary indexes are SETs and ZSETs kept in
// step with pipelines.
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keys
}

// New connects to Redis and verifies the connection
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   keys{prefix: cfg.KeyPrefix},
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.keys.usernameIndex(user.Username), string(user.ID), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrDuplicateUsername
	}

	if err := s.client.Set(ctx, s.keys.user(user.ID), data, 0).Err(); err != nil {
		// Release the username so a retry can succeed
		s.client.Del(ctx, s.keys.usernameIndex(user.Username))
		return err
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, s.keys.user(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	id, err := s.client.Get(ctx, s.keys.usernameIndex(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) SetTOTPSecret(ctx context.Context, id model.UserID, secret string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	user.TOTPSecret = secret

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.user(id), data, 0).Err()
}

// Recovery question operations

func (s *Storage) SaveRecoveryQuestions(ctx context.Context, id model.UserID, questions []model.RecoveryQuestion) error {
	exists, err := s.client.Exists(ctx, s.keys.user(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrUserNotFound
	}

	qs := make([]model.RecoveryQuestion, len(questions))
	for i, q := range questions {
		q.UserID = id
		qs[i] = q
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keys.recovery(id), data, 0).Err()
}

func (s *Storage) GetRecoveryQuestions(ctx context.Context, id model.UserID) ([]model.RecoveryQuestion, error) {
	data, err := s.client.Get(ctx, s.keys.recovery(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var qs []model.RecoveryQuestion
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.session(session.Token), data, 0)
	pipe.SAdd(ctx, s.keys.userSessions(session.UserID), session.Token)
	pipe.ZAdd(ctx, s.keys.sessionExpiry(), redis.Z{Score: score(session.ExpiresAt), Member: session.Token})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.keys.session(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Storage) DeleteSessionsForUser(ctx context.Context, id model.UserID) (int, error) {
	tokens, err := s.client.SMembers(ctx, s.keys.userSessions(id)).Result()
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	dels := make([]*redis.IntCmd, len(tokens))
	members := make([]any, len(tokens))
	for i, token := range tokens {
		dels[i] = pipe.Del(ctx, s.keys.session(token))
		members[i] = token
	}
	pipe.ZRem(ctx, s.keys.sessionExpiry(), members...)
	pipe.Del(ctx, s.keys.userSessions(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	n := 0
	for _, d := range dels {
		n += int(d.Val())
	}
	return n, nil
}

func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	tokens, err := s.client.ZRangeByScore(ctx, s.keys.sessionExpiry(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	n := 0
	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		session, err := s.GetSession(ctx, token)
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
		case err != nil:
			return 0, err
		default:
			pipe.SRem(ctx, s.keys.userSessions(session.UserID), token)
			pipe.Del(ctx, s.keys.session(token))
			n++
		}
		pipe.ZRem(ctx, s.keys.sessionExpiry(), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

// Marker operations

func (s *Storage) ListMarkers(ctx context.Context) ([]*model.Marker, error) {
	ids, err := s.client.ZRevRange(ctx, s.keys.markerTimeline(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Marker{}, nil
	}

	markerKeys := make([]string, len(ids))
	for i, id := range ids {
		markerKeys[i] = s.keys.marker(id)
	}
	values, err := s.client.MGet(ctx, markerKeys...).Result()
	if err != nil {
		return nil, err
	}

	markers := make([]*model.Marker, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// removed between ZREVRANGE and MGET
			continue
		}
		var m model.Marker
		if err := json.Unmarshal([]byte(str), &m); err != nil {
			return nil, err
		}
		markers = append(markers, &m)
	}

	storage.SortMarkers(markers)
	return markers, nil
}

func (s *Storage) AddMarker(ctx context.Context, marker *model.Marker) error {
	data, err := json.Marshal(marker)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.keys.marker(marker.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrMarkerExists
	}

	if err := s.client.ZAdd(ctx, s.keys.markerTimeline(), redis.Z{
		Score:  score(marker.Timestamp),
		Member: marker.ID,
	}).Err(); err != nil {
		// Release the id so a retry can succeed
		s.client.Del(ctx, s.keys.marker(marker.ID))
		return err
	}
	return nil
}

func (s *Storage) RemoveMarker(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.marker(id))
	pipe.ZRem(ctx, s.keys.markerTimeline(), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ClearMarkers(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.keys.markerTimeline(), 0, -1).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.keys.marker(id))
	}
	pipe.Del(ctx, s.keys.markerTimeline())
	_, err = pipe.Exec(ctx)
	return err
}
