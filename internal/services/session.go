package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrSessionNotFound means the token is unknown or the session expired.
var ErrSessionNotFound = errors.New("session not found or expired")

// Session ties an authenticated card to the channel it was presented at.
// A successful ATM insert or EDC swipe opens one; account operations on
// that channel then quote the token instead of re-presenting the card.
type Session struct {
	Token         string    `json:"token"`
	ChannelID     string    `json:"channel_id"`
	CardNumber    string    `json:"card_number"`
	AccountNumber string    `json:"account_number"`
	OpenedAt      time.Time `json:"opened_at"`
}

// SessionStore keeps card-present sessions in Redis under a TTL, so an
// abandoned card session dies on its own.
type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration

	// injected for tests
	newToken func() string
	now      func() time.Time
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		redis:    rdb,
		ttl:      ttl,
		newToken: uuid.NewString,
		now:      time.Now,
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Open creates a session and returns its token.
func (s *SessionStore) Open(ctx context.Context, channelID, cardNumber, accountNumber string) (Session, error) {
	sess := Session{
		Token:         s.newToken(),
		ChannelID:     channelID,
		CardNumber:    cardNumber,
		AccountNumber: accountNumber,
		OpenedAt:      s.now(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.redis.Set(ctx, sessionKey(sess.Token), data, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get resolves a token, refreshing the TTL on hit.
func (s *SessionStore) Get(ctx context.Context, token string) (Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}

	s.redis.Expire(ctx, sessionKey(token), s.ttl)
	return sess, nil
}

// Close drops the session; ejecting the card at the machine does this.
func (s *SessionStore) Close(ctx context.Context, token string) error {
	return s.redis.Del(ctx, sessionKey(token)).Err()
}
