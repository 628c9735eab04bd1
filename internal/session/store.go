// Package session keeps the per-borrower identifiers every flow step depends on.
package session

import (
	"context"
	"time"

	"loan-portal/internal/common/config"
	"loan-portal/internal/common/database"
	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound matches any unknown or expired session id under errors.Is.
var ErrNotFound = &apperrors.StandardError{Code: apperrors.ErrCodeSessionNotFound, Message: "Session not found"}

// Manager is the typed session context handed to step handlers.
type Manager interface {
	Create(ctx context.Context, token, userID string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	SetTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetProviderID(ctx context.Context, id, providerID string) (*models.Session, error)
	SetForeclosureTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetIGMTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetPrepaymentTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	SetMissedEMITransactionID(ctx context.Context, id, transactionID string) (*models.Session, error)
	MirrorAction(ctx context.Context, id, kind, formID, transactionID string) error
	MirroredAction(ctx context.Context, id, kind string) (models.ActionMirror, bool, error)
	Clear(ctx context.Context, id string) error
}

// Store persists sessions in Redis as whole JSON values with a sliding TTL.
type Store struct {
	redis  *database.RedisClient
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func NewStore(rc *database.RedisClient, cfg config.SessionConfig) *Store {
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "loan-portal:session"
	}
	return &Store{redis: rc, ttl: ttl, prefix: prefix, now: time.Now}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Create starts an authenticated session after a successful login.
func (s *Store) Create(ctx context.Context, token, userID string) (*models.Session, error) {
	now := s.now().UTC()
	sess := &models.Session{
		ID:              uuid.New().String(),
		Token:           token,
		UserID:          userID,
		IsAuthenticated: token != "",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var sess models.Session
	found, err := s.redis.GetJSON(ctx, s.key(id), &sess)
	if err != nil {
		return nil, apperrors.NewSessionStoreError(err)
	}
	if !found {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return &sess, nil
}

func (s *Store) save(ctx context.Context, sess *models.Session) error {
	if err := s.redis.SetJSON(ctx, s.key(sess.ID), sess, s.ttl); err != nil {
		return apperrors.NewSessionStoreError(err)
	}
	return nil
}

// update reads, mutates and writes back the whole session.
func (s *Store) update(ctx context.Context, id string, mutate func(*models.Session)) (*models.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(sess)
	sess.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) SetTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.TransactionID = transactionID })
}

func (s *Store) SetProviderID(ctx context.Context, id, providerID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.ProviderID = providerID })
}

func (s *Store) SetForeclosureTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.ForeclosureTransactionID = transactionID })
}

func (s *Store) SetIGMTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.IGMTransactionID = transactionID })
}

func (s *Store) SetPrepaymentTransactionID(ctx context.Context, id, transactionID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.PrepaymentTransactionID = transactionID })
}

func (s *Store) SetMissedEMITransactionID(ctx context.Context, id, transactionID string) (*models.Session, error) {
	return s.update(ctx, id, func(sess *models.Session) { sess.MissedEMITransactionID = transactionID })
}

// MirrorAction records form identifiers before presentation so they survive a lost tracker.
func (s *Store) MirrorAction(ctx context.Context, id, kind, formID, transactionID string) error {
	_, err := s.update(ctx, id, func(sess *models.Session) {
		if sess.Actions == nil {
			sess.Actions = make(map[string]models.ActionMirror)
		}
		sess.Actions[kind] = models.ActionMirror{
			FormID:        formID,
			TransactionID: transactionID,
			MirroredAt:    s.now().UTC(),
		}
	})
	return err
}

func (s *Store) MirroredAction(ctx context.Context, id, kind string) (models.ActionMirror, bool, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return models.ActionMirror{}, false, err
	}
	m, ok := sess.Actions[kind]
	return m, ok, nil
}

// Clear removes the session on logout. Clearing an unknown id is not an error.
func (s *Store) Clear(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)); err != nil {
		return apperrors.NewSessionStoreError(err)
	}
	return nil
}

// RequireTransaction returns the waiting error while the loan transaction id is absent.
func RequireTransaction(sess *models.Session) (string, error) {
	if !sess.HasTransaction() {
		return "", apperrors.ErrWaitingForTransaction
	}
	return sess.TransactionID, nil
}
