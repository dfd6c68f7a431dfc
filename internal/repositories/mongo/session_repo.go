package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/utils"
)

// SessionRepository persists session snapshots so any UI layer can poll a
// run's stage history without touching the engine.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
}

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

// Save upserts the whole snapshot; the engine republishes the full session
// after every stage transition.
func (r *sessionRepo) Save(ctx context.Context, s *models.Session) error {
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"session_id": s.SessionID},
		s,
		options.Replace().SetUpsert(true),
	)
	return err
}
