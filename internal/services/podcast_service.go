package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doccast/doccast/internal/models"
	"github.com/doccast/doccast/internal/podcast"
	mongorepo "github.com/doccast/doccast/internal/repositories/mongo"
	"github.com/doccast/doccast/internal/storage"
	"github.com/doccast/doccast/internal/utils"
)

// PodcastService runs pipeline sessions in the background and exposes their
// snapshots. One service may drive many concurrent sessions; each gets its
// own engine run and cancel handle.
type PodcastService interface {
	Start(ctx context.Context, in podcast.SessionInput) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Cancel(ctx context.Context, sessionID string) error
}

type podcastService struct {
	engine   *podcast.Engine
	sessions mongorepo.SessionRepository
	store    storage.BlobStore
	log      *logrus.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewPodcastService builds the engine from cfg and installs itself as the
// engine's observer so every stage transition lands in the repository.
func NewPodcastService(cfg podcast.Config, sessions mongorepo.SessionRepository, store storage.BlobStore) (PodcastService, error) {
	svc := &podcastService{
		sessions: sessions,
		store:    store,
		log:      cfg.Log,
		cancels:  map[string]context.CancelFunc{},
	}
	cfg.Observer = svc

	eng, err := podcast.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	svc.engine = eng
	if svc.log == nil {
		svc.log = logrus.New()
	}
	return svc, nil
}

func (s *podcastService) Start(ctx context.Context, in podcast.SessionInput) (*models.Session, error) {
	const op = "PodcastService.Start"

	if in.Content.Text == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "content text is required", nil)
	}
	if in.Personas.First.Role == "" {
		in.Personas = podcast.DefaultPersonaPair()
	}
	in.SessionID = uuid.NewString()

	sess := &models.Session{
		SessionID: in.SessionID,
		Status:    models.StatusRunning,
		Stage:     models.StageCreated,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[in.SessionID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, in)

	return sess, nil
}

func (s *podcastService) run(ctx context.Context, in podcast.SessionInput) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[in.SessionID]; ok {
			cancel()
			delete(s.cancels, in.SessionID)
		}
		s.mu.Unlock()
	}()

	res := s.engine.Run(ctx, in)

	if res.Track != nil {
		object := fmt.Sprintf("sessions/%s/podcast.%s", res.Session.SessionID, res.Track.Format)
		ref, err := s.store.Upload(context.Background(), object, contentTypeFor(res.Track.Format),
			bytes.NewReader(res.Track.Audio))
		if err != nil {
			s.log.WithError(err).WithField("session_id", res.Session.SessionID).
				Error("failed to upload finished track")
		} else {
			res.Session.TrackRef = ref
		}
	}

	if err := s.sessions.Save(context.Background(), res.Session); err != nil {
		s.log.WithError(err).WithField("session_id", res.Session.SessionID).
			Error("failed to save final session snapshot")
	}
}

// OnUpdate implements podcast.Observer.
func (s *podcastService) OnUpdate(ctx context.Context, sess *models.Session) {
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.WithError(err).WithField("session_id", sess.SessionID).
			Warn("failed to save session snapshot")
	}
}

func (s *podcastService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "PodcastService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return sess, nil
}

// Cancel signals the run's context; the engine observes it between stage
// attempts and terminates the session as cancelled.
func (s *podcastService) Cancel(ctx context.Context, sessionID string) error {
	const op = "PodcastService.Cancel"

	s.mu.Lock()
	cancel, ok := s.cancels[sessionID]
	s.mu.Unlock()

	if !ok {
		return utils.E(utils.CodeNotFound, op, "no running session with that id", nil)
	}
	cancel()
	return nil
}

func contentTypeFor(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
