package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/metrics"
	"github.com/cinematogether/server/pkg/randstr"
)

const (
	// MinRoomMembers and MaxRoomMembers bound the per-room member limit a
	// creator may request.
	MinRoomMembers = 2
	MaxRoomMembers = 50

	roomIDLength = 8
	maxTitleLen  = 100
)

type iGenerator interface {
	GenerateRandomString(length int) string
}

// Registry owns the id to session mapping. It is the only structure touched
// by more than one room concurrently; everything else is partitioned per
// room behind the session lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg       Config
	sweepTick time.Duration
	events    iPublisher
	metrics   *metrics.Metrics
	generator iGenerator
	logger    *slog.Logger
	now       func() time.Time
}

func NewRegistry(events iPublisher, m *metrics.Metrics, cfg Config, sweepTick time.Duration, logger *slog.Logger) *Registry {
	if sweepTick <= 0 {
		sweepTick = 10 * time.Second
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")

	return &Registry{
		sessions:  make(map[string]*Session),
		cfg:       cfg.withDefaults(),
		sweepTick: sweepTick,
		events:    events,
		metrics:   m,
		generator: randstr.New(letterBytes),
		logger:    logger,
		now:       time.Now,
	}
}

func validateConfig(cfg *domain.RoomConfig) error {
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Title == "" || len(cfg.Title) > maxTitleLen {
		return ErrInvalidConfig
	}
	if cfg.MaxMembers < MinRoomMembers || cfg.MaxMembers > MaxRoomMembers {
		return ErrInvalidConfig
	}
	if cfg.Visibility == "" {
		cfg.Visibility = domain.VisibilityPublic
	}
	if cfg.Visibility != domain.VisibilityPublic && cfg.Visibility != domain.VisibilityPrivate {
		return ErrInvalidConfig
	}
	if cfg.Duration < 0 {
		return ErrInvalidConfig
	}

	return nil
}

// CreateRoom validates the config, generates a collision-free id and
// registers a fresh session.
func (r *Registry) CreateRoom(cfg domain.RoomConfig) (*Session, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.generator.GenerateRandomString(roomIDLength)
	for r.sessions[id] != nil {
		id = r.generator.GenerateRandomString(roomIDLength)
	}

	session := newSession(domain.Room{
		ID:          id,
		Title:       cfg.Title,
		MediaRef:    cfg.MediaRef,
		Visibility:  cfg.Visibility,
		MaxMembers:  cfg.MaxMembers,
		ChatEnabled: cfg.ChatEnabled,
		Duration:    cfg.Duration,
		CreatedAt:   r.now(),
	}, r.cfg, r.events, r.metrics, r.logger, r.now)

	r.sessions[id] = session
	r.metrics.RoomsActive.Inc()

	r.logger.Info("room created", "room_id", id, "title", cfg.Title, "max_members", cfg.MaxMembers)

	return session, nil
}

func (r *Registry) GetRoom(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return session, nil
}

// DestroyRoom removes an empty room. Fails with ErrRoomNotEmpty while any
// connected or grace-period participant remains; occupied rooms go away via
// the idle sweep once they empty out.
func (r *Registry) DestroyRoom(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return ErrRoomNotFound
	}

	if err := session.closeIfEmpty(); err != nil {
		return fmt.Errorf("failed to close room %s: %w", id, err)
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.metrics.RoomsActive.Dec()

	r.logger.Info("room destroyed", "room_id", id)

	return nil
}

// ListPublic snapshots every public room for the rest api. Private rooms are
// joinable by id only.
func (r *Registry) ListPublic() []domain.RoomInfo {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	infos := make([]domain.RoomInfo, 0, len(sessions))
	for _, s := range sessions {
		if s.Room().Visibility != domain.VisibilityPublic {
			continue
		}
		infos = append(infos, s.Info())
	}

	return infos
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Run drives the idle sweep until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(r.now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if !s.closeIfExpired(now) {
			continue
		}

		r.mu.Lock()
		if r.sessions[s.ID()] == s {
			delete(r.sessions, s.ID())
			r.metrics.RoomsActive.Dec()
		}
		r.mu.Unlock()
	}
}
