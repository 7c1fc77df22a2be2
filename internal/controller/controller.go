package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cinematogether/server/internal/broadcast"
	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/cinematogether/server/internal/room"
	"github.com/cinematogether/server/pkg/validator"
	"github.com/gorilla/websocket"
)

type iRegistry interface {
	CreateRoom(domain.RoomConfig) (*room.Session, error)
	GetRoom(string) (*room.Session, error)
	DestroyRoom(string) error
	ListPublic() []domain.RoomInfo
}

type iHandshakeRepo interface {
	SetIntent(ctx context.Context, token string, intent *handshake.Intent) error
	PopIntent(ctx context.Context, token string) (handshake.Intent, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, participantID string) (*websocket.Conn, error)
	RemoveByConn(conn *websocket.Conn) (string, error)
}

type iIdentityVerifier interface {
	Verify(token string) (domain.Identity, error)
	Guest(displayName string) (domain.Identity, error)
}

type iBroadcaster interface {
	Subscribe(participantID string, sink broadcast.Sink)
	Unsubscribe(participantID string)
}

type Config struct {
	// WriteTimeout bounds a single event delivery to one participant.
	WriteTimeout time.Duration
	// MessageRate and MessageBurst bound inbound ws messages per connection.
	MessageRate  float64
	MessageBurst int
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.MessageRate <= 0 {
		c.MessageRate = 20
	}
	if c.MessageBurst <= 0 {
		c.MessageBurst = 40
	}

	return c
}

type Controller struct {
	registry       iRegistry
	handshakeRepo  iHandshakeRepo
	connRepo       iConnRepo
	identity       iIdentityVerifier
	broadcaster    iBroadcaster
	metricsHandler http.Handler

	cfg      Config
	upgrader websocket.Upgrader
	validate *validator.Validator
	logger   *slog.Logger
}

func NewController(
	registry iRegistry,
	handshakeRepo iHandshakeRepo,
	connRepo iConnRepo,
	identity iIdentityVerifier,
	broadcaster iBroadcaster,
	metricsHandler http.Handler,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		registry:       registry,
		handshakeRepo:  handshakeRepo,
		connRepo:       connRepo,
		identity:       identity,
		broadcaster:    broadcaster,
		metricsHandler: metricsHandler,
		cfg:            cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}
