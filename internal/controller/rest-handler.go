package controller

import (
	"net/http"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/cinematogether/server/pkg/rest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"})
}

func (c *Controller) ListRooms(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.registry.ListPublic()})
}

func (c *Controller) GetRoom(w http.ResponseWriter, r *http.Request) {
	session, err := c.registry.GetRoom(chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeRESTError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": session.Info()})
}

func (c *Controller) DestroyRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.registry.DestroyRoom(chi.URLParam(r, "room-id")); err != nil {
		c.writeRESTError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"})
}

type createRoomRequest struct {
	Title         string  `json:"title" validate:"required,max=100"`
	MediaRef      string  `json:"media_ref" validate:"required"`
	Visibility    string  `json:"visibility" validate:"omitempty,oneof=public private"`
	MaxMembers    int     `json:"max_members" validate:"required,min=2,max=50"`
	ChatEnabled   bool    `json:"chat_enabled"`
	Duration      float64 `json:"duration" validate:"omitempty,min=0"`
	DisplayName   string  `json:"display_name" validate:"omitempty,max=32"`
	IdentityToken string  `json:"identity_token"`
}

type connectTokenResponse struct {
	ConnectToken string `json:"connect_token"`
}

// CreateRoom validates the request and parks a create intent behind a
// one-shot connect token. The room itself is created when the websocket
// upgrade redeems the token, so abandoned requests never leave empty rooms
// behind.
func (c *Controller) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	ident, err := c.resolveIdentity(req.IdentityToken, req.DisplayName)
	if err != nil {
		c.writeRESTError(w, r, err)
		return
	}

	connectToken := uuid.NewString()
	if err := c.handshakeRepo.SetIntent(r.Context(), connectToken, &handshake.Intent{
		Kind:     handshake.KindCreate,
		Identity: ident,
		RoomConfig: domain.RoomConfig{
			Title:       req.Title,
			MediaRef:    req.MediaRef,
			Visibility:  domain.Visibility(req.Visibility),
			MaxMembers:  req.MaxMembers,
			ChatEnabled: req.ChatEnabled,
			Duration:    req.Duration,
		},
	}); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to set create intent", "error", err)
		c.writeRESTError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": connectTokenResponse{ConnectToken: connectToken}})
}

type joinRoomRequest struct {
	DisplayName         string `json:"display_name" validate:"omitempty,max=32"`
	IdentityToken       string `json:"identity_token"`
	ResumeParticipantID string `json:"resume_participant_id"`
}

func (c *Controller) JoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room-id")

	var req joinRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	// reject before handing out a token; the room may still fill up or
	// close before the token is redeemed, so the ws upgrade re-checks.
	session, err := c.registry.GetRoom(roomID)
	if err != nil {
		c.writeRESTError(w, r, err)
		return
	}

	ident, err := c.resolveIdentity(req.IdentityToken, req.DisplayName)
	if err != nil {
		c.writeRESTError(w, r, err)
		return
	}

	connectToken := uuid.NewString()
	if err := c.handshakeRepo.SetIntent(r.Context(), connectToken, &handshake.Intent{
		Kind:                handshake.KindJoin,
		Identity:            ident,
		RoomID:              session.ID(),
		ResumeParticipantID: req.ResumeParticipantID,
	}); err != nil {
		c.logger.ErrorContext(r.Context(), "failed to set join intent", "error", err)
		c.writeRESTError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": connectTokenResponse{ConnectToken: connectToken}})
}

func (c *Controller) resolveIdentity(identityToken, displayName string) (domain.Identity, error) {
	if identityToken != "" {
		return c.identity.Verify(identityToken)
	}

	return c.identity.Guest(displayName)
}

func (c *Controller) writeRESTError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": errorCode(err)})
}
