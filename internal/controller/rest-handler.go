package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	accountrepo "github.com/bingesync/server/internal/repository/account"
	"github.com/bingesync/server/internal/service/account"
	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/rest"
)

func (c controller) writeError(w http.ResponseWriter, err error) {
	code, message := mapError(err)

	switch {
	case errors.Is(err, accountrepo.ErrEmailTaken):
		code, message = codeValidationError, "email is already taken"
	case errors.Is(err, accountrepo.ErrUsernameTaken):
		code, message = codeValidationError, "username is already taken"
	case errors.Is(err, account.ErrInvalidCredentials):
		code, message = codeAuthRequired, "invalid credentials"
	}

	rest.WriteJSON(w, httpStatus(code), rest.Envelope{"error": rest.Envelope{
		"code":    code,
		"message": message,
	}})
}

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=24,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type authResponse struct {
	Token    string           `json:"token"`
	Identity account.Identity `json:"identity"`
}

func (c controller) register(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.accountService.Register(r.Context(), &account.RegisterParams{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to register", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": authResponse(resp)})
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c controller) login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.accountService.Login(r.Context(), &account.LoginParams{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to login", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": authResponse(resp)})
}

func (c controller) me(w http.ResponseWriter, r *http.Request) {
	identity, err := c.accountService.GetIdentity(r.Context(), c.getIdentityIdFromCtx(r.Context()))
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to get identity", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": identity})
}

type createRoomInput struct {
	Name       string `json:"name" validate:"required,max=64"`
	IsPrivate  bool   `json:"is_private"`
	MaxMembers int    `json:"max_members" validate:"gte=0,lte=50"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var input createRoomInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		CreatorId:  c.getIdentityIdFromCtx(r.Context()),
		Name:       input.Name,
		IsPrivate:  input.IsPrivate,
		MaxMembers: input.MaxMembers,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to create room", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp.Room})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListPublicRooms(r.Context())
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to list rooms", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomInfo, err := c.roomService.GetRoomInfo(r.Context(), &room.GetRoomInfoParams{
		IdentityId: c.getIdentityIdFromCtx(r.Context()),
		RoomCode:   chi.URLParam(r, "room-code"),
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to get room", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": roomInfo})
}

type updateRoomSettingsInput struct {
	AllowGuestControl *bool `json:"allow_guest_control"`
	MaxMembers        *int  `json:"max_members"`
}

func (c controller) updateRoomSettings(w http.ResponseWriter, r *http.Request) {
	var input updateRoomSettingsInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	settings, err := c.roomService.UpdateSettings(r.Context(), &room.UpdateSettingsParams{
		IdentityId:        c.getIdentityIdFromCtx(r.Context()),
		RoomCode:          chi.URLParam(r, "room-code"),
		AllowGuestControl: input.AllowGuestControl,
		MaxMembers:        input.MaxMembers,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to update room settings", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": settings})
}

func (c controller) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.DeleteRoom(r.Context(), &room.DeleteRoomParams{
		IdentityId: c.getIdentityIdFromCtx(r.Context()),
		RoomCode:   chi.URLParam(r, "room-code"),
	}); err != nil {
		c.logger.InfoContext(r.Context(), "failed to delete room", "error", err)
		c.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := c.roomService.GetMessageHistory(r.Context(), &room.GetMessageHistoryParams{
		IdentityId: c.getIdentityIdFromCtx(r.Context()),
		RoomCode:   chi.URLParam(r, "room-code"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to get room messages", "error", err)
		c.writeError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": messages})
}
