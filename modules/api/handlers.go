package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/videomeet/modules/admin"
	"github.com/example/videomeet/modules/auth"
	"github.com/example/videomeet/modules/chat"
	"github.com/example/videomeet/modules/presence"
	"github.com/example/videomeet/modules/recording"
	"github.com/example/videomeet/modules/room"
	"github.com/example/videomeet/modules/rtc"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth       *auth.AuthService
	rooms      *room.Service
	chat       *chat.Service
	rtc        *rtc.TokenBuilder
	presence   *presence.Tracker
	recordings *recording.Service
	admin      *admin.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authSvc *auth.AuthService,
	rooms *room.Service,
	chatSvc *chat.Service,
	tokens *rtc.TokenBuilder,
	tracker *presence.Tracker,
	recordings *recording.Service,
	adminSvc *admin.Service,
) *Handlers {
	return &Handlers{
		auth:       authSvc,
		rooms:      rooms,
		chat:       chatSvc,
		rtc:        tokens,
		presence:   tracker,
		recordings: recordings,
		admin:      adminSvc,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	user, err := h.auth.Register(c.UserContext(), req.Username, req.Password, req.Nickname)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	user, tokens, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(LoginResponse{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		UserType: string(user.UserType),
		Role:     string(user.Role),
		TokenResponse: TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
			TokenType:    tokens.TokenType,
		},
	})
}

// GuestLogin creates a throwaway guest account and logs it in.
func (h *Handlers) GuestLogin(c *fiber.Ctx) error {
	var req GuestLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, tokens, err := h.auth.GuestLogin(c.UserContext(), req.Nickname)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(LoginResponse{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		UserType: string(user.UserType),
		Role:     string(user.Role),
		TokenResponse: TokenResponse{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
			TokenType:    tokens.TokenType,
		},
	})
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.auth.RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}
	return c.JSON(TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// Profile returns the authenticated user.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	user, err := h.auth.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(user)
}

// CreateRoom creates a meeting room with the caller as host.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rm, err := h.rooms.CreateRoom(c.UserContext(), req.RoomName, req.Password, req.MaxParticipants, claims.UserID, claims.Username)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rm)
}

// GetRoom returns a room by its public id.
func (h *Handlers) GetRoom(c *fiber.Ctx) error {
	rm, err := h.rooms.GetRoom(c.UserContext(), c.Params("roomID"))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(rm)
}

// JoinRoom adds the caller to a room.
func (h *Handlers) JoinRoom(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	var req JoinRoomRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "Invalid request body")
	}

	err := h.rooms.JoinRoom(c.UserContext(), c.Params("roomID"), req.Password, claims.UserID, claims.Username)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"joined": true})
}

// LeaveRoom removes the caller from a room.
func (h *Handlers) LeaveRoom(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.rooms.LeaveRoom(c.UserContext(), c.Params("roomID"), claims.UserID, claims.Username); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"left": true})
}

// EndRoom ends a room. Only the room creator may end it here.
func (h *Handlers) EndRoom(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	err := h.rooms.EndRoom(c.UserContext(), c.Params("roomID"), claims.UserID, false, "meeting ended by host")
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ended": true})
}

// Participants lists the active members of a room.
func (h *Handlers) Participants(c *fiber.Ctx) error {
	participants, err := h.rooms.Participants(c.UserContext(), c.Params("roomID"))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(participants)
}

// RTCToken issues a media token for a room the caller is a member of.
func (h *Handlers) RTCToken(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	roomID := c.Params("roomID")

	member, err := h.rooms.IsMember(c.UserContext(), roomID, claims.UserID)
	if err != nil {
		return h.serviceError(c, err)
	}
	if !member {
		return forbidden(c, "Join the room before requesting a media token")
	}

	token, err := h.rtc.BuildToken(roomID, claims.UserID, rtc.RolePublisher)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(RTCTokenResponse{
		Token:     token,
		AppID:     h.rtc.AppID(),
		Channel:   roomID,
		UID:       claims.UserID,
		ExpiresIn: h.rtc.ExpirySeconds(),
	})
}

// SendMessage posts a chat message into a room. Delivery to connected
// members happens through the relay.
func (h *Handlers) SendMessage(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.chat.SendMessage(c.UserContext(), c.Params("roomID"), claims.UserID, claims.Username, req.Content)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// History returns recent messages of a room in chronological order.
func (h *Handlers) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", chat.DefaultHistoryLimit)
	msgs, err := h.chat.History(c.UserContext(), c.Params("roomID"), limit)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(msgs)
}

// OnlineUsers lists the ids of users currently online.
func (h *Handlers) OnlineUsers(c *fiber.Ctx) error {
	ids, err := h.presence.OnlineUserIDs(c.UserContext())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(OnlineUsersResponse{UserIDs: ids, Count: len(ids)})
}

// StartRecording begins a recording in a room.
func (h *Handlers) StartRecording(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	rec, err := h.recordings.Start(c.UserContext(), c.Params("roomID"), claims.UserID)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// StopRecording finishes a recording with an uploaded file. The file comes
// as multipart form field "file"; "resolution" is an optional form value.
func (h *Handlers) StopRecording(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recording id")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "Recording file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "Recording file is unreadable")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "Recording file is unreadable")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	rec, err := h.recordings.Stop(c.UserContext(), id, data, contentType, c.FormValue("resolution"))
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(rec)
}

// ListRecordings returns completed recordings with optional filters.
func (h *Handlers) ListRecordings(c *fiber.Ctx) error {
	q := recording.ListQuery{
		RoomName: c.Query("room_name"),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("size", 20),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "Invalid 'from' timestamp, use RFC 3339")
		}
		q.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return badRequest(c, "Invalid 'to' timestamp, use RFC 3339")
		}
		q.To = &t
	}

	recs, total, err := h.recordings.List(c.UserContext(), q)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(PageResponse{Items: recs, Total: total, Page: q.Page, Size: q.PageSize})
}

// GetRecording returns recording metadata.
func (h *Handlers) GetRecording(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recording id")
	}
	rec, err := h.recordings.Get(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(rec)
}

// DownloadRecording streams the stored recording file.
func (h *Handlers) DownloadRecording(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recording id")
	}
	data, info, rec, err := h.recordings.Download(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, info.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.RoomName+".webm"))
	return c.Send(data)
}

// DeleteRecording removes a recording if the caller is its creator or an admin.
func (h *Handlers) DeleteRecording(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid recording id")
	}
	if err := h.recordings.Delete(c.UserContext(), id, claims); err != nil {
		return h.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminStatistics returns the dashboard counters.
func (h *Handlers) AdminStatistics(c *fiber.Ctx) error {
	stats, err := h.admin.Statistics(c.UserContext())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(stats)
}

// AdminListUsers returns a page of users with presence.
func (h *Handlers) AdminListUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 20)
	users, total, err := h.admin.ListUsers(c.UserContext(), page, size)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(PageResponse{Items: users, Total: total, Page: page, Size: size})
}

// AdminGetUser returns one user with presence.
func (h *Handlers) AdminGetUser(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	detail, err := h.admin.GetUser(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(detail)
}

// AdminForceOffline disconnects all sessions of a user.
func (h *Handlers) AdminForceOffline(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	var req ForceOfflineRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "Invalid request body")
	}

	if err := h.admin.ForceOffline(c.UserContext(), claims, id, req.Reason); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"forced_offline": true})
}

// AdminListRooms returns a page of rooms.
func (h *Handlers) AdminListRooms(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 20)
	rooms, total, err := h.rooms.ListRooms(c.UserContext(), page, size)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(PageResponse{Items: rooms, Total: total, Page: page, Size: size})
}

// AdminCloseRoom force-closes a room.
func (h *Handlers) AdminCloseRoom(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	var req CloseRoomRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "Invalid request body")
	}

	if err := h.admin.ForceCloseRoom(c.UserContext(), claims, c.Params("roomID"), req.Reason); err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"closed": true})
}

// AdminClearChat wipes a room's chat history.
func (h *Handlers) AdminClearChat(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.admin.ClearChat(c.UserContext(), claims, c.Params("roomID")); err != nil {
		return h.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminOperationLogs returns a page of operation log entries.
func (h *Handlers) AdminOperationLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	size := c.QueryInt("size", 20)
	logs, total, err := h.admin.OperationLogs(c.UserContext(), c.Query("type"), page, size)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(PageResponse{Items: logs, Total: total, Page: page, Size: size})
}

// serviceError maps service errors to HTTP responses.
func (h *Handlers) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized", Message: err.Error()})
	case errors.Is(err, auth.ErrUserExists),
		errors.Is(err, room.ErrRoomEnded),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrTooManyRooms),
		errors.Is(err, recording.ErrAlreadyRecording),
		errors.Is(err, recording.ErrNotRecording):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, recording.ErrRecordingNotFound),
		errors.Is(err, recording.ErrObjectNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, room.ErrRoomPassword),
		errors.Is(err, room.ErrNotHost),
		errors.Is(err, chat.ErrNotMember),
		errors.Is(err, recording.ErrNotOwner),
		errors.Is(err, admin.ErrCannotTargetSelf):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: err.Error()})
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrNicknameRequired),
		errors.Is(err, room.ErrRoomNameRequired),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrMessageInvalid),
		errors.Is(err, recording.ErrRecordingEmpty),
		errors.Is(err, rtc.ErrNoAppID):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: err.Error()})
	default:
		slog.Error("Internal error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: message})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
