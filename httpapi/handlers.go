package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"agencycrm/activity"
	"agencycrm/auth"

	"github.com/go-chi/chi/v5"
)

// ActivityHandler exposes the activity feed REST surface.
type ActivityHandler struct {
	svc *activity.Service
}

// NewActivityHandler builds the handler over the activity service.
func NewActivityHandler(svc *activity.Service) *ActivityHandler {
	return &ActivityHandler{svc: svc}
}

func (h *ActivityHandler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q, errs := parseListQuery(r)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	result, err := h.svc.List(r.Context(), q, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, listResponse{
		Activities: toActivityResponses(result.Activities),
		Pagination: paginationResponse(result.Pagination),
	}, "")
}

func (h *ActivityHandler) stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q, errs := parseStatsQuery(r)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	st, err := h.svc.Stats(r.Context(), q, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toStatsResponse(st), "")
}

func (h *ActivityHandler) search(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q, errs := parseSearchQuery(r, chi.URLParam(r, "query"))
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	items, err := h.svc.Search(r.Context(), q, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toActivityResponses(items), "")
}

// createActivityRequest is the create payload. Field names mirror the wire
// contract of the feed API.
type createActivityRequest struct {
	Type              string            `json:"type"`
	EntityType        string            `json:"entityType"`
	EntityID          string            `json:"entityId"`
	EntityName        string            `json:"entityName"`
	Action            string            `json:"action"`
	Description       string            `json:"description"`
	Details           string            `json:"details"`
	AgentID           string            `json:"agentId"`
	AgentName         string            `json:"agentName"`
	UserID            string            `json:"userId"`
	UserName          string            `json:"userName"`
	ClientID          *string           `json:"clientId"`
	Metadata          activity.Metadata `json:"metadata"`
	Priority          string            `json:"priority"`
	Tags              []string          `json:"tags"`
	IsSystemGenerated bool              `json:"isSystemGenerated"`
}

func (h *ActivityHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	in := activity.CreateInput{
		Type:              activity.Type(req.Type),
		EntityType:        activity.EntityType(req.EntityType),
		EntityID:          req.EntityID,
		EntityName:        req.EntityName,
		Action:            req.Action,
		Description:       req.Description,
		Details:           req.Details,
		AgentID:           req.AgentID,
		AgentName:         req.AgentName,
		UserID:            req.UserID,
		UserName:          req.UserName,
		ClientID:          req.ClientID,
		Metadata:          req.Metadata,
		Priority:          activity.Priority(req.Priority),
		Tags:              req.Tags,
		IsSystemGenerated: req.IsSystemGenerated,
	}

	created, err := h.svc.Create(r.Context(), in, activity.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, toActivityResponse(created), "activity created")
}

// updateActivityRequest holds only the mutable fields. Immutable keys a
// caller may send (entityType, entityId, createdBy, createdAt) have no
// destination here and are dropped during decoding.
type updateActivityRequest struct {
	Type              *string            `json:"type"`
	EntityName        *string            `json:"entityName"`
	Action            *string            `json:"action"`
	Description       *string            `json:"description"`
	Details           *string            `json:"details"`
	AgentID           *string            `json:"agentId"`
	AgentName         *string            `json:"agentName"`
	UserID            *string            `json:"userId"`
	UserName          *string            `json:"userName"`
	ClientID          *string            `json:"clientId"`
	Metadata          *activity.Metadata `json:"metadata"`
	Priority          *string            `json:"priority"`
	Status            *string            `json:"status"`
	IsVisible         *bool              `json:"isVisible"`
	Tags              *[]string          `json:"tags"`
	IsSystemGenerated *bool              `json:"isSystemGenerated"`
}

func (h *ActivityHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	patch := activity.UpdatePatch{
		EntityName:        req.EntityName,
		Action:            req.Action,
		Description:       req.Description,
		Details:           req.Details,
		AgentID:           req.AgentID,
		AgentName:         req.AgentName,
		UserID:            req.UserID,
		UserName:          req.UserName,
		ClientID:          req.ClientID,
		Metadata:          req.Metadata,
		IsVisible:         req.IsVisible,
		Tags:              req.Tags,
		IsSystemGenerated: req.IsSystemGenerated,
	}
	if req.Type != nil {
		t := activity.Type(*req.Type)
		patch.Type = &t
	}
	if req.Priority != nil {
		p := activity.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Status != nil {
		st := activity.Status(*req.Status)
		patch.Status = &st
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toActivityResponse(updated), "activity updated")
}

func (h *ActivityHandler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	item, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toActivityResponse(item), "")
}

func (h *ActivityHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type bulkActionRequest struct {
	ActivityIDs []string `json:"activityIds"`
	Action      string   `json:"action"`
	Value       string   `json:"value"`
}

func (h *ActivityHandler) bulk(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bulkActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.svc.Bulk(r.Context(), activity.BulkRequest{
		ActivityIDs: req.ActivityIDs,
		Action:      activity.BulkAction(req.Action),
		Value:       req.Value,
	}, actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, bulkResponse(result), "bulk action applied")
}

// AuthHandler exposes registration and login.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler builds the handler over the auth service.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeSuccess(w, http.StatusCreated, toUserResponse(*user), "user registered")
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	}, "login successful")
}

// clientIP extracts the peer address without the port. Behind the RealIP
// middleware RemoteAddr may already be a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
