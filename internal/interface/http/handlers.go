package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bourgade-rp/bourgade-hub/internal/application/command"
	"github.com/bourgade-rp/bourgade-hub/internal/application/query"
	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
	"github.com/bourgade-rp/bourgade-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

type createExpeditionRequest struct {
	Name             string                 `json:"name"`
	TownID           string                 `json:"townId"`
	DurationDays     int                    `json:"durationDays"`
	CreatedBy        string                 `json:"createdBy"`
	InitialResources []resourceGrantRequest `json:"initialResources"`
}

type resourceGrantRequest struct {
	ResourceType string `json:"resourceType"`
	Quantity     int    `json:"quantity"`
}

type memberRequest struct {
	CharacterID string `json:"characterId"`
}

type setDirectionRequest struct {
	CharacterID string `json:"characterId"`
	Direction   string `json:"direction"`
}

type transferRequest struct {
	CharacterID  string `json:"characterId"`
	ResourceType string `json:"resourceType"`
	Quantity     int    `json:"quantity"`
	Direction    string `json:"direction"`
}

type lockRequest struct {
	Force bool `json:"force"`
}

type modifyExpeditionRequest struct {
	Name              string `json:"name"`
	DurationDays      int    `json:"durationDays"`
	RecomputeReturnAt bool   `json:"recomputeReturnAt"`
}

// decodeBody parses a JSON request body into dst. An empty body is allowed
// when optional is true, so POST endpoints without parameters stay curl-able.
func decodeBody(r *http.Request, dst interface{}, optional bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		if optional {
			return nil
		}
		return errors.New("request body is required")
	}
	return json.Unmarshal(body, dst)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps a domain error onto an HTTP status. Client-recoverable
// errors keep the domain message; everything else is hidden behind a 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := domainErrorStatus(err)

	if status >= 500 {
		s.logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
			logger.Err(err),
		)
		writeJSONError(w, status, code, "An unexpected error occurred")
		return
	}

	writeJSONError(w, status, code, err.Error())
}

func domainErrorStatus(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrNotAMember), errors.Is(err, shared.ErrNotEligible):
		return http.StatusForbidden, "not_eligible"
	case errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case shared.IsStateTransition(err),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, shared.ErrAlreadySet),
		errors.Is(err, shared.ErrSameLocation),
		errors.Is(err, shared.ErrConcurrentModification):
		return http.StatusConflict, "conflict"
	case shared.IsExternalService(err):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Endpoint not found")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"service": "bourgade-hub",
		"api":     "/api/v1",
		"health":  "/health",
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(ctx); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status":  "not_ready",
				"service": name,
				"error":   err.Error(),
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(s.deps.HealthCheckers))
	healthy := true
	for name, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(ctx); err != nil {
			services[name] = "down"
			healthy = false
		} else {
			services[name] = "up"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, r, status, map[string]interface{}{
		"status":   overall,
		"uptime":   s.Uptime().String(),
		"services": services,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateExpedition(w http.ResponseWriter, r *http.Request) {
	var req createExpeditionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	grants := make([]command.ResourceGrant, 0, len(req.InitialResources))
	for _, g := range req.InitialResources {
		grants = append(grants, command.ResourceGrant{ResourceType: g.ResourceType, Quantity: g.Quantity})
	}

	result, err := s.deps.CreateExpedition.Handle(r.Context(), command.CreateExpeditionCommand{
		Name:             req.Name,
		TownID:           req.TownID,
		DurationDays:     req.DurationDays,
		CreatedBy:        req.CreatedBy,
		InitialResources: grants,
		CorrelationID:    getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"status":       result.Status,
	})
}

func (s *Server) handleGetExpedition(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetExpedition.Handle(r.Context(), query.GetExpeditionQuery{
		ExpeditionID:  r.PathValue("id"),
		IncludeStocks: getQueryParamBool(r, "includeStocks"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto)
}

func (s *Server) handleListExpeditions(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListExpeditions.HandleAll(r.Context(), getQueryParamBool(r, "includeReturned"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleListTownExpeditions(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListExpeditions.HandleByTown(r.Context(), query.ListTownExpeditionsQuery{
		TownID:          r.PathValue("townId"),
		IncludeReturned: getQueryParamBool(r, "includeReturned"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleListCharacterExpeditions(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListExpeditions.HandleActiveForCharacter(r.Context(), r.PathValue("characterId"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.JoinExpedition.Handle(r.Context(), command.JoinExpeditionCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   req.CharacterID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"membersCount": result.MembersCount,
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.LeaveExpedition.Handle(r.Context(), command.LeaveExpeditionCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   r.PathValue("characterId"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"membersCount": result.MembersCount,
		"terminated":   result.Terminated,
	})
}

func (s *Server) handleSetDirection(w http.ResponseWriter, r *http.Request) {
	var req setDirectionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.SetDirection.Handle(r.Context(), command.SetDirectionCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   req.CharacterID,
		Direction:     req.Direction,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"direction":    result.Direction,
	})
}

func (s *Server) handleToggleVote(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.ToggleVote.Handle(r.Context(), command.ToggleEmergencyVoteCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   req.CharacterID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"vote":         result.Vote,
		"returned":     result.Returned,
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	s.doTransfer(w, r, false)
}

func (s *Server) doTransfer(w http.ResponseWriter, r *http.Request, asAdmin bool) {
	var req transferRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.Transfer.Handle(r.Context(), command.TransferResourceCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   req.CharacterID,
		ResourceType:  req.ResourceType,
		Quantity:      req.Quantity,
		Direction:     req.Direction,
		AsAdmin:       asAdmin,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId":      result.ExpeditionID,
		"resourceType":      result.ResourceType,
		"quantity":          result.Quantity,
		"direction":         result.Direction,
		"townBalance":       result.TownBalance,
		"expeditionBalance": result.ExpeditionBalance,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleAdminLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.LockExpedition.Handle(r.Context(), command.LockExpeditionCommand{
		ExpeditionID:  r.PathValue("id"),
		Force:         req.Force,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"status":       result.Status,
		"terminated":   result.Terminated,
	})
}

func (s *Server) handleAdminDepart(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.DepartExpedition.Handle(r.Context(), command.DepartExpeditionCommand{
		ExpeditionID:  r.PathValue("id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"status":       result.Status,
		"returnAt":     result.ReturnAt,
	})
}

func (s *Server) handleAdminForceReturn(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ForceReturn.Handle(r.Context(), command.ForceReturnCommand{
		ExpeditionID:  r.PathValue("id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"status":       result.Status,
	})
}

func (s *Server) handleAdminModify(w http.ResponseWriter, r *http.Request) {
	var req modifyExpeditionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.ModifyExpedition.Handle(r.Context(), command.ModifyExpeditionCommand{
		ExpeditionID:      r.PathValue("id"),
		Name:              req.Name,
		DurationDays:      req.DurationDays,
		RecomputeReturnAt: req.RecomputeReturnAt,
		CorrelationID:     getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"name":         result.Name,
		"durationDays": result.DurationDays,
	})
}

func (s *Server) handleAdminAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.AdminMember.HandleAdd(r.Context(), command.AdminMemberCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   req.CharacterID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"membersCount": result.MembersCount,
	})
}

func (s *Server) handleAdminRemoveMember(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.AdminMember.HandleRemove(r.Context(), command.AdminMemberCommand{
		ExpeditionID:  r.PathValue("id"),
		CharacterID:   r.PathValue("characterId"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"expeditionId": result.ExpeditionID,
		"membersCount": result.MembersCount,
		"terminated":   result.Terminated,
		"returned":     result.Returned,
	})
}

func (s *Server) handleAdminTransfer(w http.ResponseWriter, r *http.Request) {
	s.doTransfer(w, r, true)
}
