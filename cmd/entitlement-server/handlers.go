package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nexusbot/entitlements/pkg/gateway"
	"github.com/nexusbot/entitlements/pkg/licensing"
	"github.com/nexusbot/entitlements/pkg/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response status for request metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

// handleHealth reports server health and verifies the store connection
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"store":  "disconnected",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"store":  "connected",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

// handleCheck answers whether a user may act at a required tier
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req validation.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateCheckRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.manager.CanUseCommand(r.Context(), req.UserID, licensing.ParseTier(req.RequiredTier))
	if err != nil {
		s.logger.Error("authorization check failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "authorization check failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRedeem binds a license key to a user
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req validation.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateRedeemRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.manager.RedeemKey(r.Context(), req.UserID, req.Key)
	if err != nil {
		s.logger.Error("redemption failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "redemption failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCommand routes a bot command through the dispatcher
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req gateway.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnknownCommand):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, gateway.ErrInvalidUserID):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("command dispatch failed", "user_id", req.UserID, "command", req.Command, "error", err)
			writeError(w, http.StatusInternalServerError, "command dispatch failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetLicense returns a user's current license view
func (s *Server) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	view, err := s.manager.GetUserLicense(r.Context(), userID)
	if err != nil {
		s.logger.Error("license lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "license lookup failed")
		return
	}
	if view == nil {
		writeError(w, http.StatusNotFound, "no license found for user")
		return
	}
	writeJSON(w, http.StatusOK, view)
}
