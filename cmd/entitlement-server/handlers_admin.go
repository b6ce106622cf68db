package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/nexusbot/entitlements/pkg/audit"
	"github.com/nexusbot/entitlements/pkg/licensing"
	"github.com/nexusbot/entitlements/pkg/validation"
)

// handleLogin exchanges operator credentials for a session token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateLoginRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := s.creds.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Info("login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.jwt.GenerateToken(req.Username, role)
	if err != nil {
		s.logger.Error("token generation failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "token generation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": token,
		"role":  role,
	})
}

// handleIssue mints unassigned license keys
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req validation.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.ValidateIssueRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	keys, err := s.manager.IssueKeys(r.Context(), licensing.ParseTier(req.Tier), req.Count)
	if err != nil {
		s.logger.Error("key issuance failed", "tier", req.Tier, "count", req.Count, "error", err)
		writeError(w, http.StatusInternalServerError, "key issuance failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tier": req.Tier,
		"keys": keys,
	})
}

type licenseEntry struct {
	Key string `json:"key"`
	licensing.LicenseRecord
}

// handleListLicenses lists all issued licenses
func (s *Server) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	doc, err := s.manager.Export(r.Context())
	if err != nil {
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	keys := make([]string, 0, len(doc.Licenses))
	for key := range doc.Licenses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]licenseEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, licenseEntry{Key: key, LicenseRecord: *doc.Licenses[key]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(entries),
		"licenses": entries,
	})
}

type userEntry struct {
	UserID string `json:"userId"`
	licensing.UserRecord
}

// handleListUsers lists all licensed users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	doc, err := s.manager.Export(r.Context())
	if err != nil {
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	ids := make([]string, 0, len(doc.Users))
	for id := range doc.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]userEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, userEntry{UserID: id, UserRecord: *doc.Users[id]})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"users": entries,
	})
}

// handleAssign sets a user's license directly, minting a fresh key or
// binding an existing one
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Tier   string `json:"tier"`
		Key    string `json:"key,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	view, err := s.manager.SetUserLicense(r.Context(), req.UserID, licensing.ParseTier(req.Tier), req.Key)
	if err != nil {
		if errors.Is(err, licensing.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, "license key does not exist")
			return
		}
		s.logger.Error("license assignment failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "license assignment failed")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleRevoke revokes a user's license
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	revoked, err := s.manager.RevokeUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("revocation failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "revocation failed")
		return
	}
	if !revoked {
		writeError(w, http.StatusNotFound, "no license found for user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

// handleUnrevoke clears the revoked flag on a user's active license
func (s *Server) handleUnrevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	restored, err := s.manager.UnrevokeUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("unrevocation failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "unrevocation failed")
		return
	}
	if !restored {
		writeError(w, http.StatusNotFound, "no revoked license found for user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

func decodeUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return "", false
	}
	return req.UserID, true
}

// handleAudit returns recent audit events, optionally filtered
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var events []*audit.Event
	if q.Get("user_id") != "" || q.Get("action") != "" {
		filter := &audit.Filter{
			UserID: q.Get("user_id"),
			Action: audit.Action(q.Get("action")),
		}
		events = s.auditLog.Events(filter)
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
	} else {
		events = s.auditLog.Recent(limit)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}
