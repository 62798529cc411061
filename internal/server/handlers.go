package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/linkedin-connect/internal/connection"
	"github.com/yourusername/linkedin-connect/internal/logger"
	"github.com/yourusername/linkedin-connect/internal/messaging"
	"github.com/yourusername/linkedin-connect/internal/search"
)

const maxBodyBytes = 64 << 10

type searchRequest struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	SenderName string `json:"sender_name"`
	Context    string `json:"context"`
}

type searchResponse struct {
	Message       string           `json:"message,omitempty"`
	Candidates    []search.Profile `json:"candidates"`
	CustomMessage string           `json:"custom_message,omitempty"`
}

type sendRequest struct {
	ProfileURL string `json:"profile_url"`
	Message    string `json:"message"`
}

type sendResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "linkedin-connect is running. Use /search_and_generate and /send_request.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearchAndGenerate(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Company) == "" {
		respondError(w, http.StatusBadRequest, errors.New("name and company are required"))
		return
	}

	profiles, err := s.searcher.Search(r.Context(), req.Name, req.Company)
	if err != nil {
		metricSearches.WithLabelValues("error").Inc()
		logger.Error("Profile search failed", "name", req.Name, "company", req.Company, "error", err)
		respondError(w, http.StatusBadGateway, err)
		return
	}
	if len(profiles) == 0 {
		metricSearches.WithLabelValues("empty").Inc()
		respondJSON(w, http.StatusOK, searchResponse{Message: "No profiles found.", Candidates: []search.Profile{}})
		return
	}
	metricSearches.WithLabelValues("found").Inc()

	note, err := s.composer.Generate(r.Context(), messaging.NoteRequest{
		SenderName:       req.SenderName,
		RecipientName:    req.Name,
		RecipientCompany: req.Company,
		Position:         profiles[0].Position,
		Context:          req.Context,
	})
	if err != nil {
		logger.Error("Note generation failed", "recipient", req.Name, "error", err)
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{Candidates: profiles, CustomMessage: note})
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := connection.NormalizeProfileURL(req.ProfileURL); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	message := messaging.Truncate(strings.TrimSpace(req.Message), messaging.MaxNoteLength)

	if !s.sessions.TryAcquire(1) {
		metricRejected.Inc()
		logger.Warn("Rejecting connection request, all sessions busy", "max_sessions", s.cfg.MaxConcurrentSessions)
		respondError(w, http.StatusTooManyRequests, errors.New("all browser sessions are busy, try again later"))
		return
	}
	defer s.sessions.Release(1)

	if !s.beginAttempt() {
		respondError(w, http.StatusServiceUnavailable, errors.New("server is shutting down"))
		return
	}
	defer s.attempts.Done()

	metricActiveSessions.Inc()
	start := time.Now()
	detail, err := s.connector.Connect(r.Context(), req.ProfileURL, message)
	metricActiveSessions.Dec()
	metricAttemptDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reason := connection.Reason(err)
		metricAttempts.WithLabelValues(reason).Inc()

		resp := errorResponse{Error: err.Error(), Reason: reason}
		var failure *connection.Failure
		if errors.As(err, &failure) {
			resp.Phase = string(failure.State)
		}
		respondJSON(w, statusForReason(reason), resp)
		return
	}

	metricAttempts.WithLabelValues("sent").Inc()
	respondJSON(w, http.StatusOK, sendResponse{Status: "done", Detail: detail})
}

// statusForReason maps a failure reason to the HTTP status reported to clients.
func statusForReason(reason string) int {
	switch reason {
	case "authentication_timeout":
		return http.StatusBadGateway
	case "navigation_timeout", "send_timeout":
		return http.StatusGatewayTimeout
	case "connect_control_not_found", "note_affordance_not_found":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
