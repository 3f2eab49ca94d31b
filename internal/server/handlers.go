package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/engine"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/pkg/utils"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	start := time.Now()
	s.logger.Debug("search request",
		zap.String("request_id", requestID),
		zap.String("query", utils.Truncate(req.Query, 80)),
		zap.Int("page", req.Page),
	)

	responses := make(chan *models.SearchResponse, 1)
	callback := func(_, _ int) {
		s.session.SetCurrentPage(req.Page)
		resp := s.session.Snapshot(req.Query)
		resp.RequestID = requestID
		resp.QueryTime = time.Since(start).Milliseconds()
		select {
		case responses <- resp:
		default:
		}
	}

	s.mu.Lock()
	var released chan struct{}
	if s.session.State() != search.StateReady {
		s.release()
		released = make(chan struct{})
		s.released = released
	}
	err := s.session.Search(req.Query, callback)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("search failed", zap.String("request_id", requestID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	timer := time.NewTimer(s.searchTimeout())
	defer timer.Stop()
	select {
	case resp := <-responses:
		s.respondJSON(w, http.StatusOK, resp)
	case <-released:
		select {
		case resp := <-responses:
			s.respondJSON(w, http.StatusOK, resp)
		default:
			s.respondUnavailable(w, requestID, "search superseded by a newer request")
		}
	case <-timer.C:
		s.respondUnavailable(w, requestID, "index not loaded")
	case <-r.Context().Done():
		s.logger.Debug("search request cancelled", zap.String("request_id", requestID))
	}
}

func (s *Server) handleLoadIndex(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIndexBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.LoadIndex(body); err != nil {
		var loadErr *engine.IndexLoadError
		if errors.As(err, &loadErr) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("index load failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "loaded",
		"documents": s.documentCount(r),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	state := s.session.State().String()
	s.mu.Unlock()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":     state,
		"documents": s.documentCount(r),
	})
}

func (s *Server) documentCount(r *http.Request) int64 {
	if s.store == nil {
		return 0
	}
	n, err := s.store.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		return 0
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondUnavailable(w http.ResponseWriter, requestID, message string) {
	s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error":      message,
		"request_id": requestID,
	})
}
