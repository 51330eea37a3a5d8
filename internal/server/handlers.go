package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/matomesearch/matome/internal/models"
)

const apiVersion = "1.0.0"

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"service": "matome",
		"version": apiVersion,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"api":     "ok",
		"cache":   "ok",
		"storage": "ok",
		"archive": "ok",
	}
	if s.store == nil {
		components["storage"] = "disabled"
	}
	if s.archive == nil {
		components["archive"] = "disabled"
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"components": components,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.Strings("sources", req.Sources))
	response, err := s.orchestrator.Search(r.Context(), &req, clientIP(r))
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			s.respondError(w, http.StatusBadRequest, verr.Msg)
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type analyzeRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("analyze request", zap.String("query", req.Query))
	analysis := s.analyzer.Analyze(req.Query)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":    req.Query,
		"analysis": analysis,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}
	limit := queryInt(r, "limit", 0)
	records, err := s.store.History(r.Context(), limit, r.URL.Query().Get("q"))
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.SearchRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"history": records,
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "analytics is disabled")
		return
	}
	stats, err := s.store.Analytics(r.Context())
	if err != nil {
		s.logger.Error("analytics query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "suggestions are disabled")
		return
	}
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", 0)
	suggestions, err := s.store.Suggestions(r.Context(), prefix, limit)
	if err != nil {
		s.logger.Error("suggestions query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":       prefix,
		"suggestions": suggestions,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.logger.Debug("cache cleared")
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sources": s.registry.Names(),
	})
}

// clientIP extracts the peer address without the port for history records.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// queryInt parses an integer query parameter, falling back when the parameter
// is absent or malformed.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
