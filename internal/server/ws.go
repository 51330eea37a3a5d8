package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matomesearch/matome/internal/models"
)

type startedFrame struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

type resultFrame struct {
	Type  string              `json:"type"`
	Index int                 `json:"index"`
	Data  models.ScoredResult `json:"data"`
}

type completedFrame struct {
	Type         string `json:"type"`
	Status       string `json:"status"`
	TotalResults int    `json:"total_results"`
	FromCache    bool   `json:"from_cache"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleSearchSocket serves repeated searches over one WebSocket connection.
// Each received SearchRequest produces a started frame, one result frame per
// paged result, and a completed frame, or an error frame when the search is
// rejected.
func (s *Server) handleSearchSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	ctx := r.Context()
	ip := clientIP(r)
	for {
		var req models.SearchRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if err := s.streamSearch(ctx, conn, &req, ip); err != nil {
			s.logger.Debug("websocket stream ended", zap.Error(err))
			return
		}
	}
}

// streamSearch runs one search and streams its frames. A write error means the
// peer is gone; the caller tears the connection down.
func (s *Server) streamSearch(ctx context.Context, conn *websocket.Conn, req *models.SearchRequest, ip string) error {
	if err := wsjson.Write(ctx, conn, startedFrame{Type: "started", Query: req.Query}); err != nil {
		return err
	}
	resp, err := s.orchestrator.Search(ctx, req, ip)
	if err != nil {
		return wsjson.Write(ctx, conn, errorFrame{Type: "error", Error: err.Error()})
	}
	for i, result := range resp.Results {
		if err := wsjson.Write(ctx, conn, resultFrame{Type: "result", Index: i, Data: result}); err != nil {
			return err
		}
	}
	return wsjson.Write(ctx, conn, completedFrame{
		Type:         "completed",
		Status:       resp.Status,
		TotalResults: resp.TotalResults,
		FromCache:    resp.FromCache,
	})
}
