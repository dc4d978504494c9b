// Package server exposes an app.Context over HTTP: a small JSON API for
// the UI's commands and a websocket that streams every DataUpdate.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/steveyegge/ghtrack/internal/app"
	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/debug"
	"github.com/steveyegge/ghtrack/internal/types"
)

// writeTimeout bounds a single websocket write.
const writeTimeout = 10 * time.Second

// Server routes HTTP requests to an app.Context.
type Server struct {
	app *app.Context
	log *slog.Logger
	hub *hub
}

// New creates a server for a and installs itself as a's watcher.
func New(a *app.Context, log *slog.Logger) *Server {
	if log == nil {
		log = debug.Logger()
	}
	s := &Server{app: a, log: log, hub: newHub(log)}
	a.SetWatcher(s.hub.broadcast)
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/save", s.handleSave)
		r.Post("/sanitize", s.handleSanitize)
		r.Post("/items/update", s.handleUpdateItems)
		r.Post("/items/{id}/convert-tracked", s.handleConvertTracked)
		r.Put("/filters", s.handleFilters)
		r.Put("/preview", s.handlePreview)
		r.Route("/changes", func(r chi.Router) {
			r.Get("/", s.handleListChanges)
			r.Post("/", s.handleAddChange)
			r.Delete("/", s.handleRemoveChange)
			r.Delete("/all", s.handleClearChanges)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeAppError maps app errors onto status codes.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotLoaded):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, context.Canceled):
		s.writeError(w, http.StatusRequestTimeout, err)
	default:
		s.writeError(w, http.StatusBadGateway, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	d, err := s.app.Snapshot()
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force, err := boolParam(r, "force")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.Refresh(r.Context(), force); err != nil {
		s.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type saveResponse struct {
	BatchID string             `json:"batch_id"`
	DryRun  bool               `json:"dry_run"`
	Changed []types.WorkItemID `json:"changed"`
	Pending int                `json:"pending"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	dryRun, err := boolParam(r, "dry_run")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	batch := uuid.NewString()
	log := s.log.With("batch_id", batch)
	resp := saveResponse{BatchID: batch, DryRun: dryRun, Changed: []types.WorkItemID{}}

	if dryRun {
		err = s.app.SaveDryRun(r.Context(), nil)
	} else {
		var changed []types.WorkItemID
		changed, err = s.app.Save(r.Context(), func(ch changes.Change, done, total int) {
			log.Debug("saved change", "change", ch.String(), "done", done, "total", total)
		})
		if changed != nil {
			resp.Changed = changed
		}
	}
	resp.Pending = len(s.app.Changes())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	log.Info("save finished", "changed", len(resp.Changed), "pending", resp.Pending, "dry_run", dryRun)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	out, err := s.app.Sanitize(r.Context())
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type updateItemsRequest struct {
	IDs   []types.WorkItemID `json:"ids"`
	Force bool               `json:"force"`
}

func (s *Server) handleUpdateItems(w http.ResponseWriter, r *http.Request) {
	var req updateItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.app.UpdateItems(r.Context(), req.IDs, req.Force); err != nil {
		s.writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConvertTracked(w http.ResponseWriter, r *http.Request) {
	id := types.WorkItemID(chi.URLParam(r, "id"))
	out, err := s.app.ConvertTrackedToSubIssues(r.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrNotLoaded) {
			s.writeAppError(w, err)
			return
		}
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var f app.Filters
	if err := decodeJSON(r, &f); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.SetFilters(f)
	writeJSON(w, http.StatusOK, s.app.Filters())
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		On bool `json:"on"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.SetPreview(req.On)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChanges(w http.ResponseWriter, _ *http.Request) {
	list := s.app.Changes()
	if list == nil {
		list = []changes.Change{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddChange(w http.ResponseWriter, r *http.Request) {
	var ch changes.Change
	if err := decodeJSON(r, &ch); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.AddChange(r.Context(), ch)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveChange(w http.ResponseWriter, r *http.Request) {
	var ch changes.Change
	if err := decodeJSON(r, &ch); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.app.RemoveChange(r.Context(), ch)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearChanges(w http.ResponseWriter, r *http.Request) {
	s.app.ClearChanges(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleWS streams DataUpdates. A new client first gets the current
// snapshot, when there is one.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.log.Debug("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	c := s.hub.register()
	defer s.hub.unregister(c)

	// Clients only listen; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	if d, err := s.app.Snapshot(); err == nil {
		if err := s.write(ctx, conn, d); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.dropped:
			_ = conn.Close(websocket.StatusPolicyViolation, "too slow")
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				s.log.Debug("websocket write", "error", err)
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
