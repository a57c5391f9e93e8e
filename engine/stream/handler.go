package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/scene"
	"github.com/WessleyAI/termscape/pkg/fn"
	"github.com/WessleyAI/termscape/pkg/metrics"
	"github.com/WessleyAI/termscape/pkg/mid"
)

// Server holds the collaborators behind the HTTP routes.
type Server struct {
	Scene      *scene.Scene
	UI         *scene.UIState
	Hub        *Hub
	Populate   fn.Stage[string, scene.Summary]
	Metrics    *metrics.Metrics // optional
	Logger     *slog.Logger
	DefaultURL string // used when POST /populate omits the url
	CORSOrigin string
	Start      time.Time // frame clock origin; zero means now
}

// PopulateRequest is the JSON body for POST /populate.
type PopulateRequest struct {
	URL   string `json:"url"`
	Reset bool   `json:"reset,omitempty"`
}

// PopulateResponse is the JSON response for POST /populate.
type PopulateResponse struct {
	URL     string        `json:"url"`
	Summary scene.Summary `json:"summary"`
	Total   int           `json:"total"`
}

// NewHandler builds the routes and wraps them in the standard middleware.
func NewHandler(s Server) http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Start.IsZero() {
		s.Start = time.Now()
	}
	if s.CORSOrigin == "" {
		s.CORSOrigin = "*"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /placements", s.handlePlacements)
	mux.HandleFunc("GET /frame", s.handleFrame)
	mux.HandleFunc("GET /ui", s.handleGetUI)
	mux.HandleFunc("PUT /ui", s.handlePutUI)
	mux.HandleFunc("POST /populate", s.handlePopulate)
	if s.Hub != nil {
		mux.HandleFunc("GET /ws", s.Hub.ServeWS)
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	return mid.Chain(mux,
		mid.Recover(s.Logger),
		mid.RequestID(),
		mid.Logger(s.Logger),
		mid.CORS(s.CORSOrigin),
		mid.OTel("termscape"),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok", "objects": s.Scene.Len()}
	if s.Hub != nil {
		resp["clients"] = s.Hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s Server) handlePlacements(w http.ResponseWriter, r *http.Request) {
	objs := s.Scene.Objects()
	if c := r.URL.Query().Get("category"); c != "" {
		objs = s.Scene.ByCategory(domain.Category(c))
	}
	if objs == nil {
		objs = []scene.Object{}
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	t := time.Since(s.Start).Seconds()
	writeJSON(w, http.StatusOK, scene.BuildFrame(t, s.UI.Snapshot(), s.Scene.Registry()))
}

func (s Server) handleGetUI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.UI.Snapshot())
}

func (s Server) handlePutUI(w http.ResponseWriter, r *http.Request) {
	var patch scene.UIPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap := s.UI.Apply(patch)
	if s.Hub != nil {
		if err := s.Hub.Broadcast(TypeUI, snap); err != nil {
			s.Logger.Warn("stream: ui broadcast failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.URL == "" {
		req.URL = s.DefaultURL
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	ctx := r.Context()
	if req.Reset {
		ctx = scene.WithBeforePlace(ctx, func(context.Context) { s.Scene.Reset() })
	}

	start := time.Now()
	summary, err := s.Populate(ctx, req.URL).Unwrap()
	s.Metrics.Since("populate", start)
	s.Metrics.ObservePopulate(err)
	if err != nil {
		s.Logger.Error("stream: populate failed", "url", req.URL, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	for c, n := range summary.Instructions {
		s.Metrics.AddPlacements(string(c), n)
	}
	writeJSON(w, http.StatusOK, PopulateResponse{URL: req.URL, Summary: summary, Total: summary.Total()})
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFetchFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
