package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/gate"
	"github.com/threadcast/threadcast/thread"
)

// identityHeader carries the opaque subject resolved by the deployment's
// authenticator (an API gateway or reverse proxy). The server trusts it
// as-is; token verification is not its job.
const identityHeader = "X-User-Sub"

type (
	// Admitter is the enqueue gate surface the server needs.
	Admitter interface {
		Admit(ctx context.Context, req gate.AdmitRequest) (*entity.Message, error)
	}

	Server struct {
		logger   *slog.Logger
		admitter Admitter
		store    thread.Store
		personas map[string]entity.Persona
		cfg      *config.RuntimeConfig
	}

	createThreadRequest struct {
		ThreadID string `json:"threadId"`
		Persona  string `json:"persona"`
	}

	postMessageRequest struct {
		Prompt       string `json:"prompt"`
		IncludeAudio bool   `json:"includeAudio"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func NewServer(
	logger *slog.Logger,
	admitter Admitter,
	store thread.Store,
	personas map[string]entity.Persona,
	cfg *config.RuntimeConfig,
) *Server {
	return &Server{
		logger:   logger,
		admitter: admitter,
		store:    store,
		personas: personas,
		cfg:      cfg,
	}
}

// Handler builds the full HTTP surface: persona listing, thread creation,
// message submission through the gate, and message reads.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Warn("failed to write health response", "error", err)
		}
	}).Methods("GET")

	router.HandleFunc("/v1/personas", s.listPersonas).Methods("GET")
	router.HandleFunc("/v1/threads", s.createThread).Methods("POST")
	router.HandleFunc("/v1/threads/{threadId}/messages", s.postMessage).Methods("POST")
	router.HandleFunc("/v1/threads/{threadId}/messages", s.getMessages).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", identityHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)

	return cors(recovery(router))
}

func (s *Server) listPersonas(w http.ResponseWriter, r *http.Request) {
	names := slices.Sorted(maps.Keys(s.personas))
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	sub := r.Header.Get(identityHeader)
	if sub == "" {
		s.writeError(w, errors.ErrUnauthenticated)
		return
	}

	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrapf(errors.ErrInvalidConfig, "invalid request body"))
		return
	}
	persona, ok := s.personas[req.Persona]
	if !ok {
		s.writeError(w, errors.Wrapf(errors.ErrNotFound, "unknown persona %q", req.Persona))
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}

	th, err := s.store.CreateThread(r.Context(), sub, req.ThreadID, persona)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, th)
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrapf(errors.ErrInvalidConfig, "invalid request body"))
		return
	}

	echo, err := s.admitter.Admit(r.Context(), gate.AdmitRequest{
		Identity:     r.Header.Get(identityHeader),
		ThreadID:     mux.Vars(r)["threadId"],
		Prompt:       req.Prompt,
		IncludeAudio: req.IncludeAudio,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The response is produced asynchronously; subscribers pick up chunks.
	s.writeJSON(w, http.StatusAccepted, echo)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	sub := r.Header.Get(identityHeader)
	if sub == "" {
		s.writeError(w, errors.ErrUnauthenticated)
		return
	}

	order := r.URL.Query().Get("order")
	if order == "" {
		order = "asc"
	}
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, errors.Wrapf(errors.ErrInvalidConfig, "invalid limit %q", v))
			return
		}
		limit = n
	}

	messages, err := s.store.GetMessages(r.Context(), sub, mux.Vars(r)["threadId"], order, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, errors.ErrThreadBusy):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrThreadNotFound), errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidConfig), errors.Is(err, errors.ErrMalformedWorkItem):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
