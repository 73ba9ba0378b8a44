package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
	"JobWatch/internal/usecase"
)

// RunService is the slice of usecase.Runner the API needs.
type RunService interface {
	RunByID(ctx context.Context, id int64, opts usecase.RunOptions) (usecase.Outcome, error)
}

// Handlers serves the companies and run endpoints.
type Handlers struct {
	Store      ports.SourceStore
	Runner     RunService
	RunTimeout time.Duration
	Logger     *slog.Logger
}

// NewRouter mounts every route on a fresh mux.
func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)
	mux.HandleFunc("GET /companies", h.listCompanies)
	mux.HandleFunc("POST /companies", h.createCompany)
	mux.HandleFunc("POST /companies/reset", h.resetCompanies)
	mux.HandleFunc("DELETE /companies/{id}", h.deleteCompany)
	mux.HandleFunc("POST /run/{id}", h.run)
	mux.HandleFunc("GET /preview/{id}", h.preview)
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) listCompanies(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Store.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if sources == nil {
		sources = []domain.Source{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"companies": sources})
}

func (h *Handlers) createCompany(w http.ResponseWriter, r *http.Request) {
	var payload companyPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		WriteError(w, fmt.Errorf("%w: invalid json: %v", errBadRequest, err))
		return
	}
	src, err := payload.source()
	if err != nil {
		WriteError(w, err)
		return
	}
	created, err := h.Store.Create(r.Context(), src)
	if err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": created.ID, "company": created})
}

func (h *Handlers) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

func (h *Handlers) resetCompanies(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) run(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, fmt.Errorf("%w: dry_run must be a boolean", errBadRequest))
			return
		}
		dryRun = v
	}
	h.execute(w, r, usecase.RunOptions{DryRun: dryRun, Recipient: r.URL.Query().Get("recipient")})
}

func (h *Handlers) preview(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, usecase.RunOptions{DryRun: true})
}

type runResponse struct {
	OK      bool              `json:"ok"`
	Company string            `json:"company"`
	Ran     bool              `json:"ran"`
	Reason  string            `json:"reason,omitempty"`
	Count   int               `json:"count"`
	Report  *domain.RunReport `json:"report,omitempty"`
}

func (h *Handlers) execute(w http.ResponseWriter, r *http.Request, opts usecase.RunOptions) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	ctx := r.Context()
	if h.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.RunTimeout)
		defer cancel()
	}

	out, err := h.Runner.RunByID(ctx, id, opts)
	if err != nil {
		if out.Report != nil && errors.Is(err, domain.ErrDeliveryFailed) {
			code, errCode := statusFor(err)
			WriteJSON(w, code, errorBody{Error: errCode, Message: err.Error(), Report: out.Report})
			return
		}
		h.fail(w, err)
		return
	}

	resp := runResponse{OK: true, Company: out.Source.Name, Ran: out.Ran, Reason: out.Reason, Report: out.Report}
	if out.Report != nil {
		resp.Count = len(out.Report.Jobs)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	if code, _ := statusFor(err); code >= http.StatusInternalServerError && h.Logger != nil {
		h.Logger.Error("request failed", "error", err)
	}
	WriteError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

// Server runs the API until its context ends.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Info("http listening", "addr", s.srv.Addr)
		}
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
