package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/chameleon-db/dsql/internal/spec"
	"github.com/chameleon-db/dsql/pkg/builder"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve statement rendering over HTTP",
	Long: `Start an HTTP server that renders statement descriptions.

Nothing is sent to the database.

Endpoints:
  GET  /healthz          liveness
  POST /v1/render        render the YAML or JSON description in the body
                         (?dialect= overrides the configured dialect)
  GET  /v1/statements    render the configured statement files`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadProject()
		if err != nil {
			return err
		}
		dialect, err := cfg.Database.ResolveDialect()
		if err != nil {
			return err
		}

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           newRouter(&renderServer{dialect: dialect, paths: cfg.Statements.Paths}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()
		printInfo("Serving on http://%s", addr)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// renderServer renders descriptions for HTTP clients
type renderServer struct {
	dialect builder.Dialect
	paths   []string
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func newRouter(s *renderServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/render", s.render)
		r.Get("/statements", s.statements)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *renderServer) render(w http.ResponseWriter, r *http.Request) {
	dialect := s.dialect
	if name := r.URL.Query().Get("dialect"); name != "" {
		var err error
		if dialect, err = builder.ParseDialect(name); err != nil {
			writeError(w, err)
			return
		}
	}

	descs, err := spec.Parse(http.MaxBytesReader(w, r.Body, 1<<20), "request")
	if err != nil {
		writeError(w, err)
		return
	}
	if len(descs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty request body"})
		return
	}

	out := make([]rendered, 0, len(descs))
	for _, d := range descs {
		own, err := descriptionDialect(d, dialect)
		if err != nil {
			writeError(w, err)
			return
		}
		stmt, err := d.Build(own)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, newRendered(d, stmt, own))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *renderServer) statements(w http.ResponseWriter, r *http.Request) {
	files, err := spec.Files(s.paths)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	out, err := renderFiles(r.Context(), files, s.dialect)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []rendered{}
	}
	writeJSON(w, http.StatusOK, out)
}

// writeError reports validation errors as 422 with their code and
// anything else as 400.
func writeError(w http.ResponseWriter, err error) {
	if builder.IsValidationError(err) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: builder.ErrorCode(err)})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}
