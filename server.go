package referral

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/handlers"
)

const maxBodyBytes = 1 << 20

type Server struct {
	mux       http.Handler
	directory *Directory
	metrics   *metrics

	// set by NewServerWithConfig
	config  *ServerConfig
	storage ProviderStorage
}

var _ http.Handler = (*Server)(nil)

func NewServer(ctx context.Context, directory *Directory, opts ...ServerOption) (*Server, error) {
	var cfg serverOptionalConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{
		directory: directory,
		metrics:   newMetrics(cfg.registry),
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
		handlers.ProxyHeaders,
	)
	if len(cfg.allowedOrigins) > 0 {
		r.Use(handlers.CORS(
			handlers.AllowedOrigins(cfg.allowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		))
	}
	r.Use(
		noCache,
		middleware.Logger,
		s.metrics.middleware,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/specialties", s.GetSpecialties)
		r.Get("/insurances", s.GetInsurances)
		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", s.GetDoctors)
			r.Post("/", s.PostDoctor)
			r.Get("/all", s.GetAllDoctors)
			r.Put("/{id}", s.PutDoctor)
			r.Delete("/{id}", s.DeleteDoctor)
		})
	})
	s.mux = r

	if n, err := directory.Count(ctx); err != nil {
		log.Printf("[ERROR] failed to count providers: %v", err)
	} else {
		s.metrics.providerCount.Set(float64(n))
	}
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) GetSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := s.directory.ListSpecialties(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, specialties, http.StatusOK)
}

func (s *Server) GetInsurances(w http.ResponseWriter, r *http.Request) {
	keys, err := s.directory.ListInsuranceKeys(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, keys, http.StatusOK)
}

func (s *Server) GetDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	insurance := q.Get("insurance")
	providers, err := s.directory.QueryProviders(r.Context(), q.Get("specialty"), insurance)
	if err != nil {
		log.Printf("[INFO] rejected query: %v", err)
		respondError(w, err)
		return
	}
	s.metrics.queryResults.WithLabelValues(insurance).Observe(float64(len(providers)))
	respondJSON(w, providers, http.StatusOK)
}

func (s *Server) GetAllDoctors(w http.ResponseWriter, r *http.Request) {
	providers, err := s.directory.ListAllProviders(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	s.metrics.providerCount.Set(float64(len(providers)))
	respondJSON(w, providers, http.StatusOK)
}

type doctorResponse struct {
	Message string    `json:"message"`
	Doctor  *Provider `json:"doctor,omitempty"`
}

func (s *Server) PostDoctor(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(w, r)
	if err != nil {
		log.Printf("[INFO] invalid body: %v", err)
		respondError(w, err)
		return
	}
	in, err := DecodeProviderInput(s.directory.Registry(), raw)
	if err != nil {
		log.Printf("[INFO] invalid provider: %v", err)
		respondError(w, err)
		return
	}
	p, err := s.directory.CreateProvider(r.Context(), in)
	if err != nil {
		log.Printf("[INFO] failed to create provider: %v", err)
		respondError(w, err)
		return
	}
	s.metrics.providerCount.Inc()
	log.Printf("[INFO] created provider %d", p.ID)
	respondJSON(w, &doctorResponse{Message: "Doctor added successfully", Doctor: p}, http.StatusCreated)
}

func (s *Server) PutDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, newErr(KindNotFound, "provider not found"))
		return
	}
	raw, err := decodeBody(w, r)
	if err != nil {
		log.Printf("[INFO] invalid body: %v", err)
		respondError(w, err)
		return
	}
	patch, err := DecodeProviderPatch(s.directory.Registry(), raw)
	if err != nil {
		log.Printf("[INFO] invalid provider: %v", err)
		respondError(w, err)
		return
	}
	p, err := s.directory.UpdateProvider(r.Context(), id, patch)
	if err != nil {
		log.Printf("[INFO] failed to update provider %d: %v", id, err)
		respondError(w, err)
		return
	}
	log.Printf("[INFO] updated provider %d", p.ID)
	respondJSON(w, &doctorResponse{Message: "Doctor updated successfully", Doctor: p}, http.StatusOK)
}

func (s *Server) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, newErr(KindNotFound, "provider not found"))
		return
	}
	if err := s.directory.DeleteProvider(r.Context(), id); err != nil {
		log.Printf("[INFO] failed to delete provider %d: %v", id, err)
		respondError(w, err)
		return
	}
	s.metrics.providerCount.Dec()
	log.Printf("[INFO] deleted provider %d", id)
	respondJSON(w, &doctorResponse{Message: "Doctor deleted successfully"}, http.StatusOK)
}

// Run serves until ctx is cancelled, then shuts down and closes storage.
func (s *Server) Run(ctx context.Context) error {
	addr := ":5000"
	timeout := 10 * time.Second
	if s.config != nil {
		addr = s.config.Addr
		timeout = s.config.ShutdownTimeout
	}
	srv := &http.Server{Addr: addr, Handler: s}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return nil, wrapErr(KindValidation, "invalid body", err)
	}
	if raw == nil {
		return nil, newErr(KindValidation, "invalid body")
	}
	return raw, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, err error) {
	kind := kindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		log.Printf("[ERROR] %v", err)
		msg = "internal error"
	}
	respondJSON(w, &errorResponse{Error: msg}, kind.httpStatus())
}

func respondJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] failed to encode response: %v", err)
	}
}
