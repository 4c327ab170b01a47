package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bioflow/internal/model"
	"bioflow/internal/service"
	"bioflow/internal/telemetry"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server encapsulates the relay HTTP server: it accepts job requests,
// queues them for the workers, and serves per-job status records.
type Server struct {
	services *service.Services
	port     string
	server   *http.Server
}

// NewServer creates a new API server with the provided services
func NewServer(svc *service.Services, port string) *Server {
	if port == "" {
		port = "8080"
	}
	return &Server{
		services: svc,
		port:     port,
	}
}

// Start initializes routes and starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/jobs", s.handleSubmitJob).Methods(http.MethodPost)
	router.HandleFunc("/jobs/{id}", s.handleJobStatus).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())

	// Create server with context support
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to capture server errors
	errCh := make(chan error, 1)

	go func() {
		telemetry.Logger.Info("Starting server", zap.String("port", s.port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		telemetry.Logger.Info("Shutting down server gracefully")
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleSubmitJob accepts a relay job, records it as queued and enqueues it
// for the workers.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var job model.Job

	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		telemetry.Logger.Error("User error: Failed to decode job from request", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Invalid job format", http.StatusBadRequest)
		return
	}
	if err := job.Validate(); err != nil {
		telemetry.Logger.Error("User error: Invalid job", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to marshal job into JSON string", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	// Create a context for Redis operations
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	statusBytes, _ := json.Marshal(model.JobStatus{ID: job.ID, State: model.StateQueued})
	if err := s.services.Redis.SetJobStatus(ctx, job.ID, string(statusBytes)); err != nil {
		telemetry.Logger.Error("System error: Failed to record job status", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Failed to record job", http.StatusInternalServerError)
		return
	}

	if err := s.services.Redis.EnqueueJob(ctx, string(jobBytes)); err != nil {
		telemetry.Logger.Error("System error: Failed to enqueue job", zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Failed to enqueue job", http.StatusInternalServerError)
		return
	}

	telemetry.Logger.Info("Job submitted successfully",
		zap.String("job_id", job.ID),
		zap.String("endpoint", job.Endpoint),
	)

	s.services.Metrics.IncrementServerRequestCounter("success")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": job.ID})
}

// handleJobStatus serves the stored status record for a relay job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := s.services.Redis.GetJobStatus(ctx, id)
	if err != nil {
		telemetry.Logger.Error("System error: Failed to fetch job status", zap.String("job_id", id), zap.Error(err))
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if status == "" {
		s.services.Metrics.IncrementServerRequestCounter("failed")
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	s.services.Metrics.IncrementServerRequestCounter("success")
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(status))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
