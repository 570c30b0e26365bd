// Package server exposes the build pipeline and capture ingestion over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fourshot/wigglegram/internal/ingest"
	"github.com/fourshot/wigglegram/internal/pipeline"
)

// Per-request upload cap. Four raw captures comfortably fit.
const maxUploadBytes = 32 << 20

// Server handles the wigglegram HTTP API.
type Server struct {
	startTime time.Time
	version   string
	cfg       pipeline.Config
	collector *ingest.Collector
}

// NewServer creates a new server instance. The collector may be nil when the
// ingestion endpoint is not wanted (synchronous builds still work).
func NewServer(version string, cfg pipeline.Config, collector *ingest.Collector) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		cfg:       cfg,
		collector: collector,
	}
}

// Routes returns the API routes to mount under a base router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Post("/wigglegram", s.CreateWigglegram)
	r.Post("/captures/{device}", s.IngestCapture)
	return r
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ErrorResponse is the standard JSON error payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// CreateWigglegram builds an animation from exactly four multipart "frames"
// files, in capture-device order, and returns the GIF bytes.
func (s *Server) CreateWigglegram(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_MULTIPART",
			"Request body is not valid multipart form data", requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["frames"]
	inputs := make([][]byte, 0, len(files))
	for i, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_FRAME",
				fmt.Sprintf("Cannot read frame %d", i), requestID)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_FRAME",
				fmt.Sprintf("Cannot read frame %d", i), requestID)
			return
		}
		inputs = append(inputs, data)
	}

	result, err := pipeline.Build(inputs, s.cfg)
	if err != nil {
		s.handleBuildError(w, err, requestID)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.GIF)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.GIF); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// IngestCapture accepts a single capture for the device index in the URL and
// feeds it to the grouping collector. The build happens asynchronously once
// all four devices have reported.
func (s *Server) IngestCapture(w http.ResponseWriter, r *http.Request) {
	requestID := generateRequestID()

	if s.collector == nil {
		s.writeErrorResponse(w, http.StatusNotImplemented, "INGEST_DISABLED",
			"Capture ingestion is not enabled on this server", requestID)
		return
	}

	device, err := strconv.Atoi(chi.URLParam(r, "device"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_DEVICE",
			"Device index must be an integer", requestID)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_CAPTURE",
			"Cannot read capture body", requestID)
		return
	}

	if err := s.collector.Offer(device, data); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_CAPTURE",
			err.Error(), requestID)
		return
	}

	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusAccepted)
}

// handleBuildError maps the pipeline's typed failures onto HTTP statuses.
func (s *Server) handleBuildError(w http.ResponseWriter, err error, requestID string) {
	var countErr *pipeline.InputCountError
	if errors.As(err, &countErr) {
		s.writeErrorResponse(w, http.StatusBadRequest, "INPUT_COUNT_ERROR",
			countErr.Error(), requestID)
		return
	}

	var decodeErr *pipeline.DecodeError
	if errors.As(err, &decodeErr) {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "DECODE_ERROR",
			decodeErr.Error(), requestID)
		return
	}

	var stabErr *pipeline.StabilizationError
	if errors.As(err, &stabErr) {
		s.writeErrorResponse(w, http.StatusInternalServerError, "STABILIZATION_ERROR",
			stabErr.Error(), requestID)
		return
	}

	var shapeErr *pipeline.FrameShapeError
	if errors.As(err, &shapeErr) {
		s.writeErrorResponse(w, http.StatusInternalServerError, "FRAME_SHAPE_ERROR",
			shapeErr.Error(), requestID)
		return
	}

	var encodeErr *pipeline.EncodeError
	if errors.As(err, &encodeErr) {
		s.writeErrorResponse(w, http.StatusInternalServerError, "ENCODE_ERROR",
			encodeErr.Error(), requestID)
		return
	}

	s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"Internal server error", requestID)
}

// writeErrorResponse writes a standard error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message, requestID string) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
