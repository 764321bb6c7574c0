package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/annotate"
	"github.com/blockshq/floortiler/internal/api"
	"github.com/blockshq/floortiler/internal/jobs"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/internal/tiler"
)

// maxUploadBytes caps fetched floor plan documents.
const maxUploadBytes = 200 << 20

// Server wires the tiling pipeline, the annotation service and the
// artifact store behind the HTTP API.
type Server struct {
	pipeline  *tiler.Pipeline
	annotator *annotate.Service
	registry  *jobs.Registry
	store     storage.Store
	client    *http.Client
	log       *logrus.Logger
	version   string
	startTime time.Time
}

func New(pipeline *tiler.Pipeline, annotator *annotate.Service, registry *jobs.Registry, store storage.Store, log *logrus.Logger, version string) *Server {
	return &Server{
		pipeline:  pipeline,
		annotator: annotator,
		registry:  registry,
		store:     store,
		client:    &http.Client{Timeout: 2 * time.Minute},
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// Routes mounts every API endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.getHealth)
	r.Post("/floorplans", s.createFloorplan)
	r.Get("/jobs/{jobID}", s.getJob)
	r.Post("/floorplans/{floorplanID}/annotate", s.annotateFloorplan)
	r.Get("/floorplans/{floorplanID}/metadata", s.getMetadata)
	r.Get("/floorplans/{floorplanID}/preview", s.getPreview)
	r.Get("/floorplans/{floorplanID}/tiles/{z}/{x}/{y}.png", s.getTile)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	})
}

func (s *Server) createFloorplan(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var req api.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", requestID)
		return
	}
	if req.FileURL == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
			"file_url is required", requestID)
		return
	}

	pdfBytes, err := s.fetchPDF(r.Context(), req.FileURL)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadGateway, "FETCH_FAILED",
			err.Error(), requestID)
		return
	}

	jobID := s.registry.Create()

	// The job outlives the request; give it a fresh context.
	go s.runJob(context.Background(), jobID, pdfBytes)

	writeJSON(w, http.StatusAccepted, api.ProcessResponse{
		JobID:  jobID,
		Status: string(jobs.StatusQueued),
	})
}

func (s *Server) runJob(ctx context.Context, jobID string, pdfBytes []byte) {
	meta, err := s.pipeline.Process(ctx, pdfBytes, func(pct int) {
		s.registry.SetProgress(jobID, pct)
	})
	if err != nil {
		s.log.WithField("job_id", jobID).WithError(err).Error("processing failed")
		s.registry.Fail(jobID, err)
		return
	}
	s.registry.Complete(jobID, meta.FloorplanID)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	jobID := chi.URLParam(r, "jobID")

	job, err := s.registry.Get(jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "JOB_NOT_FOUND",
			fmt.Sprintf("No job with id %s", jobID), requestID)
		return
	}

	writeJSON(w, http.StatusOK, api.JobResponse{
		ID:          job.ID,
		Status:      string(job.Status),
		Progress:    job.Progress,
		FloorplanID: job.FloorplanID,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	})
}

func (s *Server) annotateFloorplan(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	floorplanID := chi.URLParam(r, "floorplanID")

	var req api.AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", requestID)
		return
	}
	if len(req.Geometries) == 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
			"geometries must not be empty", requestID)
		return
	}

	geoms := make([]annotate.Geometry, len(req.Geometries))
	for i, g := range req.Geometries {
		geoms[i] = annotate.Geometry{
			Kind:  g.Kind,
			Point: g.Point,
			Ring:  g.Ring,
			Label: g.Label,
		}
	}

	annotated, err := s.annotator.Annotate(r.Context(), floorplanID, geoms)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "FLOORPLAN_NOT_FOUND",
			fmt.Sprintf("No floor plan with id %s", floorplanID), requestID)
		return
	}
	if err != nil {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "ANNOTATION_FAILED",
			err.Error(), requestID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(annotated)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(annotated); err != nil {
		s.log.WithError(err).Error("writing annotated pdf")
	}
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	floorplanID := chi.URLParam(r, "floorplanID")
	s.serveObject(w, r, floorplanID+"/metadata.json", "application/json")
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	floorplanID := chi.URLParam(r, "floorplanID")
	s.serveObject(w, r, floorplanID+"/preview.jpg", "image/jpeg")
}

func (s *Server) getTile(w http.ResponseWriter, r *http.Request) {
	floorplanID := chi.URLParam(r, "floorplanID")
	key := fmt.Sprintf("%s/tiles/%s/%s/%s.png",
		floorplanID, chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "y"))
	s.serveObject(w, r, key, "image/png")
}

func (s *Server) serveObject(w http.ResponseWriter, r *http.Request, key, contentType string) {
	requestID := middleware.GetReqID(r.Context())

	rc, err := s.store.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("No object at %s", key), requestID)
		return
	}
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"Failed to read stored object", requestID)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.log.WithField("key", key).WithError(err).Error("writing stored object")
	}
}

func (s *Server) fetchPDF(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid file_url: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", maxUploadBytes)
	}
	return data, nil
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, status int, code, message, requestID string) {
	resp := api.ErrorResponse{
		Error:   code,
		Message: message,
	}
	if requestID != "" {
		resp.RequestID = &requestID
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
