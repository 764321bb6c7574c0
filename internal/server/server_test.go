package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/blockshq/floortiler/internal/annotate"
	"github.com/blockshq/floortiler/internal/api"
	"github.com/blockshq/floortiler/internal/config"
	"github.com/blockshq/floortiler/internal/jobs"
	"github.com/blockshq/floortiler/internal/storage"
	"github.com/blockshq/floortiler/internal/tiler"
)

type fakeRasterizer struct{}

func (fakeRasterizer) PageSize(pdfBytes []byte) (float64, float64, error) {
	return 8, 6, nil
}

func (fakeRasterizer) Render(pdfBytes []byte, scale float64, maxDimension int) (*image.RGBA, float64, error) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	black := color.RGBA{0, 0, 0, 255}
	for x := 50; x < 350; x++ {
		img.SetRGBA(x, 50, black)
		img.SetRGBA(x, 250, black)
	}
	return img, scale, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *Server, storage.Store) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Tiling{
		RenderScale:   50,
		MaxDimension:  30000,
		TileSize:      256,
		MaxZoomLimit:  12,
		ForcedMaxZoom: -1,
	}
	pipeline := tiler.NewPipeline(fakeRasterizer{}, store, cfg, log)
	detector := annotate.NewDetector(fakeRasterizer{}, cfg.MaxDimension, log)
	annotator := annotate.NewService(store, detector, log)

	srv := New(pipeline, annotator, jobs.NewRegistry(), store, log, "test")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
		srv.Routes(r)
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, srv, store
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != api.Healthy {
		t.Fatalf("health = %+v", body)
	}
}

func TestCreateFloorplanRejectsBadBody(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/floorplans", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "INVALID_JSON" {
		t.Fatalf("error = %+v", body)
	}
}

func TestCreateFloorplanRequiresFileURL(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/floorplans", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestProcessJobEndToEnd(t *testing.T) {
	ts, _, store := newTestServer(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer origin.Close()

	payload, _ := json.Marshal(api.ProcessRequest{FileURL: origin.URL + "/plan.pdf"})
	resp, err := http.Post(ts.URL+"/api/v1/floorplans", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var accepted api.ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}
	if accepted.JobID == "" {
		t.Fatal("empty job id")
	}

	var job api.JobResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		r2, err := http.Get(ts.URL + "/api/v1/jobs/" + accepted.JobID)
		if err != nil {
			t.Fatal(err)
		}
		err = json.NewDecoder(r2.Body).Decode(&job)
		r2.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if job.Status == "completed" || job.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck: %+v", job)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if job.Status != "completed" || job.Progress != 100 || job.FloorplanID == "" {
		t.Fatalf("job = %+v", job)
	}

	keys, err := store.List(context.Background(), job.FloorplanID+"/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) == 0 {
		t.Fatal("no artifacts stored")
	}

	// Stored artifacts are served back.
	r3, err := http.Get(ts.URL + "/api/v1/floorplans/" + job.FloorplanID + "/metadata")
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Body.Close()
	if r3.StatusCode != http.StatusOK {
		t.Fatalf("metadata status = %d", r3.StatusCode)
	}
	if ct := r3.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("metadata content type = %q", ct)
	}

	r4, err := http.Get(ts.URL + "/api/v1/floorplans/" + job.FloorplanID + "/tiles/0/0/0.png")
	if err != nil {
		t.Fatal(err)
	}
	defer r4.Body.Close()
	if r4.StatusCode != http.StatusOK {
		t.Fatalf("tile status = %d", r4.StatusCode)
	}
}

func TestGetJobNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/jobs/does-not-exist")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAnnotateUnknownFloorplan(t *testing.T) {
	ts, _, _ := newTestServer(t)

	payload, _ := json.Marshal(api.AnnotateRequest{
		Geometries: []api.Geometry{{Kind: "marker", Point: [2]float64{1, -1}}},
	})
	resp, err := http.Post(ts.URL+"/api/v1/floorplans/nope/annotate", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAnnotateRequiresGeometries(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/floorplans/x/annotate", "application/json", strings.NewReader(`{"geometries":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGetTileNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/floorplans/missing/tiles/3/1/2.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
