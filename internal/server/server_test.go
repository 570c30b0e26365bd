package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fourshot/wigglegram/internal/ingest"
	"github.com/fourshot/wigglegram/internal/pipeline"
)

func newTestServer(t *testing.T, collector *ingest.Collector) http.Handler {
	t.Helper()
	cfg := pipeline.DefaultConfig()
	cfg.Stabilize = false
	return NewServer("test", cfg, collector).Routes()
}

func testPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

// multipartBody packs the given frame payloads into a multipart form.
func multipartBody(t *testing.T, frames [][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i, data := range frames {
		part, err := w.CreateFormFile("frames", "frame.png")
		if err != nil {
			t.Fatalf("Failed to create form file %d: %v", i, err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("Failed to write form file %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

func TestGetHealth(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy status, got %q", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("Expected version test, got %q", resp.Version)
	}
}

func TestCreateWigglegram(t *testing.T) {
	handler := newTestServer(t, nil)

	frames := [][]byte{
		testPNG(t, color.NRGBA{R: 200, G: 30, B: 30, A: 255}),
		testPNG(t, color.NRGBA{R: 30, G: 200, B: 30, A: 255}),
		testPNG(t, color.NRGBA{R: 30, G: 30, B: 200, A: 255}),
		testPNG(t, color.NRGBA{R: 220, G: 220, B: 220, A: 255}),
	}
	body, contentType := multipartBody(t, frames)

	req := httptest.NewRequest("POST", "/wigglegram", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Expected image/gif, got %q", ct)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	anim, err := gif.DecodeAll(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("Response is not a valid GIF: %v", err)
	}
	if len(anim.Image) != 6 {
		t.Errorf("Expected 6 sequence entries, got %d", len(anim.Image))
	}
}

func TestCreateWigglegram_WrongFrameCount(t *testing.T) {
	handler := newTestServer(t, nil)

	frames := [][]byte{
		testPNG(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}),
		testPNG(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}),
		testPNG(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}),
	}
	body, contentType := multipartBody(t, frames)

	req := httptest.NewRequest("POST", "/wigglegram", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "INPUT_COUNT_ERROR" {
		t.Errorf("Expected INPUT_COUNT_ERROR, got %q", resp.Error)
	}
}

func TestCreateWigglegram_UndecodableFrame(t *testing.T) {
	handler := newTestServer(t, nil)

	good := testPNG(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	frames := [][]byte{good, []byte("not an image"), good, good}
	body, contentType := multipartBody(t, frames)

	req := httptest.NewRequest("POST", "/wigglegram", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "DECODE_ERROR" {
		t.Errorf("Expected DECODE_ERROR, got %q", resp.Error)
	}
}

func TestCreateWigglegram_NotMultipart(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/wigglegram", bytes.NewBufferString("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "INVALID_MULTIPART" {
		t.Errorf("Expected INVALID_MULTIPART, got %q", resp.Error)
	}
}

func TestIngestCapture(t *testing.T) {
	built := make(chan struct{}, 1)
	collector := ingest.NewCollector(pipeline.DefaultConfig(), time.Minute,
		func([][]byte, pipeline.Config) (*pipeline.Result, error) {
			return &pipeline.Result{}, nil
		},
		func(*pipeline.Result, error) { built <- struct{}{} }, nil)

	handler := newTestServer(t, collector)

	for device := 0; device < pipeline.FrameCount; device++ {
		req := httptest.NewRequest("POST",
			fmt.Sprintf("/captures/%d", device), bytes.NewBufferString("capture"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("Device %d: expected 202, got %d: %s", device, rec.Code, rec.Body.String())
		}
	}

	select {
	case <-built:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the ingestion-triggered build")
	}
}

func TestIngestCapture_InvalidDevice(t *testing.T) {
	collector := ingest.NewCollector(pipeline.DefaultConfig(), time.Minute,
		func([][]byte, pipeline.Config) (*pipeline.Result, error) {
			return &pipeline.Result{}, nil
		}, nil, nil)
	handler := newTestServer(t, collector)

	for _, device := range []string{"x", "-1", "4"} {
		req := httptest.NewRequest("POST", "/captures/"+device, bytes.NewBufferString("capture"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Device %q: expected 400, got %d", device, rec.Code)
		}
	}
}

func TestIngestCapture_Disabled(t *testing.T) {
	handler := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/captures/0", bytes.NewBufferString("capture"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("Expected 501, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "INGEST_DISABLED" {
		t.Errorf("Expected INGEST_DISABLED, got %q", resp.Error)
	}
}
