package api_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrstudio/qrstudio/api"
	"github.com/qrstudio/qrstudio/preview"
	"github.com/qrstudio/qrstudio/store"
)

func newTestServer(t *testing.T) (*api.Server, http.Handler) {
	t.Helper()

	exports, err := store.OpenExportLog(filepath.Join(t.TempDir(), "exports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { exports.Close() })

	s := &api.Server{
		Controller: preview.NewController(preview.NewQREncoder(), preview.DefaultRequest(), slog.New(slog.NewTextHandler(io.Discard, nil))),
		Exports:    exports,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:    "test",
	}
	return s, api.NewRouter(s)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStudioPage(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "QR Studio")
	assert.Contains(t, rec.Body.String(), "Download PNG")
}

func TestPreviewBeforeRender(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/preview.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadBeforeRenderIsNoop(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/download", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// No export record is written for the refused download.
	count, err := s.Exports.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRefreshAndPreview(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	s.Controller.Wait()

	rec = doJSON(t, h, http.MethodGet, "/preview.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
}

func TestSetParam(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/params", `{"field":"size","value":"512"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	s.Controller.Wait()

	var resp struct {
		State   string          `json:"state"`
		Request preview.Request `json:"request"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 512, resp.Request.Size)

	rec = doJSON(t, h, http.MethodGet, "/preview.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())
}

func TestSetParamRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/params", `{"field":"level","value":"extreme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/params", `{"field":"shape","value":"round"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/params", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadRecordsExport(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/refresh", "")
	s.Controller.Wait()

	rec := doJSON(t, h, http.MethodGet, "/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="qrcode.png"`, rec.Header().Get("Content-Disposition"))

	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)

	exports, err := s.Exports.Recent(10)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "https://example.com", exports[0].Payload)
	assert.Equal(t, 256, exports[0].Size)
	assert.Equal(t, "medium", exports[0].Level)
	assert.Equal(t, rec.Body.Len(), exports[0].ByteSize)
}

func TestExportsEndpoint(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	doJSON(t, h, http.MethodPost, "/refresh", "")
	s.Controller.Wait()
	doJSON(t, h, http.MethodGet, "/download", "")
	doJSON(t, h, http.MethodGet, "/download", "")

	rec = doJSON(t, h, http.MethodGet, "/exports?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var exports []store.Export
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exports))
	assert.Len(t, exports, 1)

	rec = doJSON(t, h, http.MethodGet, "/exports?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	s, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State   string `json:"state"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stale", resp.State)
	assert.Equal(t, "test", resp.Version)

	doJSON(t, h, http.MethodPost, "/refresh", "")
	s.Controller.Wait()

	rec = doJSON(t, h, http.MethodGet, "/status", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "synced", resp.State)
}
