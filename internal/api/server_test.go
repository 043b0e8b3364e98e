package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digitalmx/mattibud-web/internal/config"
	"github.com/Digitalmx/mattibud-web/internal/model"
	"github.com/Digitalmx/mattibud-web/internal/storage"
	"github.com/Digitalmx/mattibud-web/internal/stores"
)

type stubConverter struct {
	outcome model.ConversionOutcome
}

func (s *stubConverter) Convert(context.Context, string, string, string) (model.ConversionOutcome, error) {
	return s.outcome, nil
}

func newTestServer(t *testing.T) (*Server, *storage.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	blobs := storage.NewMemory()
	t.Cleanup(func() { _ = blobs.Close() })

	conv := &stubConverter{outcome: model.ConversionOutcome{
		Pages: 1, Expected: 1, Strategy: model.StrategyNativeLib, Succeeded: true,
	}}
	svc := stores.NewService(stores.NewMemoryStores(), stores.NewMemoryImages(), blobs, conv, log)

	cfg := &config.Config{
		Address:       ":0",
		SigningSecret: []byte("test-secret"),
		SignedURLTTL:  time.Minute,
		MaxPDFSize:    1 << 20,
		MaxImageSize:  1 << 20,
	}
	// queue client nil: conversions run inside the upload request.
	return New(cfg, svc, blobs, nil, log), blobs
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, handler http.Handler, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createStore(t *testing.T, handler http.Handler, name string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/stores", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var store model.Store
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &store))
	return store.ID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	id := createStore(t, router, "Mattibud Bergen")

	rec := doJSON(t, router, http.MethodGet, "/stores/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Store  model.Store        `json:"store"`
		Images []model.StoreImage `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Mattibud Bergen", got.Store.Name)
	assert.Empty(t, got.Images)

	rec = doJSON(t, router, http.MethodGet, "/stores", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/stores/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/stores/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateStoreValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/stores", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/stores", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadPDFInline(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	id := createStore(t, router, "PDF Store")

	rec := doUpload(t, router, "/stores/"+id+"/pdf", "pdf", "catalog.pdf", []byte("%PDF-1.4 fake"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string                  `json:"message"`
		Outcome model.ConversionOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Store updated successfully.", resp.Message)
	assert.True(t, resp.Outcome.Succeeded)

	t.Run("missing file field", func(t *testing.T) {
		rec := doUpload(t, router, "/stores/"+id+"/pdf", "wrong", "catalog.pdf", []byte("x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadAndServeImage(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	id := createStore(t, router, "Image Store")

	rec := doUpload(t, router, "/stores/"+id+"/images", "image", "front.jpg", []byte("jpeg bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded struct {
		Image model.StoreImage `json:"image"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.NotEmpty(t, uploaded.Image.ID)
	assert.Equal(t, 1, uploaded.Image.SortOrder)

	rec = doJSON(t, router, http.MethodGet, "/images/"+uploaded.Image.ID+"/url", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var signed struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signed))
	require.NotEmpty(t, signed.URL)

	rec = doJSON(t, router, http.MethodGet, signed.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("jpeg bytes"), rec.Body.Bytes())

	t.Run("tampered signature is rejected", func(t *testing.T) {
		tampered := strings.Replace(signed.URL, "signature=", "signature=ff", 1)
		rec := doJSON(t, router, http.MethodGet, tampered, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete image", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/images/"+uploaded.Image.ID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, signed.URL, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReorderEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()
	id := createStore(t, router, "Reorder Store")

	var ids []string
	for _, name := range []string{"a.jpg", "b.jpg"} {
		rec := doUpload(t, router, "/stores/"+id+"/images", "image", name, []byte(name))
		require.Equal(t, http.StatusCreated, rec.Code)
		var uploaded struct {
			Image model.StoreImage `json:"image"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
		ids = append(ids, uploaded.Image.ID)
	}

	rec := doJSON(t, router, http.MethodPut, "/stores/"+id+"/images/order",
		map[string][]string{"imageIds": {ids[1], ids[0]}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/stores/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Images []model.StoreImage `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Images, 2)
	assert.Equal(t, ids[1], got.Images[0].ID)
}
