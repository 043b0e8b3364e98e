// Package api exposes the HTTP surface: store management, uploads, and
// signed image downloads. It stays deliberately thin; everything interesting
// happens in the stores service and the conversion pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Digitalmx/mattibud-web/internal/config"
	"github.com/Digitalmx/mattibud-web/internal/queue"
	"github.com/Digitalmx/mattibud-web/internal/repository"
	"github.com/Digitalmx/mattibud-web/internal/signing"
	"github.com/Digitalmx/mattibud-web/internal/storage"
	"github.com/Digitalmx/mattibud-web/internal/stores"
)

// Server exposes the HTTP endpoints.
type Server struct {
	cfg    *config.Config
	svc    *stores.Service
	blobs  storage.BlobStorage
	signer *signing.Signer
	// queueClient is optional; when nil, PDF conversion runs inline within
	// the upload request instead of being handed to the worker.
	queueClient *asynq.Client
	log         *logrus.Logger
	server      *http.Server
}

// New constructs a Server.
func New(cfg *config.Config, svc *stores.Service, blobs storage.BlobStorage, queueClient *asynq.Client, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		cfg:         cfg,
		svc:         svc,
		blobs:       blobs,
		signer:      signing.NewSigner(cfg.SigningSecret),
		queueClient: queueClient,
		log:         log,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/stores", func(r chi.Router) {
		r.Post("/", s.handleCreateStore)
		r.Get("/", s.handleListStores)
		r.Route("/{storeID}", func(r chi.Router) {
			r.Get("/", s.handleGetStore)
			r.Delete("/", s.handleDeleteStore)
			r.Post("/pdf", s.handleUploadPDF)
			r.Post("/images", s.handleUploadImage)
			r.Post("/logo", s.handleUploadLogo)
			r.Put("/images/order", s.handleReorderImages)
		})
	})
	r.Route("/images/{imageID}", func(r chi.Router) {
		r.Delete("/", s.handleDeleteImage)
		r.Get("/url", s.handleImageURL)
		r.Get("/content", s.handleImageContent)
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.cfg.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var in stores.CreateStoreInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	store, err := s.svc.CreateStore(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.respondJSON(w, http.StatusCreated, store)
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListStores(r.Context())
	if err != nil {
		http.Error(w, "failed to list stores", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	store, images, err := s.svc.GetStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"store":  store,
		"images": images,
	})
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteStore(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Store deleted successfully."})
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	content, filename, err := s.readUpload(w, r, "pdf", s.cfg.MaxPDFSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pdfPath, err := s.svc.StagePDF(r.Context(), storeID, filename, content)
	if err != nil {
		http.Error(w, "failed to store PDF", http.StatusInternalServerError)
		return
	}

	if s.queueClient != nil {
		payload := queue.ConvertPayload{StoreID: storeID, PDFPath: pdfPath}
		if err := queue.EnqueueConvert(r.Context(), s.queueClient, payload); err != nil {
			http.Error(w, "failed to queue conversion", http.StatusInternalServerError)
			return
		}
		s.respondJSON(w, http.StatusAccepted, map[string]string{
			"message": "PDF uploaded. Conversion queued.",
		})
		return
	}

	outcome, err := s.svc.ProcessPDF(r.Context(), storeID, pdfPath)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message": outcome.Message("updated"),
		"outcome": outcome,
	})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	content, filename, err := s.readUpload(w, r, "image", s.cfg.MaxImageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	contentType := http.DetectContentType(content)
	img, err := s.svc.AttachImage(r.Context(), storeID, filename, content, contentType)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Image uploaded successfully",
		"image":   img,
	})
}

func (s *Server) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	content, filename, err := s.readUpload(w, r, "logo", s.cfg.MaxImageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	contentType := http.DetectContentType(content)
	logoPath, err := s.svc.AttachLogo(r.Context(), storeID, filename, content, contentType)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Logo uploaded successfully",
		"logoPath": logoPath,
	})
}

func (s *Server) handleReorderImages(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	var body struct {
		ImageIDs []string `json:"imageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := s.svc.ReorderImages(r.Context(), storeID, body.ImageIDs); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Image order updated successfully."})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteImage(r.Context(), chi.URLParam(r, "imageID")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted successfully."})
}

func (s *Server) handleImageURL(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")
	expires := time.Now().Add(s.cfg.SignedURLTTL).Unix()
	sig := s.signer.Sign(imageID, expires)
	s.respondJSON(w, http.StatusOK, map[string]string{
		"url": fmt.Sprintf("/images/%s/content?expires=%d&signature=%s", imageID, expires, sig),
	})
}

func (s *Server) handleImageContent(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")
	q := r.URL.Query()
	if !s.signer.Validate(imageID, q.Get("expires"), q.Get("signature")) {
		http.Error(w, "invalid or expired signature", http.StatusForbidden)
		return
	}
	img, err := s.svc.GetImage(r.Context(), imageID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	data, err := s.blobs.Read(r.Context(), img.ImagePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "image file missing", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// readUpload pulls one multipart file field into memory, bounded by limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", fmt.Errorf("expecting multipart form with %q field", field)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field", field)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(content) == 0 {
		return nil, "", errors.New("empty file")
	}
	return content, header.Filename, nil
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		s.log.WithError(err).Error("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
