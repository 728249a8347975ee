package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/thrivelabs/thrive/internal/domain"
)

// ResourceHandler handles resource management and upload download endpoints.
type ResourceHandler struct {
	*Handler
}

// NewResourceHandler creates a new resource handler.
func NewResourceHandler(base *Handler) *ResourceHandler {
	return &ResourceHandler{Handler: base}
}

// RegisterRoutes registers resource routes.
func (h *ResourceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/resources", h.AddResource)
	r.Get("/api/resources", h.ListResources)
	r.Get("/api/uploads/{uploadID}", h.DownloadUpload)
}

// AddResource accepts a multipart form with name, type, link and an optional
// file. An empty name is rejected with a user-visible warning and performs no
// mutation.
func (h *ResourceHandler) AddResource(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	typ := r.FormValue("type")
	link := r.FormValue("link")

	var upload *domain.UploadedFile
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			Error(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		mime := header.Header.Get("Content-Type")
		if mime == "" {
			mime = "application/octet-stream"
		}
		upload = &domain.UploadedFile{
			// Strip any client-supplied path component.
			Name: filepath.Base(header.Filename),
			MIME: mime,
			Size: int64(len(data)),
			Data: data,
		}
	}

	s, err := h.svc.AddResource(r.Context(), uid, name, typ, link, upload)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	JSON(w, http.StatusCreated, resourceList(s, h.available(uid, s)))
}

// ListResources returns the session's resources in insertion order, each
// flagged with whether its upload still resolves for download.
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Current(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, resourceList(s, h.available(uid, s)))
}

// available reports which upload ids currently resolve in the volatile store.
// A missing record is not an error: the resource simply renders without its
// download affordance.
func (h *ResourceHandler) available(uid string, s *domain.Session) map[string]bool {
	out := make(map[string]bool)
	for _, res := range s.Resources {
		if res.HasUpload() {
			out[res.UploadID] = h.svc.Upload(uid, res.UploadID) != nil
		}
	}
	return out
}

// resourceView is one resource in API responses.
type resourceView struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Link         string `json:"link,omitempty"`
	UploadID     string `json:"upload_id,omitempty"`
	Downloadable bool   `json:"downloadable"`
}

func resourceList(s *domain.Session, available map[string]bool) []resourceView {
	out := make([]resourceView, 0, len(s.Resources))
	for _, res := range s.Resources {
		out = append(out, resourceView{
			Name:         res.Name,
			Type:         res.Type,
			Link:         res.Link,
			UploadID:     res.UploadID,
			Downloadable: available[res.UploadID],
		})
	}
	return out
}

// DownloadUpload streams the original bytes of an uploaded file under its
// original filename and MIME type.
func (h *ResourceHandler) DownloadUpload(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	uploadID := chi.URLParam(r, "uploadID")
	file := h.svc.Upload(uid, uploadID)
	if file == nil {
		Error(w, http.StatusNotFound, "upload not found")
		return
	}

	w.Header().Set("Content-Type", file.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		slog.Debug("Failed to write upload body", "error", err, "upload_id", uploadID)
	}
}
