package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/anshulj/papershelf/internal/database"
	"github.com/anshulj/papershelf/internal/ingest"
)

const maxUploadBytes = 64 << 20 // 64MB

type DocumentHandler struct {
	coord *ingest.Coordinator
}

func NewDocumentHandler(coord *ingest.Coordinator) *DocumentHandler {
	return &DocumentHandler{coord: coord}
}

// Upload accepts a multipart form with a "file" field and runs the ingestion
// pipeline. The response is all-or-nothing: a failure anywhere reports one
// error even when internal state is partial.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	doc, err := h.coord.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		var vErr *ingest.ValidationError
		var xErr *ingest.ExtractionError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Error())
		case errors.As(err, &xErr):
			writeError(w, http.StatusUnprocessableEntity, xErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "ingestion failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.coord.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

// Download streams the stored PDF for a document id.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	obj, doc, err := h.coord.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.ContentLength > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(obj.ContentLength))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Title))
	io.Copy(w, obj.Body)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.coord.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID")
		return "", false
	}
	return id, true
}
