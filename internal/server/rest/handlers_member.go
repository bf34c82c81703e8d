package rest

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/server/auth"
	"github.com/dmitrijs2005/betclever/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	multipartMemory  = 8 << 20
	maxFilesPerBatch = 10
)

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.member.UpdateProfile(r.Context(), auth.SessionFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(p))
}

func (h *Handler) documents(w http.ResponseWriter, r *http.Request) {
	views, err := h.member.Documents(r.Context(), auth.SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocuments(views))
}

// uploadDocuments accepts multipart/form-data with one or more "files" parts.
func (h *Handler) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*maxFilesPerBatch)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, common.NewValidationError("files", "request too large"))
			return
		}
		h.writeError(w, r, common.NewValidationError("files", "malformed multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) > maxFilesPerBatch {
		h.writeError(w, r, common.NewValidationError("files", "too many files"))
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, services.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	doc, err := h.member.UploadDocuments(r.Context(), auth.SessionFromContext(r.Context()), chi.URLParam(r, "category"), uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocument(doc))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	st, err := h.member.SubmitForReview(r.Context(), auth.SessionFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatus(*st))
}
