package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/satulemari/partner-service/internal/listing"
	"github.com/satulemari/partner-service/internal/llm"
	"github.com/satulemari/partner-service/internal/partner"
)

const msgDraftNotFound = "Draft tidak ditemukan."

type createDraftRequest struct {
	Type string `json:"type"`
}

func (s *Server) createDraft(c *gin.Context) {
	var req createDraftRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Format permintaan tidak valid.", err)
			return
		}
	}
	if req.Type != "" && req.Type != partner.TypeDonation && req.Type != partner.TypeRental {
		respondError(c, http.StatusBadRequest, "Jenis barang tidak dikenal.", nil)
		return
	}

	session := s.drafts.Create(req.Type)
	respondOK(c, http.StatusCreated, session.Snapshot())
}

// session looks up the draft named in the path, responding 404 if missing.
func (s *Server) session(c *gin.Context) (*listing.Session, bool) {
	session, ok := s.drafts.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, msgDraftNotFound, nil)
		return nil, false
	}
	return session, true
}

func (s *Server) getDraft(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	if c.Query("wait") == "true" {
		s.waitForAnalysis(c.Request.Context(), session)
	}
	respondOK(c, http.StatusOK, session.Snapshot())
}

func (s *Server) updateDraft(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var patch listing.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, "Format permintaan tidak valid.", err)
		return
	}

	var known []listing.Category
	if patch.CategoryID != nil {
		known = s.knownCategories(c.Request.Context())
	}
	snap, err := session.Update(patch, known)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

func (s *Server) deleteDraft(c *gin.Context) {
	if !s.drafts.Delete(c.Param("id")) {
		respondError(c, http.StatusNotFound, msgDraftNotFound, nil)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

// uploadDraftImage stores a photo in a slot (0 or 1). Uploading slot 0
// starts the analysis; ?wait=true blocks until it finishes.
func (s *Server) uploadDraftImage(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		respondSessionError(c, listing.ErrInvalidSlot)
		return
	}

	img, name, err := s.readImage(c, "image")
	if err != nil {
		respondError(c, http.StatusBadRequest, llm.ClassifyFailure(err).Message(), err)
		return
	}

	snap, err := session.SetImage(slot, &listing.Photo{FileName: name, Image: img})
	if err != nil {
		respondSessionError(c, err)
		return
	}
	if c.Query("wait") == "true" {
		s.waitForAnalysis(c.Request.Context(), session)
		snap = session.Snapshot()
	}
	respondOK(c, http.StatusOK, snap)
}

func (s *Server) retryAnalysis(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Retry()
	if err != nil {
		respondSessionError(c, err)
		return
	}
	if c.Query("wait") == "true" {
		s.waitForAnalysis(c.Request.Context(), session)
		snap = session.Snapshot()
	}
	respondOK(c, http.StatusOK, snap)
}

func (s *Server) applyAnalysis(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Apply(s.knownCategories(c.Request.Context()))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

func (s *Server) dismissAnalysis(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	snap, err := session.Dismiss()
	if err != nil {
		respondSessionError(c, err)
		return
	}
	respondOK(c, http.StatusOK, snap)
}

// submitDraft validates the draft and creates the item on the backend. The
// draft is closed once the backend accepts it.
func (s *Server) submitDraft(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	draft := session.Snapshot().Draft
	if err := draft.Validate(); err != nil {
		var verr *listing.ValidationError
		if errors.As(err, &verr) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{Success: false, Message: verr.Message, Error: verr.Field})
			return
		}
		respondError(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}

	item, err := s.backend.CreateItem(c.Request.Context(), draft.ItemInput())
	if err != nil {
		respondBackendError(c, "Gagal menyimpan barang.", err)
		return
	}

	s.drafts.Delete(session.ID())
	respondOK(c, http.StatusCreated, item)
}

func (s *Server) waitForAnalysis(ctx context.Context, session *listing.Session) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AnalysisTimeout+5*time.Second)
	defer cancel()
	_ = session.Wait(ctx)
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, listing.ErrSessionClosed):
		respondError(c, http.StatusNotFound, msgDraftNotFound, err)
	case errors.Is(err, listing.ErrInvalidSlot):
		respondError(c, http.StatusBadRequest, "Slot gambar tidak valid.", err)
	case errors.Is(err, listing.ErrInvalidTransition), errors.Is(err, listing.ErrNoPrimaryImage):
		respondError(c, http.StatusConflict, "Aksi tidak tersedia untuk status analisis saat ini.", err)
	default:
		respondError(c, http.StatusInternalServerError, "Terjadi kesalahan pada server.", err)
	}
}
