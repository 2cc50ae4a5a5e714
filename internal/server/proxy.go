package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/satulemari/partner-service/internal/partner"
)

// respondBackendError maps a backend client error onto the response.
func respondBackendError(c *gin.Context, message string, err error) {
	var apiErr *partner.APIError
	switch {
	case errors.Is(err, partner.ErrNoCredentials):
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		// a refusal inside a 2xx/3xx envelope is still a failed upstream call
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		respondError(c, status, messageOr(apiErr.Message, message), err)
	default:
		respondError(c, http.StatusBadGateway, message, err)
	}
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.backend.ListCategories(c.Request.Context())
	if err != nil {
		respondBackendError(c, "Gagal mengambil kategori.", err)
		return
	}
	respondOK(c, http.StatusOK, cats)
}

func (s *Server) getItem(c *gin.Context) {
	item, err := s.backend.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondBackendError(c, "Gagal mengambil data barang.", err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// updateItem forwards the edit-item multipart form.
func (s *Server) updateItem(c *gin.Context) {
	in, err := s.itemInputFromForm(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Format permintaan tidak valid.", err)
		return
	}
	item, err := s.backend.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondBackendError(c, "Gagal mengupdate item", err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

func (s *Server) deleteItem(c *gin.Context) {
	if err := s.backend.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		respondBackendError(c, "Gagal menghapus item", err)
		return
	}
	respondOK(c, http.StatusOK, nil)
}

func (s *Server) listPartnerRequests(c *gin.Context) {
	reqs, err := s.backend.ListPartnerRequests(c.Request.Context(), partner.RequestFilter{
		Type:   c.Query("type"),
		Search: c.Query("search"),
	})
	if err != nil {
		respondBackendError(c, "Gagal mengambil data dari server", err)
		return
	}
	if reqs == nil {
		reqs = []partner.Request{}
	}
	respondOK(c, http.StatusOK, reqs)
}

func (s *Server) updateRequestStatus(c *gin.Context) {
	var update partner.StatusUpdate
	if err := c.ShouldBindJSON(&update); err != nil || update.Status == "" {
		respondError(c, http.StatusBadRequest, "Status wajib diisi.", err)
		return
	}
	req, err := s.backend.UpdateRequestStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondBackendError(c, "Failed to update status", err)
		return
	}
	respondOK(c, http.StatusOK, req)
}

func (s *Server) me(c *gin.Context) {
	user, err := s.backend.Me(c.Request.Context())
	if err != nil {
		respondBackendError(c, "Gagal mengambil profil.", err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

func (s *Server) dashboard(c *gin.Context) {
	raw, err := s.backend.Dashboard(c.Request.Context())
	if err != nil {
		respondBackendError(c, "Gagal mengambil data dashboard.", err)
		return
	}
	respondOK(c, http.StatusOK, raw)
}

func (s *Server) itemInputFromForm(c *gin.Context) (partner.ItemInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return partner.ItemInput{}, fmt.Errorf("failed to parse form: %w", err)
	}
	get := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	in := partner.ItemInput{
		Type:        get("type"),
		Name:        get("name"),
		CategoryID:  get("category_id"),
		Condition:   get("condition"),
		Size:        get("size"),
		Color:       get("color"),
		Description: get("description"),
	}
	if v := get("total_quantity"); v != "" {
		if in.TotalQuantity, err = strconv.Atoi(v); err != nil {
			return in, fmt.Errorf("invalid total_quantity: %w", err)
		}
	}
	if v := get("price"); v != "" {
		if in.Price, err = strconv.ParseFloat(v, 64); err != nil {
			return in, fmt.Errorf("invalid price: %w", err)
		}
	}

	for _, fh := range form.File["images"] {
		img, err := readFormFile(fh, s.cfg.MaxImageBytes)
		if err != nil {
			return in, err
		}
		in.Images = append(in.Images, img)
	}
	return in, nil
}

func readFormFile(fh *multipart.FileHeader, maxBytes int64) (partner.ImageFile, error) {
	if fh.Size > maxBytes {
		return partner.ImageFile{}, fmt.Errorf("image %s exceeds %d bytes", fh.Filename, maxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return partner.ImageFile{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return partner.ImageFile{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return partner.ImageFile{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}
