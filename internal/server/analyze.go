package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satulemari/partner-service/internal/llm"
)

// analyzeClothing handles POST /api/ai/analyze-clothing with a multipart
// "image" field.
func (s *Server) analyzeClothing(c *gin.Context) {
	if !s.analysis.Enabled() {
		respondError(c, http.StatusBadRequest, llm.MsgAIDisabled, nil)
		return
	}

	img, _, err := s.readImage(c, "image")
	if err != nil {
		kind := llm.ClassifyFailure(err)
		if kind == llm.FailureNoImage {
			err = nil
		}
		respondError(c, http.StatusBadRequest, kind.Message(), err)
		return
	}

	result, err := s.analysis.Analyze(c.Request.Context(), img)
	if err != nil {
		kind := llm.ClassifyFailure(err)
		respondError(c, failureStatus(kind), kind.Message(), err)
		return
	}

	respondOK(c, http.StatusOK, result.Item)
}

func failureStatus(kind llm.FailureKind) int {
	switch kind {
	case llm.FailureDisabled, llm.FailureNoImage, llm.FailureInvalidImage:
		return http.StatusBadRequest
	case llm.FailureOverloaded:
		return http.StatusServiceUnavailable
	case llm.FailureRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// readImage reads an uploaded image from a multipart field.
func (s *Server) readImage(c *gin.Context, field string) (llm.Image, string, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return llm.Image{}, "", llm.ErrNoImage
		case errors.As(err, &maxErr):
			return llm.Image{}, "", fmt.Errorf("%w: request body exceeds %d bytes", llm.ErrImageTooLarge, maxErr.Limit)
		default:
			return llm.Image{}, "", fmt.Errorf("%w: %v", llm.ErrNoImage, err)
		}
	}
	defer file.Close()

	img, err := llm.ReadImage(file, header.Header.Get("Content-Type"), s.cfg.MaxImageBytes)
	if err != nil {
		return llm.Image{}, "", err
	}
	return img, header.Filename, nil
}
