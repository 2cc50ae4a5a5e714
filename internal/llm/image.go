package llm

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"
)

var (
	ErrNoImage       = errors.New("no image file provided")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	ErrImageTooLarge = errors.New("image too large")
)

// Image is an uploaded image ready to be sent to the model.
type Image struct {
	Data     []byte
	MIMEType string
}

// ReadImage reads an uploaded image, enforcing maxBytes. The declared content
// type is trusted when it is an image type, otherwise the type is sniffed
// from the data.
func ReadImage(r io.Reader, declaredType string, maxBytes int64) (Image, error) {
	if r == nil {
		return Image{}, ErrNoImage
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrNoImage
	}
	if int64(len(data)) > maxBytes {
		return Image{}, fmt.Errorf("%w: exceeds limit of %d bytes", ErrImageTooLarge, maxBytes)
	}

	return NewImage(data, declaredType)
}

// NewImage wraps raw image bytes, resolving the MIME type.
func NewImage(data []byte, declaredType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrNoImage
	}

	mimeType := strings.TrimSpace(strings.ToLower(declaredType))
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotAnImage, mimeType)
	}

	return Image{Data: data, MIMEType: mimeType}, nil
}

// Part encodes the image as an inline blob part for the Gemini request.
func (img Image) Part() *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
	}
}

// Hash returns a SHA256 hex digest of the image data, used as cache key.
func (img Image) Hash() string {
	sum := sha256.Sum256(img.Data)
	return hex.EncodeToString(sum[:])
}

// Base64 returns the standard base64 encoding of the image data.
func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}
