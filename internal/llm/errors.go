package llm

import (
	"errors"
	"strings"
)

// User-facing messages for analysis failures.
const (
	MsgAIDisabled     = "AI features are not enabled"
	MsgNoImage        = "No image file provided"
	MsgInvalidImage   = "File yang diunggah bukan gambar yang valid."
	MsgOverloaded     = "Layanan AI sedang sibuk, silakan coba lagi nanti."
	MsgRateLimited    = "Terlalu banyak permintaan ke layanan AI, tunggu sebentar lalu coba lagi."
	MsgAnalysisFailed = "Gagal menganalisis gambar. Silakan isi formulir secara manual."
)

// FailureKind groups analysis errors by what the user should do about them.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureDisabled
	FailureNoImage
	FailureInvalidImage
	FailureOverloaded
	FailureRateLimited
)

func (k FailureKind) String() string {
	switch k {
	case FailureDisabled:
		return "disabled"
	case FailureNoImage:
		return "no_image"
	case FailureInvalidImage:
		return "invalid_image"
	case FailureOverloaded:
		return "overloaded"
	case FailureRateLimited:
		return "rate_limited"
	default:
		return "generic"
	}
}

// Message returns the user-facing message for the failure kind.
func (k FailureKind) Message() string {
	switch k {
	case FailureDisabled:
		return MsgAIDisabled
	case FailureNoImage:
		return MsgNoImage
	case FailureInvalidImage:
		return MsgInvalidImage
	case FailureOverloaded:
		return MsgOverloaded
	case FailureRateLimited:
		return MsgRateLimited
	default:
		return MsgAnalysisFailed
	}
}

// ClassifyFailure maps an analysis error to a FailureKind. Provider errors
// use the same tokens as IsRetryable: "overloaded" or "503" means the service
// is busy, "429" means the caller is rate limited.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return FailureGeneric
	case errors.Is(err, ErrAIDisabled):
		return FailureDisabled
	case errors.Is(err, ErrNoImage):
		return FailureNoImage
	case errors.Is(err, ErrNotAnImage), errors.Is(err, ErrImageTooLarge):
		return FailureInvalidImage
	case errors.Is(err, ErrInvalidContent):
		return FailureGeneric
	}

	if code, ok := apiErrorCode(err); ok {
		switch code {
		case 503:
			return FailureOverloaded
		case 429:
			return FailureRateLimited
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "overloaded"), strings.Contains(msg, "503"):
		return FailureOverloaded
	case strings.Contains(msg, "429"):
		return FailureRateLimited
	default:
		return FailureGeneric
	}
}
