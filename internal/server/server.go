// Package server exposes the partner service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/satulemari/partner-service/config"
	"github.com/satulemari/partner-service/internal/catalog"
	"github.com/satulemari/partner-service/internal/listing"
	"github.com/satulemari/partner-service/internal/llm"
	"github.com/satulemari/partner-service/internal/partner"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	cfg      *config.Config
	analysis *llm.Service
	drafts   *listing.Registry
	backend  partner.Backend
	products *catalog.Catalog
}

func New(cfg *config.Config, analysis *llm.Service, drafts *listing.Registry, backend partner.Backend, products *catalog.Catalog) *Server {
	return &Server{
		cfg:      cfg,
		analysis: analysis,
		drafts:   drafts,
		backend:  backend,
		products: products,
	}
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// two image slots plus form fields
	maxBody := s.cfg.MaxImageBytes*listing.ImageSlots + 1<<20

	r.Use(
		recovery(),
		requestLogger(),
		requestSizeLimiter(maxBody),
	)

	r.GET("/health", s.health)

	api := r.Group("/api", bearerToken())
	api.POST("/ai/analyze-clothing", s.analyzeClothing)
	api.GET("/products", s.listProducts)

	drafts := api.Group("/drafts")
	drafts.POST("", s.createDraft)
	drafts.GET("/:id", s.getDraft)
	drafts.PATCH("/:id", s.updateDraft)
	drafts.DELETE("/:id", s.deleteDraft)
	drafts.PUT("/:id/images/:slot", s.uploadDraftImage)
	drafts.POST("/:id/analysis/retry", s.retryAnalysis)
	drafts.POST("/:id/analysis/apply", s.applyAnalysis)
	drafts.POST("/:id/analysis/dismiss", s.dismissAnalysis)
	drafts.POST("/:id/submit", s.submitDraft)

	api.GET("/categories", s.listCategories)
	api.GET("/items/:id", s.getItem)
	api.PUT("/items/:id", s.updateItem)
	api.DELETE("/items/:id", s.deleteItem)
	api.GET("/requests/partner", s.listPartnerRequests)
	api.PUT("/requests/:id", s.updateRequestStatus)
	api.GET("/users/me", s.me)
	api.GET("/users/dashboard", s.dashboard)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "available",
		"aiEnabled":  s.analysis.Enabled(),
		"openDrafts": s.drafts.Len(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, s.products.Filter(c.Query("type")))
}

// knownCategories returns the backend categories, falling back to the
// built-in list when the backend cannot be reached.
func (s *Server) knownCategories(ctx context.Context) []listing.Category {
	cats, err := s.backend.ListCategories(ctx)
	if err == nil && len(cats) > 0 {
		out := make([]listing.Category, len(cats))
		for i, c := range cats {
			out[i] = listing.Category{ID: c.ID, Name: c.Name}
		}
		return out
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch categories, using built-in list")
	}
	return builtinCategories()
}

func builtinCategories() []listing.Category {
	out := make([]listing.Category, len(llm.Categories))
	for i, name := range llm.Categories {
		out[i] = listing.Category{ID: name, Name: name}
	}
	return out
}
