package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-billing-service/internal/config"
	ierr "github.com/tm-acme-shop/acme-shop-billing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-billing-service/internal/service"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the billing service.
type Handlers struct {
	documentService *service.DocumentService
	checks          map[string]ReadinessCheck
	config          *config.Config
	logger          *logging.LoggerV2
}

// NewHandlers creates a new handlers instance. checks are run by Ready.
func NewHandlers(
	documentService *service.DocumentService,
	checks map[string]ReadinessCheck,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		documentService: documentService,
		checks:          checks,
		config:          cfg,
		logger:          logging.NewLoggerV2("handlers"),
	}
}

func handleError(c *gin.Context, err error) {
	var validationErr *ierr.ValidationError
	switch {
	case ierr.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"details": validationErr.Details,
		})
	case ierr.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case ierr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case ierr.IsDuplicateNumber(err):
		c.JSON(http.StatusConflict, gin.H{"error": "document number conflict", "hint": ierr.Hint(err)})
	case ierr.IsSequenceUnavailable(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document numbering unavailable", "hint": ierr.Hint(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
