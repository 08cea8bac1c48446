package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/cnpjsync/internal/enrichment"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/logger"
	"go.uber.org/zap"
)

// Lookuper answers single-company lookups
type Lookuper interface {
	Lookup(ctx context.Context, rawCNPJ string) (*enrichment.Result, error)
}

// CompanyHandler serves the enrichment endpoints
type CompanyHandler struct {
	svc Lookuper
	log *zap.Logger
}

// NewCompanyHandler creates a CompanyHandler
func NewCompanyHandler(svc Lookuper, log *zap.Logger) *CompanyHandler {
	return &CompanyHandler{svc: svc, log: log}
}

// ImportResponse is returned by the import trigger
type ImportResponse struct {
	ID       uint      `json:"id"`
	CNPJ     string    `json:"cnpj"`
	Outcome  string    `json:"outcome"`
	SyncedAt time.Time `json:"synced_at"`
	Stale    bool      `json:"stale,omitempty"`
}

// CompanyResponse is returned by the read endpoint
type CompanyResponse struct {
	Outcome string                 `json:"outcome"`
	Stale   bool                   `json:"stale,omitempty"`
	Company *model.EnrichedCompany `json:"company"`
}

// Import handles POST /internal/companies/:cnpj/import
func (h *CompanyHandler) Import(c echo.Context) error {
	log := logger.FromEcho(c, h.log)
	raw := c.Param("cnpj")

	res, err := h.svc.Lookup(c.Request().Context(), raw)
	if res == nil || res.Company == nil {
		return h.failure(c, log, raw, res, err)
	}

	log.Info("Company import answered",
		zap.String("cnpj", res.Company.CNPJ),
		zap.String("outcome", string(res.Outcome)),
		zap.Uint("id", res.Company.ID))
	return c.JSON(http.StatusOK, ImportResponse{
		ID:       res.Company.ID,
		CNPJ:     res.Company.CNPJ,
		Outcome:  string(res.Outcome),
		SyncedAt: res.Company.SyncedAt,
		Stale:    res.Outcome == enrichment.OutcomeStaleFallback,
	})
}

// GetCompany handles GET /api/companies/:cnpj
func (h *CompanyHandler) GetCompany(c echo.Context) error {
	log := logger.FromEcho(c, h.log)
	raw := c.Param("cnpj")

	res, err := h.svc.Lookup(c.Request().Context(), raw)
	if res == nil || res.Company == nil {
		return h.failure(c, log, raw, res, err)
	}

	if res.Outcome == enrichment.OutcomeStaleFallback {
		c.Response().Header().Set("Warning", `110 - "Response is Stale"`)
	}
	return c.JSON(http.StatusOK, CompanyResponse{
		Outcome: string(res.Outcome),
		Stale:   res.Outcome == enrichment.OutcomeStaleFallback,
		Company: res.Company,
	})
}

// failure maps a lookup without a company to its HTTP status
func (h *CompanyHandler) failure(c echo.Context, log *zap.Logger, raw string, res *enrichment.Result, err error) error {
	if errors.Is(err, enrichment.ErrInvalidCNPJ) {
		log.Warn("Invalid cnpj", zap.String("cnpj", raw), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": err.Error(),
		})
	}

	if res != nil {
		status := http.StatusBadGateway
		message := "Lookup provider unavailable"
		switch res.Outcome {
		case enrichment.OutcomeNotFound:
			status, message = http.StatusNotFound, "Company not found"
		case enrichment.OutcomeRateLimited:
			status, message = http.StatusTooManyRequests, "Lookup provider rate limit exceeded"
			c.Response().Header().Set("Retry-After", "60")
		}
		log.Warn("Company lookup failed",
			zap.String("cnpj", raw),
			zap.String("outcome", string(res.Outcome)),
			zap.Error(err))
		return c.JSON(status, echo.Map{
			"error":   message,
			"outcome": string(res.Outcome),
		})
	}

	log.Error("Company lookup failed", zap.String("cnpj", raw), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": "Failed to store company",
	})
}
