package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	reportdomain "github.com/GymAurCode/rems-ledger/internal/report/domain"
)

// reportContext bounds snapshot queries so a heavy report cannot hold a
// database transaction open indefinitely.
func (s *Server) reportContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.ReportTimeout)
}

func (s *Server) GetTrialBalance(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.TrialBalance(ctx, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetBalanceSheet(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.BalanceSheet(ctx, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetProfitLoss(c *gin.Context) {
	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		AbortWithError(c, newValidationError("range", "invalid_date_range", "from and to are required"))
		return
	}
	filter, err := s.ledgerFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.ProfitLoss(ctx, from, to, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetAging(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	side := reportdomain.AgingSide(c.DefaultQuery("side", string(reportdomain.AgingReceivable)))
	if side != reportdomain.AgingReceivable && side != reportdomain.AgingPayable {
		AbortWithError(c, newValidationError("side", "invalid_side", "must be receivable or payable"))
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.Aging(ctx, asOf, side)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetPropertyProfitability(c *gin.Context) {
	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		AbortWithError(c, newValidationError("range", "invalid_date_range", "from and to are required"))
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.PropertyProfitability(ctx, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) GetEscrow(c *gin.Context) {
	asOf, err := asOfQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	report, err := s.reports.Escrow(ctx, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
