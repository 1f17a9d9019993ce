package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	frauddomain "github.com/GymAurCode/rems-ledger/internal/fraud/domain"
)

func (s *Server) ScanFraudFlags(c *gin.Context) {
	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx, cancel := s.reportContext(c)
	defer cancel()

	flags, err := s.fraud.Scan(ctx, frauddomain.ScanRequest{From: from, To: to})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}
