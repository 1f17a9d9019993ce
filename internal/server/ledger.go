package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/GymAurCode/rems-ledger/internal/ledger/domain"
)

func (s *Server) ledgerFilter(c *gin.Context) (ledgerdomain.Filter, error) {
	var filter ledgerdomain.Filter
	var err error
	if filter.PropertyID, err = parseOptionalID(c.Query("property_id")); err != nil {
		return filter, newValidationError("property_id", "invalid_property_id", "invalid identifier")
	}
	if filter.DealID, err = parseOptionalID(c.Query("deal_id")); err != nil {
		return filter, newValidationError("deal_id", "invalid_deal_id", "invalid identifier")
	}
	return filter, nil
}

func (s *Server) GetAccountLedger(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	filter, err := s.ledgerFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.ledger.AccountLedger(c.Request.Context(), ledgerdomain.AccountLedgerRequest{
		AccountID: id,
		From:      from,
		To:        to,
		Filter:    filter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":         result.Account,
		"opening_balance": moneyOf(result.OpeningBalance),
		"closing_balance": moneyOf(result.ClosingBalance),
		"rows":            result.Rows,
	})
}

func (s *Server) GetAccountBalance(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	asOf, err := asOfQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledger.AccountBalance(c.Request.Context(), id, asOf)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
		"amount":  moneyOf(balance.Balance),
		"as_of":   asOf.Format(time.RFC3339),
	})
}

func (s *Server) GetCompanyLedger(c *gin.Context) {
	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	filter, err := s.ledgerFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.ledger.CompanyLedger(c.Request.Context(), ledgerdomain.CompanyLedgerRequest{
		From:   from,
		To:     to,
		Filter: filter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
