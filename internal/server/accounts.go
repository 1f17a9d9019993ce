package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
)

type createAccountPayload struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Type     string `json:"type" binding:"required"`
	ParentID string `json:"parent_id"`
	CashFlow string `json:"cash_flow_category"`
	Postable *bool  `json:"is_postable"`
}

func (s *Server) CreateAccount(c *gin.Context) {
	var payload createAccountPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	parentID, err := parseOptionalID(payload.ParentID)
	if err != nil {
		AbortWithError(c, newValidationError("parent_id", "invalid_parent_id", "invalid identifier"))
		return
	}

	account, err := s.accounts.Create(c.Request.Context(), accountdomain.CreateAccountRequest{
		Code:     payload.Code,
		Name:     payload.Name,
		Type:     accountdomain.AccountType(payload.Type),
		ParentID: parentID,
		CashFlow: accountdomain.CashFlowCategory(payload.CashFlow),
		Postable: payload.Postable,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

type reclassifyAccountPayload struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	CashFlow string `json:"cash_flow_category"`
}

func (s *Server) ReclassifyAccount(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var payload reclassifyAccountPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	parentID, err := parseOptionalID(payload.ParentID)
	if err != nil {
		AbortWithError(c, newValidationError("parent_id", "invalid_parent_id", "invalid identifier"))
		return
	}

	account, err := s.accounts.Reclassify(c.Request.Context(), accountdomain.ReclassifyRequest{
		ID:       id,
		Name:     payload.Name,
		ParentID: parentID,
		CashFlow: accountdomain.CashFlowCategory(payload.CashFlow),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (s *Server) DisableAccount(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.accounts.Disable(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) DeleteAccount(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.accounts.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetAccountByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.accounts.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (s *Server) ListAccounts(c *gin.Context) {
	// ?code= short-circuits to a single-account lookup.
	if code := c.Query("code"); code != "" {
		account, err := s.accounts.GetByCode(c.Request.Context(), code)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accounts": []accountdomain.Account{account}})
		return
	}

	accounts, err := s.accounts.List(c.Request.Context(), accountdomain.ListAccountsRequest{
		Type:            accountdomain.AccountType(c.Query("type")),
		PostableOnly:    c.Query("postable") == "true",
		IncludeDisabled: c.Query("include_disabled") == "true",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) ListAccountChildren(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	children, err := s.accounts.ChildrenOf(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": children})
}

func (s *Server) GetAccountPath(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	path, err := s.accounts.ResolvePath(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}
