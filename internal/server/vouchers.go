package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	postingdomain "github.com/GymAurCode/rems-ledger/internal/posting/domain"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
	"github.com/GymAurCode/rems-ledger/pkg/db/pagination"
)

type voucherLinePayload struct {
	AccountID   string `json:"account_id" binding:"required"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description"`
}

type createVoucherPayload struct {
	Type        string                 `json:"type" binding:"required"`
	Date        string                 `json:"date"`
	Description string                 `json:"description"`
	Purpose     string                 `json:"purpose"`
	PropertyID  string                 `json:"property_id"`
	DealID      string                 `json:"deal_id"`
	Metadata    map[string]interface{} `json:"metadata"`
	Lines       []voucherLinePayload   `json:"lines"`
}

type updateVoucherPayload struct {
	Date        *string                `json:"date"`
	Description *string                `json:"description"`
	Purpose     *string                `json:"purpose"`
	PropertyID  *string                `json:"property_id"`
	DealID      *string                `json:"deal_id"`
	Metadata    map[string]interface{} `json:"metadata"`
	Lines       []voucherLinePayload   `json:"lines"`
}

func (s *Server) CreateVoucher(c *gin.Context) {
	var payload createVoucherPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := voucherdomain.CreateVoucherRequest{
		Type:        voucherdomain.VoucherType(payload.Type),
		Description: payload.Description,
		Purpose:     payload.Purpose,
		Metadata:    datatypes.JSONMap(payload.Metadata),
	}

	if payload.Date != "" {
		date, err := parseDate(payload.Date)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
			return
		}
		req.Date = date
	}

	var err error
	if req.PropertyID, err = parseOptionalID(payload.PropertyID); err != nil {
		AbortWithError(c, newValidationError("property_id", "invalid_property_id", "invalid identifier"))
		return
	}
	if req.DealID, err = parseOptionalID(payload.DealID); err != nil {
		AbortWithError(c, newValidationError("deal_id", "invalid_deal_id", "invalid identifier"))
		return
	}
	if req.Lines, err = buildLineInputs(payload.Lines); err != nil {
		AbortWithError(c, err)
		return
	}

	voucher, err := s.vouchers.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, voucherEnvelope(voucher))
}

func (s *Server) UpdateVoucher(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var payload updateVoucherPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := voucherdomain.UpdateVoucherRequest{
		ID:          id,
		Description: payload.Description,
		Purpose:     payload.Purpose,
		Metadata:    datatypes.JSONMap(payload.Metadata),
	}

	if payload.Date != nil {
		date, err := parseDate(*payload.Date)
		if err != nil {
			AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
			return
		}
		req.Date = &date
	}
	if payload.PropertyID != nil {
		propertyID, err := parseOptionalID(*payload.PropertyID)
		if err != nil {
			AbortWithError(c, newValidationError("property_id", "invalid_property_id", "invalid identifier"))
			return
		}
		req.PropertyID = propertyID
	}
	if payload.DealID != nil {
		dealID, err := parseOptionalID(*payload.DealID)
		if err != nil {
			AbortWithError(c, newValidationError("deal_id", "invalid_deal_id", "invalid identifier"))
			return
		}
		req.DealID = dealID
	}
	if payload.Lines != nil {
		if req.Lines, err = buildLineInputs(payload.Lines); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	voucher, err := s.vouchers.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, voucherEnvelope(voucher))
}

func (s *Server) SubmitVoucher(c *gin.Context) {
	s.transitionVoucher(c, s.vouchers.Submit)
}

func (s *Server) ApproveVoucher(c *gin.Context) {
	s.transitionVoucher(c, s.vouchers.Approve)
}

func (s *Server) RejectVoucher(c *gin.Context) {
	s.transitionVoucher(c, s.vouchers.Reject)
}

func (s *Server) GetVoucherByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	voucher, err := s.vouchers.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, voucherEnvelope(voucher))
}

func (s *Server) ListVouchers(c *gin.Context) {
	req := voucherdomain.ListVouchersRequest{
		Type:   voucherdomain.VoucherType(c.Query("type")),
		Status: voucherdomain.VoucherStatus(c.Query("status")),
		Pagination: pagination.Pagination{
			PageToken: c.Query("page_token"),
			PageSize:  queryInt(c, "page_size"),
		},
	}

	var err error
	if req.PropertyID, err = parseOptionalID(c.Query("property_id")); err != nil {
		AbortWithError(c, newValidationError("property_id", "invalid_property_id", "invalid identifier"))
		return
	}
	if req.DealID, err = parseOptionalID(c.Query("deal_id")); err != nil {
		AbortWithError(c, newValidationError("deal_id", "invalid_deal_id", "invalid identifier"))
		return
	}

	from, to, err := dateWindow(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !from.IsZero() {
		req.From = &from
	}
	if !to.IsZero() {
		req.To = &to
	}

	vouchers, pageInfo, err := s.vouchers.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vouchers": vouchers, "page_info": pageInfo})
}

func (s *Server) ValidateVoucher(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	findings, err := s.engineSv.Validate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      !findings.HasErrors(),
		"violations": findings,
	})
}

func (s *Server) PostVoucher(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.engineSv.Post(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyPosted {
		status = http.StatusOK
	}
	c.JSON(status, postResultEnvelope(result))
}

type reverseVoucherPayload struct {
	Description string `json:"description"`
}

func (s *Server) ReverseVoucher(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var payload reverseVoucherPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	result, err := s.engineSv.Reverse(c.Request.Context(), id, payload.Description)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyPosted {
		status = http.StatusOK
	}
	c.JSON(status, postResultEnvelope(result))
}

func (s *Server) transitionVoucher(c *gin.Context, transition func(context.Context, snowflake.ID) (voucherdomain.Voucher, error)) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	voucher, err := transition(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, voucherEnvelope(voucher))
}

func buildLineInputs(payloads []voucherLinePayload) ([]voucherdomain.LineInput, error) {
	lines := make([]voucherdomain.LineInput, 0, len(payloads))
	for i, payload := range payloads {
		field := "lines[" + strconv.Itoa(i) + "]"
		accountID, err := parseOptionalID(payload.AccountID)
		if err != nil || accountID == nil {
			return nil, newValidationError(field+".account_id", "invalid_account_id", "invalid identifier")
		}
		debit, err := parseAmount(payload.Debit)
		if err != nil {
			return nil, newValidationError(field+".debit", "invalid_amount", "invalid amount")
		}
		credit, err := parseAmount(payload.Credit)
		if err != nil {
			return nil, newValidationError(field+".credit", "invalid_amount", "invalid amount")
		}
		lines = append(lines, voucherdomain.LineInput{
			AccountID:   *accountID,
			Debit:       debit,
			Credit:      credit,
			Description: strings.TrimSpace(payload.Description),
		})
	}
	return lines, nil
}

func voucherEnvelope(v voucherdomain.Voucher) gin.H {
	return gin.H{"voucher": v, "amount": moneyOf(v.Amount())}
}

func postResultEnvelope(result postingdomain.PostResult) gin.H {
	var total int64
	for _, line := range result.Lines {
		total += line.Debit
	}
	return gin.H{
		"entry":          result.Entry,
		"lines":          result.Lines,
		"amount":         moneyOf(total),
		"already_posted": result.AlreadyPosted,
		"warnings":       result.Warnings,
	}
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
