package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	accountdomain "github.com/GymAurCode/rems-ledger/internal/account/domain"
	postingdomain "github.com/GymAurCode/rems-ledger/internal/posting/domain"
	voucherdomain "github.com/GymAurCode/rems-ledger/internal/voucher/domain"
)

func TestMapErrorValidationSentinel(t *testing.T) {
	status, payload := mapError(accountdomain.ErrInvalidHierarchy)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_hierarchy", payload.Errors[0].Code)
	assert.Equal(t, "hierarchy", payload.Errors[0].Field)
}

func TestMapErrorPostingViolations(t *testing.T) {
	findings := postingdomain.Violations{
		{Code: "unbalanced_entry", Severity: postingdomain.SeverityError, Line: -1},
		{Code: "account_not_postable", Severity: postingdomain.SeverityError, Line: 0},
	}

	status, payload := mapError(findings)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "posting_rejected", payload.Type)
	assert.Len(t, payload.Violations, 2)
}

func TestMapErrorLifecycleConflict(t *testing.T) {
	status, payload := mapError(voucherdomain.ErrInvalidTransition)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "invalid_status_transition", payload.Message)
}

func TestMapErrorNotFound(t *testing.T) {
	for _, err := range []error{
		accountdomain.ErrNotFound,
		voucherdomain.ErrNotFound,
		gorm.ErrRecordNotFound,
	} {
		status, payload := mapError(err)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", payload.Type)
	}
}

func TestMapErrorUnknownIsInternal(t *testing.T) {
	status, payload := mapError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)
}

func TestErrorHandlingMiddlewareWritesPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, voucherdomain.ErrNotFound)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Type)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(accountdomain.ErrInvalidCode)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_code", code)

	errType, code = classifyErrorForLog(gorm.ErrRecordNotFound)
	assert.Equal(t, "not_found", errType)
	assert.Equal(t, "not_found", code)
}
