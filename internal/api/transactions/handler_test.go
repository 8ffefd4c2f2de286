package transactions

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindCreateInput(t *testing.T, body string) (createTransactionInput, error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var input createTransactionInput
	err := c.ShouldBindJSON(&input)
	return input, err
}

func TestCreateInputAcceptsZeroAmount(t *testing.T) {
	// A free adjustment entry has amount 0.00; it must not be rejected
	// as if the field were absent.
	input, err := bindCreateInput(t, `{"type":"expense","category":"adjustment","amount":0}`)
	require.NoError(t, err)
	require.NotNil(t, input.Amount)
	assert.Zero(t, *input.Amount)
}

func TestCreateInputRejectsMissingAmount(t *testing.T) {
	_, err := bindCreateInput(t, `{"type":"expense","category":"food"}`)
	assert.Error(t, err)
}

func TestCreateInputRejectsNegativeAmount(t *testing.T) {
	_, err := bindCreateInput(t, `{"type":"expense","category":"food","amount":-5}`)
	assert.Error(t, err)
}

func TestCreateInputRejectsUnknownType(t *testing.T) {
	_, err := bindCreateInput(t, `{"type":"transfer","category":"food","amount":10}`)
	assert.Error(t, err)
}
