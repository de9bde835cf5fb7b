package circulation

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), svc, decimal.RequireFromString("0.5"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCheckoutReturnFlow(t *testing.T) {
	svc, clk, _ := newTestService("B1")
	r := newTestRouter(svc)

	// checkout
	w := doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1","borrower_ulid":"B1","loan_days":14}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var loan LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loan))
	assert.Equal(t, "/loans/"+loan.LoanULID, w.Header().Get("Location"))
	assert.Equal(t, StatusActive, loan.Status)

	// conflicting checkout
	w = doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1","borrower_ulid":"B1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// fine preview one day past due, default rate 0.5
	clk.t = t0.Add(15 * 24 * time.Hour)
	w = doJSON(t, r, http.MethodGet, "/api/v1/loans/"+loan.LoanULID+"/fine", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fine FineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fine))
	assert.EqualValues(t, 1, fine.DaysOverdue)
	assert.True(t, fine.FineAmount.Equal(decimal.RequireFromString("0.5")))

	// return with the previewed fine
	w = doJSON(t, r, http.MethodPost, "/api/v1/loans/"+loan.LoanULID+"/return", `{"fine_amount":"0.5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var returned LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &returned))
	assert.Equal(t, StatusReturned, returned.Status)
	assert.True(t, returned.FineAmount.Equal(decimal.RequireFromString("0.5")))

	// second return is rejected
	w = doJSON(t, r, http.MethodPost, "/api/v1/loans/"+loan.LoanULID+"/return", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlerValidation(t *testing.T) {
	svc, _, _ := newTestService("B1")
	r := newTestRouter(svc)

	// missing required fields
	w := doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown borrower
	w = doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1","borrower_ulid":"NOBODY"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// bad rate on fine preview
	w = doJSON(t, r, http.MethodGet, "/api/v1/loans/whatever/fine?daily_rate=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unparsable time filters are rejected, not dropped
	w = doJSON(t, r, http.MethodGet, "/api/v1/loans?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/v1/loans?to=2024-13-99", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// hides the concrete reader type so httptest leaves ContentLength at -1,
// as a chunked client would
type unsizedReader struct{ r io.Reader }

func (u unsizedReader) Read(p []byte) (int, error) { return u.r.Read(p) }

func TestHandlerReturnReadsChunkedBody(t *testing.T) {
	svc, _, _ := newTestService("B1")
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1","borrower_ulid":"B1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var loan LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loan))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+loan.LoanULID+"/return",
		unsizedReader{r: strings.NewReader(`{"fine_amount":"2.5"}`)})
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var returned LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &returned))
	assert.True(t, returned.FineAmount.Equal(decimal.RequireFromString("2.5")),
		"fine = %s", returned.FineAmount)
}

func TestHandlerItemAndBorrowerViews(t *testing.T) {
	svc, _, _ := newTestService("B1")
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/v1/loans", `{"item_id":"ITEM1","borrower_ulid":"B1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/items/ITEM1/active-loans", "")
	require.Equal(t, http.StatusOK, w.Code)
	var active []LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Len(t, active, 1)

	w = doJSON(t, r, http.MethodGet, "/api/v1/borrowers/B1/loans", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []LoanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}
