package circulation

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc              *Service
	defaultDailyRate decimal.Decimal
}

func RegisterRoutes(r gin.IRoutes, svc *Service, defaultDailyRate decimal.Decimal) {
	h := &Handler{svc: svc, defaultDailyRate: defaultDailyRate}

	// 1. Loan lifecycle
	// POST /loans
	r.POST("/loans", h.Checkout)
	// POST /loans/:loan_ulid/return
	r.POST("/loans/:loan_ulid/return", h.Return)

	// 2. Reads
	// GET /loans (ledger enumeration with filters; reporting/audit consumers)
	r.GET("/loans", h.List)
	// GET /loans/:loan_ulid
	r.GET("/loans/:loan_ulid", h.Get)
	// GET /loans/:loan_ulid/fine (preview before committing a return)
	r.GET("/loans/:loan_ulid/fine", h.Fine)

	// 3. Item-scoped lookup: the catalog layer asks this before marking an
	// item loanable.
	// GET /items/:item_id/active-loans
	r.GET("/items/:item_id/active-loans", h.ActiveForItem)

	// 4. Borrower-scoped history
	// GET /borrowers/:borrower_ulid/loans
	r.GET("/borrowers/:borrower_ulid/loans", h.ForBorrower)
}

// ---------- handlers ----------

func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.Checkout(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	c.Header("Location", "/loans/"+res.LoanULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Return(c *gin.Context) {
	// an empty body means no fine; anything else must parse. EOF rather
	// than a ContentLength check so chunked requests are still read.
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}

	res, err := h.svc.Return(c.Request.Context(), c.Param("loan_ulid"), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Get(c *gin.Context) {
	res, err := h.svc.GetByULID(c.Request.Context(), c.Param("loan_ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Fine(c *gin.Context) {
	rate := h.defaultDailyRate
	if v := c.Query("daily_rate"); v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid daily_rate"))
			return
		}
		rate = parsed
	}

	res, err := h.svc.CalculateFine(c.Request.Context(), c.Param("loan_ulid"), rate)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ActiveForItem(c *gin.Context) {
	res, err := h.svc.ActiveLoansForItem(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ForBorrower(c *gin.Context) {
	res, err := h.svc.LoansForBorrower(c.Request.Context(), c.Param("borrower_ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) List(c *gin.Context) {
	f := LoanFilter{}
	if v := c.Query("item_id"); v != "" {
		f.ItemID = &v
	}
	if v := c.Query("borrower_ulid"); v != "" {
		f.BorrowerULID = &v
	}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		if st != StatusActive && st != StatusReturned {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "status must be active or returned"))
			return
		}
		f.Status = &st
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid from, expected RFC3339"))
			return
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid to, expected RFC3339"))
			return
		}
		f.To = &t
	}
	if v := c.Query("only_overdue"); v == "true" || v == "1" {
		f.OnlyOverdue = true
	}
	p := Page{
		Limit:  parseIntDefault(c.Query("limit"), 50),
		Offset: parseIntDefault(c.Query("offset"), 0),
		Order:  c.DefaultQuery("order", "desc"),
	}

	items, total, err := h.svc.List(c.Request.Context(), f, p)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
