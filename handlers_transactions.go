package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"expensetracker/models"
	"expensetracker/pkg/expense"
	"expensetracker/pkg/logging"
	"expensetracker/pkg/ocr"
	"expensetracker/pkg/report"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// maxExportRows caps a single spreadsheet export.
const maxExportRows = 10000

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// transactionRequest is the body of create and update. Absent members are
// nil so update can tell them from empty values. Amount stays raw so a bad
// value is reported against its field.
type transactionRequest struct {
	Title    *string         `json:"title"`
	Amount   json.RawMessage `json:"amount"`
	Category *string         `json:"category"`
	Date     *string         `json:"date"`
	Notes    *string         `json:"notes"`
}

func (r transactionRequest) fields() (expense.Fields, error) {
	f := expense.Fields{Title: r.Title, Category: r.Category, Notes: r.Notes}
	verr := &expense.ValidationError{}
	if len(r.Amount) > 0 && string(r.Amount) != "null" {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(r.Amount); err != nil {
			verr.Add("amount", "amount must be a number")
		} else {
			f.Amount = &d
		}
	}
	if r.Date != nil {
		d, err := parseRequestDate(*r.Date)
		if err != nil {
			verr.Add("date", "date must be YYYY-MM-DD or RFC 3339")
		} else {
			f.Date = &d
		}
	}
	return f, verr.OrNil()
}

func parseRequestDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// bindTransaction decodes the request body, answering 400 itself on failure.
func bindTransaction(c *gin.Context) (expense.Fields, bool) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var terr *json.UnmarshalTypeError
		if errors.As(err, &terr) && terr.Field != "" {
			invalid(c, terr.Field, fmt.Sprintf("%s must be a %s", terr.Field, terr.Type))
			return expense.Fields{}, false
		}
		fail(c, http.StatusBadRequest, "invalid JSON body")
		return expense.Fields{}, false
	}
	f, err := req.fields()
	if err != nil {
		respondError(c, err)
		return expense.Fields{}, false
	}
	return f, true
}

// transactionID parses the :id path parameter, answering 400 itself on failure.
func transactionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		invalid(c, "id", "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// bindFilter parses the list query string, answering 400 itself on failure.
func bindFilter(c *gin.Context) (expense.Query, bool) {
	var raw expense.RawFilter
	if err := c.ShouldBindQuery(&raw); err != nil {
		fail(c, http.StatusBadRequest, "invalid query string")
		return expense.Query{}, false
	}
	q, err := expense.ParseFilter(raw)
	if err != nil {
		respondError(c, err)
		return expense.Query{}, false
	}
	return q, true
}

func (a *app) listTransactionsHandler(c *gin.Context) {
	q, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := a.expenses.List(c.Request.Context(), userID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Data: page.Items, Pagination: &page.Pagination})
}

func (a *app) getTransactionHandler(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	t, err := a.expenses.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, t)
}

func (a *app) createTransactionHandler(c *gin.Context) {
	f, ok := bindTransaction(c)
	if !ok {
		return
	}
	t, err := a.expenses.Create(c.Request.Context(), userID(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/transactions/%d", t.ID))
	respond(c, http.StatusCreated, t)
}

func (a *app) updateTransactionHandler(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	f, ok := bindTransaction(c)
	if !ok {
		return
	}
	if f.Empty() {
		invalid(c, "body", "at least one field must be supplied")
		return
	}
	t, err := a.expenses.Update(c.Request.Context(), userID(c), id, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, t)
}

func (a *app) deleteTransactionHandler(c *gin.Context) {
	id, ok := transactionID(c)
	if !ok {
		return
	}
	if err := a.expenses.Delete(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Success: true, Message: "transaction deleted"})
}

// exportTransactionsHandler streams every transaction matching the filter as
// an xlsx workbook, ignoring paging.
func (a *app) exportTransactionsHandler(c *gin.Context) {
	q, ok := bindFilter(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rows, err := a.expenses.Export(ctx, userID(c), q, maxExportRows)
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := report.Workbook(rows, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	name := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "write export", logging.FieldError, err)
	}
}

// scanDraft is the transaction a receipt suggests. Nothing is stored; the
// client confirms it through the create endpoint.
type scanDraft struct {
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	Category   models.Category `json:"category"`
	Date       *time.Time      `json:"date,omitempty"`
	Confidence float64         `json:"confidence"`
	RawText    string          `json:"rawText"`
}

func (a *app) scanReceiptHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.cfg.UploadMaxBytes+1<<20)
	file, err := c.FormFile("file")
	if err != nil {
		invalid(c, "file", "file missing")
		return
	}
	if file.Size > a.cfg.UploadMaxBytes {
		invalid(c, "file", fmt.Sprintf("file too large (max %d bytes)", a.cfg.UploadMaxBytes))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
	default:
		invalid(c, "file", "unsupported image type")
		return
	}

	tmp, err := os.CreateTemp("", "scan-*"+ext)
	if err != nil {
		respondError(c, err)
		return
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)
	if err := c.SaveUploadedFile(file, path); err != nil {
		respondError(c, err)
		return
	}

	res, err := a.scanner.Scan(c.Request.Context(), path)
	if errors.Is(err, ocr.ErrNoAmount) {
		c.JSON(http.StatusUnprocessableEntity, envelope{
			Success: false,
			Message: "no amount could be read from the receipt",
			Data:    draftFrom(res),
		})
		return
	}
	if err != nil {
		ctx := c.Request.Context()
		if ctx.Err() != nil {
			respondError(c, err)
			return
		}
		logging.FromContext(ctx).WarnContext(ctx, "receipt scan failed", logging.FieldError, err)
		fail(c, http.StatusUnprocessableEntity, "receipt could not be read")
		return
	}
	respond(c, http.StatusOK, draftFrom(res))
}

// draftFrom turns a possibly partial OCR result into a draft.
func draftFrom(res *ocr.Result) scanDraft {
	d := scanDraft{Title: "Receipt", Category: models.CategoryOther}
	if res == nil {
		return d
	}
	if res.Merchant != "" {
		d.Title = res.Merchant
	}
	d.Amount = res.Amount
	d.Date = res.Date
	d.Confidence = res.Confidence
	d.RawText = res.Text
	return d
}
