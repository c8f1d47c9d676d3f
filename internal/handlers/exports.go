package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"example.com/wealthsutra/backend/internal/auth"
	"example.com/wealthsutra/backend/internal/models"
)

const (
	exportFormatCSV  = "csv"
	exportFormatXLSX = "xlsx"

	exportSheet       = "Transactions"
	defaultExportDays = 30
	maxExportDays     = 366

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	timeLayout = time.RFC3339
	dateLayout = "2006-01-02"
)

const amountColumn = 2

var exportHeader = []string{
	"occurred_at",
	"direction",
	"amount",
	"category",
	"merchant",
	"channel",
	"source",
	"raw_text",
}

// Export выгружает транзакции за период в CSV или XLSX.
// Период задается from/to (YYYY-MM-DD, to включительно), по умолчанию последние 30 дней.
func (h *TransactionHandler) Export(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV && format != exportFormatXLSX {
		return badRequest(c, "invalid export format")
	}

	from, to, err := parseExportPeriod(c.QueryParam("from"), c.QueryParam("to"), time.Now().UTC())
	if err != nil {
		return badRequest(c, err.Error())
	}

	transactions, err := h.Transactions.ListBetween(c.Request().Context(), userID, from, to)
	if err != nil {
		return serverError(c)
	}

	rows := exportRows(transactions)
	filename := "transactions-" + from.Format(dateLayout) + "-" + to.AddDate(0, 0, -1).Format(dateLayout) + "." + format
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")

	if format == exportFormatXLSX {
		payload, err := writeXLSX(rows)
		if err != nil {
			return serverError(c)
		}
		return c.Blob(http.StatusOK, xlsxContentType, payload)
	}

	payload, err := writeCSV(rows)
	if err != nil {
		return serverError(c)
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", payload)
}

// parseExportPeriod возвращает полуинтервал [from, to).
func parseExportPeriod(rawFrom, rawTo string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	to := today.AddDate(0, 0, 1)
	if raw := strings.TrimSpace(rawTo); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to")
		}
		to = parsed.AddDate(0, 0, 1)
	}

	from := to.AddDate(0, 0, -defaultExportDays)
	if raw := strings.TrimSpace(rawFrom); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from")
		}
		from = parsed
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must not be after to")
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		return time.Time{}, time.Time{}, errors.New("period is too long")
	}

	return from, to, nil
}

func exportRows(transactions []models.Transaction) [][]string {
	rows := make([][]string, 0, len(transactions)+1)
	rows = append(rows, exportHeader)

	for _, t := range transactions {
		rows = append(rows, []string{
			t.OccurredAt.UTC().Format(timeLayout),
			string(t.Direction),
			decimal.NewFromFloat(t.Amount).StringFixed(2),
			t.Category,
			t.Merchant,
			t.Channel,
			t.Source,
			t.RawText,
		})
	}
	return rows
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}

		values := make([]any, 0, len(row))
		for j, value := range row {
			if i > 0 && j == amountColumn {
				if amount, err := decimal.NewFromString(value); err == nil {
					values = append(values, amount.InexactFloat64())
					continue
				}
			}
			values = append(values, value)
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
