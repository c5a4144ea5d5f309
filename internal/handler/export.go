package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/repository"
	"happymeter-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

// ExportHandler produces visit history downloads for program owners.
type ExportHandler struct {
	Visits   repository.VisitRepository
	Programs repository.ProgramRepository
	Currency string
	Logger   *slog.Logger
}

func (h ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/export/visits", h.export)
}

func (h ExportHandler) export(w http.ResponseWriter, r *http.Request) {
	programID, err := resolveProgramID(r.Context(), h.Programs, authctx.FromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, errNoProgram.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	startDate, err := parseDateQuery(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	endDate, err := parseDateQuery(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if startDate != nil {
		from = *startDate
	}
	if endDate != nil {
		// Inclusive end date.
		to = endDate.AddDate(0, 0, 1)
	}
	if from.After(to) {
		writeError(w, http.StatusBadRequest, "startDate must be before endDate")
		return
	}

	visits, err := h.Visits.ListByProgram(r.Context(), programID, from, to)
	if err != nil {
		h.Logger.Error("visit export failed", "program", programID, "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	filenameSuffix := fmt.Sprintf("%s_%s", from.Format("20060102"), to.Format("20060102"))
	switch format {
	case "csv":
		data, err := exportVisitsCSV(visits, h.Currency)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "something went wrong")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"visits_%s.csv\"", filenameSuffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportVisitsXLSX(visits, h.Currency)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "something went wrong")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"visits_%s.xlsx\"", filenameSuffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func visitRow(v domain.Visit) []string {
	rating := ""
	if v.Rating != nil {
		rating = strconv.Itoa(*v.Rating)
	}
	staff := ""
	if v.StaffID != nil {
		staff = strconv.FormatInt(*v.StaffID, 10)
	}
	return []string{
		strconv.FormatInt(v.ID, 10),
		strconv.FormatInt(v.CustomerID, 10),
		staff,
		rating,
		v.Comment,
		strconv.FormatInt(v.Spend.Amount, 10),
		strconv.FormatInt(v.PointsEarned, 10),
		v.CreatedAt.Format(time.RFC3339),
	}
}

func exportVisitsCSV(visits []domain.Visit, currency string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "customer_id", "staff_id", "rating", "comment", "spend_" + strings.ToLower(currency), "points_earned", "created_at"})
	for _, v := range visits {
		_ = w.Write(visitRow(v))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportVisitsXLSX(visits []domain.Visit, currency string) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Visits"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"ID", "Customer", "Staff", "Rating", "Comment", fmt.Sprintf("Spend (%s)", currency), "Points Earned", "Date"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, v := range visits {
		row := r + 2
		values := []any{
			v.ID,
			v.CustomerID,
			derefInt64(v.StaffID),
			derefInt(v.Rating),
			v.Comment,
			v.Spend.Amount,
			v.PointsEarned,
			v.CreatedAt.Format("2006-01-02 15:04"),
		}
		for c, val := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, val)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "C", 12)
	_ = f.SetColWidth(sheet, "D", "D", 8)
	_ = f.SetColWidth(sheet, "E", "E", 32)
	_ = f.SetColWidth(sheet, "F", "G", 14)
	_ = f.SetColWidth(sheet, "H", "H", 18)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "H1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefInt64(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
