package handler

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"happymeter-backend/internal/domain"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleVisits() []domain.Visit {
	staff := int64(3)
	rating := 5
	return []domain.Visit{
		{
			ID:           1,
			CustomerID:   12,
			StaffID:      &staff,
			Rating:       &rating,
			Comment:      "great service",
			Spend:        domain.Money{Amount: 250, Currency: "MXN"},
			PointsEarned: 25,
			CreatedAt:    time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
		},
		{ID: 2, CustomerID: 13, CreatedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)},
	}
}

func TestExportVisitsCSV(t *testing.T) {
	data, err := exportVisitsCSV(sampleVisits(), "MXN")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"id", "customer_id", "staff_id", "rating", "comment", "spend_mxn", "points_earned", "created_at"}, records[0])
	require.Equal(t, "250", records[1][5])
	require.Equal(t, "25", records[1][6])
	// Optional columns stay empty, not zero.
	require.Equal(t, "", records[2][2])
	require.Equal(t, "", records[2][3])
}

func TestExportVisitsXLSX(t *testing.T) {
	data, err := exportVisitsXLSX(sampleVisits(), "MXN")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Visits")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Spend (MXN)", rows[0][5])
	require.Equal(t, "250", rows[1][5])
}
