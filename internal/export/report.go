package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"servicehub/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary  = "Summary"
	SheetBookings = "Bookings"
	SheetServices = "By service"
)

// ContentType is the media type of the workbooks written by this package.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName returns the download name of a provider report.
func FileName(generatedAt time.Time) string {
	return fmt.Sprintf("servicehub_report_%s.xlsx", generatedAt.UTC().Format("2006-01-02"))
}

// WriteProviderReport writes stats as a workbook with summary, bookings and per-service sheets.
func WriteProviderReport(w io.Writer, stats *models.ProviderStats, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	title, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	if err := writeSummary(f, stats, generatedAt, title, header); err != nil {
		return err
	}
	if err := writeBookings(f, stats.CompletedBookings, header); err != nil {
		return err
	}
	if err := writeServices(f, stats.Listings, header); err != nil {
		return err
	}

	// the summary is the first sheet once the default one is gone
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, stats *models.ProviderStats, generatedAt time.Time, title, header int) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	rows := summaryRows(stats, generatedAt)
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if err := setRow(f, SheetSummary, i+1, r); err != nil {
			return err
		}
	}

	monthHeader := len(rows) - len(stats.RevenueByMonth)
	_ = f.SetCellStyle(SheetSummary, "A1", "A1", title)
	_ = f.SetCellStyle(SheetSummary, cell(1, monthHeader), cell(2, monthHeader), header)
	_ = f.SetColWidth(SheetSummary, "A", "A", 28)
	_ = f.SetColWidth(SheetSummary, "B", "B", 24)
	return nil
}

func writeBookings(f *excelize.File, bookings []*models.Booking, header int) error {
	if _, err := f.NewSheet(SheetBookings); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	for i, r := range bookingRows(bookings) {
		if err := setRow(f, SheetBookings, i+1, r); err != nil {
			return err
		}
	}

	_ = f.SetCellStyle(SheetBookings, "A1", "F1", header)
	_ = f.SetColWidth(SheetBookings, "A", "C", 38)
	_ = f.SetColWidth(SheetBookings, "D", "F", 14)
	return nil
}

func writeServices(f *excelize.File, listings []models.ListingStats, header int) error {
	if _, err := f.NewSheet(SheetServices); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	for i, r := range serviceRows(listings) {
		if err := setRow(f, SheetServices, i+1, r); err != nil {
			return err
		}
	}

	_ = f.SetCellStyle(SheetServices, "A1", "D1", header)
	_ = f.SetColWidth(SheetServices, "A", "A", 32)
	_ = f.SetColWidth(SheetServices, "B", "D", 14)
	return nil
}

// summaryRows lays out the summary sheet. Empty rows are spacers; the monthly
// revenue table comes last.
func summaryRows(stats *models.ProviderStats, generatedAt time.Time) [][]any {
	rows := [][]any{
		{fmt.Sprintf("Provider report, last %d days", stats.Days)},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
		{},
		{"Total bookings", stats.TotalBookings},
		{"Total earnings", stats.TotalEarnings},
		{"Earnings, last 30 days", stats.MonthlyEarnings},
		{"Average rating", stats.AverageRating},
		{"Reviews", stats.ReviewCount},
	}
	for _, s := range models.BookingStatuses {
		rows = append(rows, []any{"Bookings " + string(s), stats.ByStatus[s]})
	}

	rows = append(rows, []any{}, []any{"Month", "Revenue"})
	months := make([]string, 0, len(stats.RevenueByMonth))
	for m := range stats.RevenueByMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		rows = append(rows, []any{m, stats.RevenueByMonth[m]})
	}
	return rows
}

func bookingRows(bookings []*models.Booking) [][]any {
	rows := make([][]any, 0, len(bookings)+1)
	rows = append(rows, []any{"Booking", "Service", "Customer", "Date", "Slot", "Price"})
	for _, b := range bookings {
		rows = append(rows, []any{
			b.ID, b.ListingID, b.CustomerID, b.Date.Format(models.DateLayout), b.TimeSlot, b.TotalPrice,
		})
	}
	return rows
}

func serviceRows(listings []models.ListingStats) [][]any {
	rows := make([][]any, 0, len(listings)+1)
	rows = append(rows, []any{"Service", "Bookings", "Completed", "Revenue"})
	for _, l := range listings {
		rows = append(rows, []any{l.Title, l.Bookings, l.Completed, l.Revenue})
	}
	return rows
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
		return fmt.Errorf("error writing row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
