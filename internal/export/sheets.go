package export

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"servicehub/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsPublisher mirrors provider reports into a Google spreadsheet. The spreadsheet
// must already contain the Summary, Bookings and "By service" sheets.
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsPublisher authenticates with a service account key file.
func NewSheetsPublisher(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsPublisher, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewSheetsPublisherWithService(srv, spreadsheetID), nil
}

func NewSheetsPublisherWithService(srv *sheets.Service, spreadsheetID string) *SheetsPublisher {
	return &SheetsPublisher{service: srv, spreadsheetID: spreadsheetID}
}

// Publish replaces the contents of the report sheets with stats.
func (p *SheetsPublisher) Publish(ctx context.Context, stats *models.ProviderStats, generatedAt time.Time) error {
	names := []string{SheetSummary, SheetBookings, SheetServices}
	ranges := make([]string, len(names))
	for i, name := range names {
		ranges[i] = quoteSheet(name)
	}

	_, err := p.service.Spreadsheets.Values.BatchClear(p.spreadsheetID, &sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear report sheets: %w", err)
	}

	data := []*sheets.ValueRange{
		{Range: quoteSheet(SheetSummary) + "!A1", Values: summaryRows(stats, generatedAt)},
		{Range: quoteSheet(SheetBookings) + "!A1", Values: bookingRows(stats.CompletedBookings)},
		{Range: quoteSheet(SheetServices) + "!A1", Values: serviceRows(stats.Listings)},
	}
	_, err = p.service.Spreadsheets.Values.BatchUpdate(p.spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write report sheets: %w", err)
	}
	return nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
