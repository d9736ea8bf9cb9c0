package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"rentbook/internal/core"
)

var rosterHeader = []any{
	"Name", "Apartment", "Floor", "Phone", "Start Date", "Rent",
	"Rent Status", "Advance", "Balance", "Last Payment", "Method", "Tag", "Payment Date",
}

// Exporter writes the tenant roster to one sheet of a spreadsheet,
// replacing whatever the sheet held before.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewExporter creates an exporter. Extra client options are passed to the
// Sheets service (endpoint, HTTP client, credentials).
func NewExporter(ctx context.Context, spreadsheetID, sheetName string, opts ...goption.ClientOption) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Tenants"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// NewFromServiceAccount creates an exporter authenticated with a service
// account key file. With an empty path, Application Default Credentials
// are used.
func NewFromServiceAccount(ctx context.Context, spreadsheetID, sheetName, keyFile string) (*Exporter, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	if keyFile = strings.TrimSpace(keyFile); keyFile != "" {
		credentialsJSON, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials", "path", keyFile, "size", len(credentialsJSON))
		opts = append(opts, goption.WithCredentialsJSON(credentialsJSON))
	}
	return NewExporter(ctx, spreadsheetID, sheetName, opts...)
}

// ExportRoster clears the sheet and writes a header plus one row per tenant.
// It returns the number of tenant rows written.
func (e *Exporter) ExportRoster(ctx context.Context, tenants []core.Tenant) (int, error) {
	if e.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, e.sheetName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}

	values := make([][]any, 0, len(tenants)+1)
	values = append(values, rosterHeader)
	for _, t := range tenants {
		values = append(values, rosterRow(t))
	}

	rng := fmt.Sprintf("%s!A1", e.sheetName)
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write roster to %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Exported tenant roster", "sheet", e.sheetName, "rows", len(tenants))
	return len(tenants), nil
}

func rosterRow(t core.Tenant) []any {
	var lastPayment, paidAt string
	if t.HasPayment() {
		lastPayment = t.LastPaymentAmount.String()
		paidAt = t.PaymentDate.Format(time.RFC3339)
	}
	return []any{
		t.Name,
		string(t.ApartmentType),
		t.Floor,
		t.PhoneNumber,
		t.StartingDate.String(),
		t.RentAmount.String(),
		t.RentStatus(),
		t.AdvanceStatus(),
		t.Balance.String(),
		lastPayment,
		string(t.PaymentMethod),
		string(t.RentPeriod),
		paidAt,
	}
}
