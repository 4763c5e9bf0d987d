package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const (
	// DefaultWorksheet is the worksheet rows are appended to.
	DefaultWorksheet = "podcasts"

	driveScope = "https://www.googleapis.com/auth/drive"

	// Literal values: a record that starts with "=" must not become a formula.
	valueInputOption = "RAW"
	insertDataOption = "INSERT_ROWS"
)

// Scopes granted to the service account.
var Scopes = []string{gsheets.SpreadsheetsScope, driveScope}

// NewService authenticates to the Sheets API with a service-account JSON key.
// Extra options (endpoint overrides in tests) are applied after the credential.
func NewService(ctx context.Context, credentialsJSON []byte, opts ...option.ClientOption) (*gsheets.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+2)
	if len(credentialsJSON) > 0 {
		all = append(all, option.WithCredentialsJSON(credentialsJSON), option.WithScopes(Scopes...))
	}
	all = append(all, opts...)
	svc, err := gsheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AuthorizedClient returns an HTTP client that signs requests with the
// service account, for reading exports of sheets that are not public.
func AuthorizedClient(ctx context.Context, credentialsJSON []byte) (*http.Client, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return cfg.Client(ctx), nil
}

// AppenderConfig identifies the target worksheet.
type AppenderConfig struct {
	SheetURL  string
	Worksheet string
}

// Appender adds rows to the mirror worksheet.
type Appender struct {
	svc           *gsheets.Service
	spreadsheetID string
	worksheet     string
}

var _ podcast.RowAppender = (*Appender)(nil)

// NewAppender resolves the spreadsheet ID from cfg.SheetURL.
func NewAppender(svc *gsheets.Service, cfg AppenderConfig) (*Appender, error) {
	if svc == nil {
		return nil, fmt.Errorf("sheets service is required")
	}
	id, err := SpreadsheetID(cfg.SheetURL)
	if err != nil {
		return nil, err
	}
	worksheet := strings.TrimSpace(cfg.Worksheet)
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	return &Appender{svc: svc, spreadsheetID: id, worksheet: worksheet}, nil
}

// Append writes [filename, value] as a new row and returns the updated A1 range.
func (a *Appender) Append(ctx context.Context, row podcast.Row) (string, error) {
	vr := &gsheets.ValueRange{
		Values: [][]interface{}{{row.Filename, row.Value}},
	}
	resp, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, a.worksheet, vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append row to %s: %w", a.worksheet, err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}
