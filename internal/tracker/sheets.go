// Package tracker keeps an audit log of published content in Google Sheets.
package tracker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

// SheetColumns defines the column headers for the published log
var SheetColumns = []string{
	"ID",
	"Platform",
	"Title",
	"Topic",
	"Published At",
	"URL",
}

// SheetClient is the subset of the Sheets API the tracker uses
type SheetClient interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	AddSheet(ctx context.Context, spreadsheetID, title string) error
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	UpdateRow(ctx context.Context, spreadsheetID, writeRange string, row []interface{}) error
	AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []interface{}) error
}

// SheetsTracker appends a row per published content item
type SheetsTracker struct {
	client        SheetClient
	spreadsheetID string
	sheetName     string
	limiter       *ratelimit.MultiLimiter
	log           *logger.Logger
}

// NewSheetsTracker creates a tracker using the Google service account shared
// with the Docs publisher. It returns nil when tracking is disabled.
func NewSheetsTracker(ctx context.Context, cfg config.TrackerConfig, creds config.GoogleDocsConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*SheetsTracker, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var srv *sheets.Service
	var err error

	switch {
	case creds.CredentialsJSON != "":
		srv, err = sheets.NewService(ctx, option.WithCredentialsJSON([]byte(creds.CredentialsJSON)))
	case creds.CredentialsFile != "":
		srv, err = sheets.NewService(ctx, option.WithCredentialsFile(creds.CredentialsFile))
	default:
		return nil, fmt.Errorf("no Google credentials provided: set providers.googledocs.credentials_json or credentials_file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return New(&apiClient{service: srv}, cfg, limiter, log), nil
}

// New creates a tracker over an existing client
func New(client SheetClient, cfg config.TrackerConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *SheetsTracker {
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Published"
	}
	return &SheetsTracker{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		limiter:       limiter,
		log:           log.WithComponent("sheets-tracker"),
	}
}

// InitializeSheet creates the sheet and headers if they don't exist
func (t *SheetsTracker) InitializeSheet(ctx context.Context) error {
	if err := t.ensureSheetExists(ctx); err != nil {
		return err
	}

	if err := t.wait(ctx); err != nil {
		return err
	}
	rows, err := t.client.ReadRange(ctx, t.spreadsheetID, fmt.Sprintf("%s!A1:F1", t.sheetName))
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) > 0 {
		t.log.Debug().Msg("Sheet already has headers")
		return nil
	}

	header := make([]interface{}, 0, len(SheetColumns))
	for _, col := range SheetColumns {
		header = append(header, col)
	}
	if err := t.wait(ctx); err != nil {
		return err
	}
	if err := t.client.UpdateRow(ctx, t.spreadsheetID, fmt.Sprintf("%s!A1", t.sheetName), header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	t.log.Info().Msg("Sheet headers initialized")
	return nil
}

func (t *SheetsTracker) ensureSheetExists(ctx context.Context) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	titles, err := t.client.SheetTitles(ctx, t.spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, title := range titles {
		if title == t.sheetName {
			return nil
		}
	}

	t.log.Info().Str("sheet", t.sheetName).Msg("Creating new sheet")
	if err := t.wait(ctx); err != nil {
		return err
	}
	if err := t.client.AddSheet(ctx, t.spreadsheetID, t.sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	return nil
}

// RecordPublished appends an audit row for published content
func (t *SheetsTracker) RecordPublished(ctx context.Context, content *models.Content) error {
	publishedAt := ""
	if content.PublishedAt != nil {
		publishedAt = content.PublishedAt.UTC().Format(time.RFC3339)
	}

	row := []interface{}{
		content.ID,
		string(content.Platform),
		content.Title,
		content.TopicTitle,
		publishedAt,
		content.PublishedURL,
	}

	if err := t.wait(ctx); err != nil {
		return err
	}
	if err := t.client.AppendRow(ctx, t.spreadsheetID, fmt.Sprintf("%s!A:F", t.sheetName), row); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	t.log.WithContentID(content.ID).Info().
		Str("platform", string(content.Platform)).
		Msg("Recorded published content")
	return nil
}

func (t *SheetsTracker) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx, ratelimit.LimiterGoogle); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

// apiClient implements SheetClient on the Sheets v4 API
type apiClient struct {
	service *sheets.Service
}

func (c *apiClient) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			titles = append(titles, sheet.Properties.Title)
		}
	}
	return titles, nil
}

func (c *apiClient) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			},
		},
	}
	_, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

func (c *apiClient) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *apiClient) UpdateRow(ctx context.Context, spreadsheetID, writeRange string, row []interface{}) error {
	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (c *apiClient) AppendRow(ctx context.Context, spreadsheetID, appendRange string, row []interface{}) error {
	_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, appendRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}
