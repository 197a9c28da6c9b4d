package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/pkg/logger"
)

type fakeSheets struct {
	titles   []string
	added    []string
	values   map[string][][]interface{}
	updated  map[string][]interface{}
	appended map[string][][]interface{}
	err      error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		values:   map[string][][]interface{}{},
		updated:  map[string][]interface{}{},
		appended: map[string][][]interface{}{},
	}
}

func (f *fakeSheets) SheetTitles(ctx context.Context, id string) ([]string, error) {
	return f.titles, f.err
}

func (f *fakeSheets) AddSheet(ctx context.Context, id, title string) error {
	f.added = append(f.added, title)
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSheets) ReadRange(ctx context.Context, id, rng string) ([][]interface{}, error) {
	return f.values[rng], nil
}

func (f *fakeSheets) UpdateRow(ctx context.Context, id, rng string, row []interface{}) error {
	f.updated[rng] = row
	return nil
}

func (f *fakeSheets) AppendRow(ctx context.Context, id, rng string, row []interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.appended[rng] = append(f.appended[rng], row)
	return nil
}

func TestInitializeSheetCreatesSheetAndHeaders(t *testing.T) {
	client := newFakeSheets()
	tr := New(client, config.TrackerConfig{SpreadsheetID: "s1"}, nil, logger.Nop())

	require.NoError(t, tr.InitializeSheet(context.Background()))
	assert.Equal(t, []string{"Published"}, client.added)

	header := client.updated["Published!A1"]
	require.Len(t, header, len(SheetColumns))
	assert.Equal(t, "ID", header[0])
	assert.Equal(t, "URL", header[5])
}

func TestInitializeSheetKeepsExistingHeaders(t *testing.T) {
	client := newFakeSheets()
	client.titles = []string{"Log"}
	client.values["Log!A1:F1"] = [][]interface{}{{"ID"}}
	tr := New(client, config.TrackerConfig{SpreadsheetID: "s1", SheetName: "Log"}, nil, logger.Nop())

	require.NoError(t, tr.InitializeSheet(context.Background()))
	assert.Empty(t, client.added)
	assert.Empty(t, client.updated)
}

func TestRecordPublished(t *testing.T) {
	client := newFakeSheets()
	tr := New(client, config.TrackerConfig{SpreadsheetID: "s1"}, nil, logger.Nop())

	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	require.NoError(t, tr.RecordPublished(context.Background(), &models.Content{
		ID:           12,
		Platform:     models.PlatformGoogleDocs,
		Title:        "Launch notes",
		TopicTitle:   "AI Regulation",
		PublishedAt:  &at,
		PublishedURL: "https://docs.google.com/document/d/x/edit",
	}))

	rows := client.appended["Published!A:F"]
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{
		uint(12), "googledocs", "Launch notes", "AI Regulation",
		"2026-05-04T10:30:00Z", "https://docs.google.com/document/d/x/edit",
	}, rows[0])
}

func TestRecordPublishedError(t *testing.T) {
	client := newFakeSheets()
	client.err = errors.New("quota")
	tr := New(client, config.TrackerConfig{SpreadsheetID: "s1"}, nil, logger.Nop())

	err := tr.RecordPublished(context.Background(), &models.Content{ID: 1})
	assert.Error(t, err)
}

func TestNewSheetsTrackerDisabled(t *testing.T) {
	tr, err := NewSheetsTracker(context.Background(), config.TrackerConfig{}, config.GoogleDocsConfig{}, nil, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, tr)
}
