// Package googledocs publishes content as a Google Doc in a configured Drive folder.
package googledocs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/campaign-agent/internal/apperr"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/provider"
	"github.com/campaign-agent/internal/publish"
	"github.com/campaign-agent/pkg/logger"
	"github.com/campaign-agent/pkg/ratelimit"
)

const documentMimeType = "application/vnd.google-apps.document"

// Document is what gets written to a new doc
type Document struct {
	Title    string
	Body     string
	Platform models.Platform
	Topic    string
	Hashtags []string
}

// DocumentService is the subset of Drive + Docs the publisher uses
type DocumentService interface {
	CreateDocument(ctx context.Context, title, folderID string) (string, error)
	WriteText(ctx context.Context, documentID, text string) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// ServiceFactory builds a DocumentService from credentials
type ServiceFactory func(ctx context.Context, cfg config.GoogleDocsConfig) (DocumentService, error)

// Publisher implements publish.Publisher and provider.Tester for Google Docs
type Publisher struct {
	source     provider.ConfigSource
	newService ServiceFactory
	limiter    *ratelimit.MultiLimiter
	log        *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	svc     DocumentService
	svcCred string
}

// Option configures a Publisher
type Option func(*Publisher)

// WithServiceFactory replaces the Google API client constructor
func WithServiceFactory(f ServiceFactory) Option {
	return func(p *Publisher) { p.newService = f }
}

// WithLimiter rate limits Google API calls
func WithLimiter(l *ratelimit.MultiLimiter) Option {
	return func(p *Publisher) { p.limiter = l }
}

// New creates a Google Docs publisher
func New(source provider.ConfigSource, log *logger.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		source:     source,
		newService: NewGoogleService,
		log:        log.WithComponent("googledocs"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Platform() models.Platform {
	return models.PlatformGoogleDocs
}

// IsConfigured requires credentials and a target folder
func (p *Publisher) IsConfigured() bool {
	cfg := p.source().GoogleDocs
	return cfg.HasCredentials() && strings.TrimSpace(cfg.FolderID) != ""
}

// Publish creates a document for content and returns its URL
func (p *Publisher) Publish(ctx context.Context, content *models.Content) (*publish.Result, error) {
	doc := Document{
		Title:    content.Title,
		Body:     content.Body,
		Platform: content.Platform,
		Topic:    content.TopicTitle,
		Hashtags: content.Hashtags,
	}

	id, err := p.CreateDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &publish.Result{URL: DocumentURL(id), ExternalID: id}, nil
}

// CreateDocument creates and fills a document, returning its id. A document
// whose body could not be written is deleted again.
func (p *Publisher) CreateDocument(ctx context.Context, doc Document) (string, error) {
	cfg := p.source().GoogleDocs
	if !cfg.HasCredentials() || strings.TrimSpace(cfg.FolderID) == "" {
		return "", apperr.ProviderNotConfigured("google docs credentials and folder_id are required")
	}

	svc, err := p.service(ctx, cfg)
	if err != nil {
		return "", err
	}

	if err := p.wait(ctx); err != nil {
		return "", err
	}
	id, err := svc.CreateDocument(ctx, doc.Title, cfg.FolderID)
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	if err := p.wait(ctx); err != nil {
		return "", err
	}
	if err := svc.WriteText(ctx, id, renderDocument(doc)); err != nil {
		if delErr := svc.DeleteDocument(ctx, id); delErr != nil {
			p.log.Warn().Err(delErr).Str("document_id", id).Msg("Failed to clean up partially written document")
		}
		return "", fmt.Errorf("failed to write document body: %w", err)
	}

	p.log.Info().
		Str("document_id", id).
		Str("title", doc.Title).
		Msg("Document created")

	return id, nil
}

// Test creates and deletes a throwaway document
func (p *Publisher) Test(ctx context.Context) error {
	id, err := p.CreateDocument(ctx, Document{
		Title: fmt.Sprintf("connection test %s", p.now().Format(time.RFC3339)),
		Body:  "This document verifies publishing access and is deleted immediately.",
	})
	if err != nil {
		return err
	}

	svc, err := p.service(ctx, p.source().GoogleDocs)
	if err != nil {
		return err
	}
	if err := svc.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("test document %s created but not deleted: %w", id, err)
	}
	return nil
}

// service returns a cached client, rebuilt when the credentials change
func (p *Publisher) service(ctx context.Context, cfg config.GoogleDocsConfig) (DocumentService, error) {
	key := cfg.CredentialsJSON + "\x00" + cfg.CredentialsFile

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.svc != nil && p.svcCred == key {
		return p.svc, nil
	}
	svc, err := p.newService(ctx, cfg)
	if err != nil {
		return nil, apperr.ProviderNotConfigured("google docs credentials are invalid: %v", err)
	}
	p.svc = svc
	p.svcCred = key
	return svc, nil
}

func (p *Publisher) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx, ratelimit.LimiterGoogle); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}
	return nil
}

// DocumentURL is the edit link for a document id
func DocumentURL(id string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", id)
}

func renderDocument(doc Document) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	b.WriteString("\n\n")
	if doc.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", doc.Topic)
	}
	if doc.Platform != "" {
		fmt.Fprintf(&b, "Platform: %s\n", doc.Platform)
	}
	if doc.Topic != "" || doc.Platform != "" {
		b.WriteString("\n")
	}
	b.WriteString(doc.Body)
	if len(doc.Hashtags) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(doc.Hashtags, " "))
	}
	b.WriteString("\n")
	return b.String()
}

// googleService talks to the Drive and Docs APIs
type googleService struct {
	drive *drive.Service
	docs  *docs.Service
}

// NewGoogleService builds Drive and Docs clients from service account credentials
func NewGoogleService(ctx context.Context, cfg config.GoogleDocsConfig) (DocumentService, error) {
	data := []byte(cfg.CredentialsJSON)
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope, docs.DocumentsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	driveSvc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	docsSvc, err := docs.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	return &googleService{drive: driveSvc, docs: docsSvc}, nil
}

func (g *googleService) CreateDocument(ctx context.Context, title, folderID string) (string, error) {
	file, err := g.drive.Files.Create(&drive.File{
		Name:     title,
		MimeType: documentMimeType,
		Parents:  []string{folderID},
	}).SupportsAllDrives(true).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}

func (g *googleService) WriteText(ctx context.Context, documentID, text string) error {
	_, err := g.docs.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{
		Requests: []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Text:     text,
					Location: &docs.Location{Index: 1},
				},
			},
		},
	}).Context(ctx).Do()
	return err
}

func (g *googleService) DeleteDocument(ctx context.Context, documentID string) error {
	return g.drive.Files.Delete(documentID).SupportsAllDrives(true).Context(ctx).Do()
}

var (
	_ publish.Publisher = (*Publisher)(nil)
	_ provider.Tester   = (*Publisher)(nil)
)
