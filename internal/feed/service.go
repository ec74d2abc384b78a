// Package feed builds the calendar document from the published sheet.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"steinbockcal/internal/event"
	"steinbockcal/internal/fetch"
	"steinbockcal/internal/ics"
	"steinbockcal/internal/model"
	"steinbockcal/internal/table"
)

// Logger is the logging capability the service depends on.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
}

// Options wires a Service. SourceURL and Fetcher are required.
type Options struct {
	SourceURL string
	Fetcher   fetch.Fetcher
	// FetchTimeout is only reported in TimeoutError; the fetcher enforces it.
	FetchTimeout time.Duration
	Extractor    table.Extractor
	Style        model.EventStyle
	Logger       Logger
}

// Service runs the fetch, extract, build and serialize pipeline. It keeps no
// state between calls and is safe for concurrent use.
type Service struct {
	sourceURL    string
	fetcher      fetch.Fetcher
	fetchTimeout time.Duration
	extractor    table.Extractor
	builder      event.Builder
	logger       Logger
}

// New validates opts and returns a Service. SourceURL and Fetcher are
// required; the extractor, style and logger fall back to defaults.
func New(opts Options) (*Service, error) {
	if opts.SourceURL == "" {
		return nil, errors.New("feed: source URL is empty")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("feed: fetcher is nil")
	}
	if opts.Extractor == nil {
		opts.Extractor = table.HTMLExtractor{}
	}
	if opts.Style == "" {
		opts.Style = model.StyleAllDay
	}
	if !opts.Style.Valid() {
		return nil, fmt.Errorf("feed: unknown event style %q", opts.Style)
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Service{
		sourceURL:    opts.SourceURL,
		fetcher:      opts.Fetcher,
		fetchTimeout: opts.FetchTimeout,
		extractor:    opts.Extractor,
		builder:      event.Builder{Style: opts.Style, Logger: opts.Logger},
		logger:       opts.Logger,
	}, nil
}

// Build fetches the source and returns the serialized calendar. Any failure
// aborts the whole build; there is no partial document.
func (s *Service) Build(ctx context.Context) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}

	text, err := ics.Serialize(doc)
	if err != nil {
		return "", &SerializationError{Err: err}
	}
	return text, nil
}

// Document runs the pipeline up to, but excluding, serialization.
func (s *Service) Document(ctx context.Context) (model.CalendarDocument, error) {
	body, err := s.fetcher.Fetch(ctx, s.sourceURL)
	if err != nil {
		return model.CalendarDocument{}, s.fetchError(err)
	}

	rows, err := s.extractor.FirstTable(bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, table.ErrNoTable) {
			return model.CalendarDocument{}, &ParseError{Reason: "no table found", Err: err}
		}
		return model.CalendarDocument{}, &ParseError{Reason: "unreadable document", Err: err}
	}

	doc := model.CalendarDocument{
		Version:   model.CalendarVersion,
		ProductID: model.ProductID,
		Timezone:  model.ViennaTimezone(),
		Events:    []model.EventRecord{},
	}

	seen := make(map[string]int)
	for i, row := range rows.All() {
		// Row 0 is the table header.
		if i == 0 {
			continue
		}
		rec, err := s.builder.Build(i, row)
		if err != nil {
			return model.CalendarDocument{}, fmt.Errorf("build events: %w", err)
		}
		if prev, dup := seen[rec.UID]; dup {
			s.logger.Info("duplicate event uid", "uid", rec.UID, "row", i, "first_row", prev)
		} else {
			seen[rec.UID] = i
		}
		doc.Events = append(doc.Events, rec)
	}

	s.logger.Info("calendar built", "events", len(doc.Events), "source", fetch.RedactURL(s.sourceURL))
	return doc, nil
}

func (s *Service) fetchError(err error) error {
	if errors.Is(err, fetch.ErrTimeout) {
		return &TimeoutError{URL: s.sourceURL, Timeout: s.fetchTimeout, Err: err}
	}
	ne := &NetworkError{URL: s.sourceURL, Err: err}
	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		ne.Status = statusErr.StatusCode
	}
	return ne
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Error(string, error, ...any) {}
