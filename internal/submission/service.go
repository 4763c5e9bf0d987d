// Package submission runs a feed URL through the remote processor and
// persists the resulting record to the store and the spreadsheet mirror.
package submission

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/podcast-digest/internal/metrics"
	"github.com/JakeFAU/podcast-digest/internal/podcast"
)

const tracerName = "github.com/JakeFAU/podcast-digest/internal/submission"

// ErrProcessing wraps failures reported by the remote processor.
var ErrProcessing = errors.New("remote processing failed")

// Submission outcomes recorded in podcast_submissions_total.
const (
	ResultOK          = "ok"
	ResultInvalidURL  = "invalid_url"
	ResultFeedCheck   = "feed_check_failed"
	ResultProcessing  = "processor_error"
	ResultStoreError  = "store_error"
	ResultSheetError  = "sheet_error"
	ResultInvalidData = "invalid_record"
)

// Invalidator is implemented by row sources that cache the spreadsheet.
type Invalidator interface {
	Invalidate()
}

// Deps lists the collaborators of a Service. Checker, Cache, Ledger and
// Notifier are optional.
type Deps struct {
	Processor podcast.Processor
	Namer     Namer
	Appender  podcast.RowAppender
	Checker   podcast.FeedChecker
	Cache     Invalidator
	Ledger    podcast.Ledger
	Notifier  podcast.Notifier
	Clock     podcast.Clock
	IDs       podcast.IDGenerator
	Logger    *zap.Logger
}

// Result describes a persisted submission.
type Result struct {
	ID       string
	Filename string
	Range    string
	Record   podcast.Record
}

// Service runs submissions synchronously.
type Service struct {
	deps   Deps
	logger *zap.Logger
}

// New validates deps and returns a Service.
func New(deps Deps) (*Service, error) {
	if deps.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if deps.Namer == nil {
		return nil, fmt.Errorf("namer is required")
	}
	if deps.Appender == nil {
		return nil, fmt.Errorf("row appender is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, logger: logger}, nil
}

// ValidateFeedURL accepts absolute http and https URLs.
func ValidateFeedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", podcast.ErrInvalidFeedURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", podcast.ErrInvalidFeedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) url", podcast.ErrInvalidFeedURL, raw)
	}
	return u.String(), nil
}

// Submit processes feedURL and persists the record. A failure after the
// record file is created leaves that file in place.
func (s *Service) Submit(ctx context.Context, feedURL string) (res Result, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "submission.Submit")
	label := ResultOK
	defer func() {
		metrics.ObserveSubmission(label)
		span.SetAttributes(attribute.String("submission.result", label))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, label)
		}
		span.End()
	}()

	feedURL, err = ValidateFeedURL(feedURL)
	if err != nil {
		label = ResultInvalidURL
		return Result{}, err
	}
	logger := s.logger.With(zap.String("feed_url", feedURL))

	if s.deps.Checker != nil {
		sum, checkErr := s.deps.Checker.Check(ctx, feedURL)
		if checkErr != nil {
			label = ResultFeedCheck
			return Result{}, checkErr
		}
		logger.Info("feed check passed", zap.String("feed_title", sum.Title), zap.Int("items", sum.Items))
	}

	rec, err := s.deps.Processor.ProcessFeed(ctx, feedURL)
	if err != nil {
		label = ResultProcessing
		return Result{}, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	data, err := rec.JSON()
	if err != nil {
		label = ResultInvalidData
		return Result{}, err
	}

	name, err := s.deps.Namer.Create(ctx, data)
	if err != nil {
		label = ResultStoreError
		return Result{}, fmt.Errorf("store record: %w", err)
	}
	logger = logger.With(zap.String("filename", name))

	updated, err := s.deps.Appender.Append(ctx, podcast.Row{Filename: name, Value: string(data)})
	if err != nil {
		label = ResultSheetError
		logger.Error("record stored locally but not mirrored", zap.Error(err))
		return Result{Filename: name, Record: rec}, fmt.Errorf("append spreadsheet row: %w", err)
	}
	if s.deps.Cache != nil {
		s.deps.Cache.Invalidate()
	}

	id, err := s.deps.IDs.NewID()
	if err != nil {
		logger.Warn("generate submission id", zap.Error(err))
	}
	res = Result{ID: id, Filename: name, Range: updated, Record: rec}
	now := s.deps.Clock.Now()
	s.record(ctx, logger, podcast.Submission{
		ID:           id,
		FeedURL:      feedURL,
		Filename:     name,
		PodcastTitle: rec.Title(),
		SubmittedAt:  now,
	})
	s.notify(ctx, logger, podcast.AddedEvent{
		SubmissionID: id,
		FeedURL:      feedURL,
		Filename:     name,
		PodcastTitle: rec.Title(),
		EpisodeTitle: rec.Details.EpisodeTitle,
		AddedAt:      now,
	})

	logger.Info("submission stored", zap.String("podcast_title", rec.Title()), zap.String("range", updated))
	return res, nil
}

func (s *Service) record(ctx context.Context, logger *zap.Logger, sub podcast.Submission) {
	if s.deps.Ledger == nil || sub.ID == "" {
		return
	}
	if err := s.deps.Ledger.Record(ctx, sub); err != nil {
		logger.Warn("record submission in ledger", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, logger *zap.Logger, event podcast.AddedEvent) {
	if s.deps.Notifier == nil {
		return
	}
	msgID, err := s.deps.Notifier.Publish(ctx, event)
	if err != nil {
		logger.Warn("publish record added", zap.Error(err))
		return
	}
	logger.Debug("published record added", zap.String("message_id", msgID))
}
