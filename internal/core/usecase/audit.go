package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// AuditedConversionService records every conversion handled by the wrapped
// service. History and event failures are logged and never fail the request.
type AuditedConversionService struct {
	next    ports.ConversionService
	history ports.ConversionHistory
	events  ports.ConversionEventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

func NewAuditedConversionService(
	next ports.ConversionService,
	history ports.ConversionHistory,
	events ports.ConversionEventPublisher,
	logger *slog.Logger,
) *AuditedConversionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditedConversionService{
		next:    next,
		history: history,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *AuditedConversionService) Convert(ctx context.Context, in ports.ConvertInput) (*domain.ConvertedDocument, error) {
	started := s.now()
	counter := &countingReader{r: in.Body}
	if in.Body != nil {
		in.Body = counter
	}

	doc, err := s.next.Convert(ctx, in)

	record := domain.ConversionRecord{
		ID:           uuid.NewString(),
		Filename:     in.Filename,
		TargetFormat: in.TargetFormat,
		InputBytes:   counter.n,
		Outcome:      outcomeOf(err),
		DurationMS:   s.now().Sub(started).Milliseconds(),
		CreatedAt:    started.UTC(),
	}
	if source, ok := domain.FormatForExtension(domain.FileExtension(in.Filename)); ok {
		record.SourceFormat = source
	}
	if doc != nil {
		record.OutputBytes = int64(len(doc.Data))
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	s.audit(context.WithoutCancel(ctx), record)

	return doc, err
}

// ListRecent returns the newest history entries first.
func (s *AuditedConversionService) ListRecent(ctx context.Context, limit int) ([]domain.ConversionRecord, error) {
	if s.history == nil {
		return []domain.ConversionRecord{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.history.ListRecentConversions(ctx, limit)
}

func (s *AuditedConversionService) audit(ctx context.Context, record domain.ConversionRecord) {
	if s.history != nil {
		if err := s.history.RecordConversion(ctx, record); err != nil {
			s.logger.Warn("conversion_history_failed", "conversion_id", record.ID, "error", err)
		}
	}
	if s.events != nil {
		if err := s.events.PublishConversionHandled(ctx, record); err != nil {
			s.logger.Warn("conversion_event_failed", "conversion_id", record.ID, "error", err)
		}
	}
}

func outcomeOf(err error) domain.ConversionOutcome {
	switch {
	case err == nil:
		return domain.OutcomeSucceeded
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrUnsupportedFormat):
		return domain.OutcomeRejected
	default:
		return domain.OutcomeFailed
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
