package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

// ProgressFunc receives transfer progress while a conversion is in flight.
type ProgressFunc func(domain.ProgressEvent)

// ConversionGateway submits a document to the remote conversion endpoint.
type ConversionGateway interface {
	Convert(ctx context.Context, req domain.ConversionRequest, onProgress ProgressFunc) (*domain.ConvertedDocument, error)
}

// DownloadSink materializes a converted document locally and returns where it went.
type DownloadSink interface {
	Save(ctx context.Context, filename string, data io.Reader) (string, error)
}

// Notifier surfaces transient user-facing messages.
type Notifier interface {
	Info(title, message string)
	Success(title, message string)
	Warning(title, message string)
	Error(title, message string)
}

// DocumentReader parses one source format into the neutral document model.
type DocumentReader interface {
	Format() domain.Format
	Read(ctx context.Context, data []byte) (*domain.Document, error)
}

// DocumentWriter renders the neutral document model into one target format.
type DocumentWriter interface {
	Format() domain.Format
	Write(ctx context.Context, doc *domain.Document, w io.Writer) error
}

// ConversionEngine turns source bytes into target bytes.
type ConversionEngine interface {
	Convert(ctx context.Context, source domain.Format, data []byte, target domain.Format) ([]byte, error)
}

// ResultCache keeps recently converted payloads.
type ResultCache interface {
	Get(key string) ([]byte, bool)
	Add(key string, value []byte)
}

// ConversionHistory persists handled conversion requests.
type ConversionHistory interface {
	RecordConversion(ctx context.Context, record domain.ConversionRecord) error
	ListRecentConversions(ctx context.Context, limit int) ([]domain.ConversionRecord, error)
}

// ConversionEventPublisher announces handled conversions to other services.
type ConversionEventPublisher interface {
	PublishConversionHandled(ctx context.Context, record domain.ConversionRecord) error
}
