package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

// DocumentConverter is the inbound contract of the client-side conversion workflow.
type DocumentConverter interface {
	ConvertDocument(ctx context.Context, file *domain.SourceFile, target domain.Format) (domain.ConversionResult, error)
	DownloadFile(ctx context.Context, result domain.ConversionResult) (string, error)
	ResetState()
	Snapshot() domain.ConversionState
}

// ConvertInput is an upload received by the conversion endpoint.
type ConvertInput struct {
	Filename     string
	MIMEType     string
	TargetFormat domain.Format
	Body         io.Reader
}

// ConversionService is the inbound contract of the conversion endpoint.
type ConversionService interface {
	Convert(ctx context.Context, in ConvertInput) (*domain.ConvertedDocument, error)
}

// FormatCatalog lists the conversions the engine can perform.
type FormatCatalog interface {
	Conversions() map[domain.Format][]domain.Format
}

// ConversionHistoryQuery lists recently handled conversions.
type ConversionHistoryQuery interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ConversionRecord, error)
}
