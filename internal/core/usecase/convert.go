package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
	"github.com/kirillkom/document-converter/internal/core/validation"
)

const octetStream = "application/octet-stream"

var errNoUpload = errors.New("no file provided")

// ConvertDocumentUseCase validates an upload and converts it through the
// engine, reusing cached output for identical content and target.
type ConvertDocumentUseCase struct {
	engine         ports.ConversionEngine
	cache          ports.ResultCache
	maxUploadBytes int64
}

func NewConvertDocumentUseCase(
	engine ports.ConversionEngine,
	cache ports.ResultCache,
	maxUploadBytes int64,
) *ConvertDocumentUseCase {
	if maxUploadBytes <= 0 {
		maxUploadBytes = validation.MaxFileSize
	}
	return &ConvertDocumentUseCase{
		engine:         engine,
		cache:          cache,
		maxUploadBytes: maxUploadBytes,
	}
}

func (uc *ConvertDocumentUseCase) Convert(ctx context.Context, in ports.ConvertInput) (*domain.ConvertedDocument, error) {
	if in.Body == nil || strings.TrimSpace(in.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "convert", errNoUpload)
	}

	target, err := validation.ValidateFormat(string(in.TargetFormat))
	if err != nil {
		return nil, err
	}

	ext := domain.FileExtension(in.Filename)
	limit := validation.SizeLimitFor(ext, uc.maxUploadBytes)

	data, err := io.ReadAll(io.LimitReader(in.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// Generic clients send application/octet-stream for everything; the
	// content inspection below covers what the declared type would.
	declared := in.MIMEType
	if strings.EqualFold(strings.TrimSpace(declared), octetStream) {
		declared = ""
	}

	file := domain.NewSourceFileFromBytes(in.Filename, declared, data)
	if check := validation.ValidateFileWithLimit(file, limit); !check.IsValid {
		return nil, &domain.ValidationError{Result: check}
	}

	header := data
	if len(header) > validation.SniffLength {
		header = header[:validation.SniffLength]
	}
	if check := validation.InspectContent(header, ext); !check.IsValid {
		return nil, &domain.ValidationError{Result: check}
	}

	source, _ := domain.FormatForExtension(ext)
	key := cacheKey(data, target)

	out, ok := uc.lookup(key)
	if !ok {
		out, err = uc.engine.Convert(ctx, source, data, target)
		if err != nil {
			return nil, fmt.Errorf("convert %s to %s: %w", source, target, err)
		}
		if uc.cache != nil {
			uc.cache.Add(key, out)
		}
	}

	return &domain.ConvertedDocument{
		Filename:    outputFilename(in.Filename, target),
		ContentType: target.ContentType(),
		Data:        out,
	}, nil
}

func (uc *ConvertDocumentUseCase) lookup(key string) ([]byte, bool) {
	if uc.cache == nil {
		return nil, false
	}
	return uc.cache.Get(key)
}

func cacheKey(data []byte, target domain.Format) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ":" + string(target)
}

func outputFilename(name string, target domain.Format) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return validation.SanitizeFilename(stem + target.Extension())
}
