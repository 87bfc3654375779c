package domain

import (
	"bytes"
	"io"
	"os"
	"time"
)

// SourceFile is a candidate file selected for conversion.
type SourceFile struct {
	Name     string
	Size     int64
	MIMEType string
	open     func() (io.ReadCloser, error)
}

func NewSourceFile(name, mimeType string, size int64, open func() (io.ReadCloser, error)) *SourceFile {
	return &SourceFile{Name: name, Size: size, MIMEType: mimeType, open: open}
}

// NewSourceFileFromBytes wraps an in-memory blob.
func NewSourceFileFromBytes(name, mimeType string, data []byte) *SourceFile {
	return NewSourceFile(name, mimeType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// NewSourceFileFromPath stats a file on disk; the content is opened lazily.
func NewSourceFileFromPath(path, name, mimeType string) (*SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return NewSourceFile(name, mimeType, info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

func (f *SourceFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return f.open()
}

type ConversionRequest struct {
	File         *SourceFile
	TargetFormat Format
}

// ConvertedDocument is the payload returned by the conversion endpoint.
type ConvertedDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ConversionResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Payload     []byte `json:"-"`
}

type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadComplete  UploadStatus = "complete"
	UploadError     UploadStatus = "error"
)

type ProcessingStatus string

const (
	ProcessingIdle       ProcessingStatus = "idle"
	ProcessingProcessing ProcessingStatus = "processing"
	ProcessingComplete   ProcessingStatus = "complete"
	ProcessingError      ProcessingStatus = "error"
)

type DownloadStatus string

const (
	DownloadIdle     DownloadStatus = "idle"
	DownloadReady    DownloadStatus = "ready"
	DownloadComplete DownloadStatus = "complete"
)

type LoadingStates struct {
	Upload     UploadStatus     `json:"upload"`
	Processing ProcessingStatus `json:"processing"`
	Download   DownloadStatus   `json:"download"`
}

func IdleLoadingStates() LoadingStates {
	return LoadingStates{
		Upload:     UploadIdle,
		Processing: ProcessingIdle,
		Download:   DownloadIdle,
	}
}

// ConversionState is the view model exposed by the conversion controller.
type ConversionState struct {
	IsConverting  bool              `json:"is_converting"`
	Progress      int               `json:"progress"`
	Result        *ConversionResult `json:"result,omitempty"`
	LoadingStates LoadingStates     `json:"loading_states"`
}

type ProgressStage string

const (
	StageUpload   ProgressStage = "upload"
	StageProcess  ProgressStage = "processing"
	StageDownload ProgressStage = "download"
)

// ProgressEvent reports transferred bytes for one stage. Total is -1 when unknown.
type ProgressEvent struct {
	Stage ProgressStage
	Done  int64
	Total int64
}

type ConversionOutcome string

const (
	OutcomeSucceeded ConversionOutcome = "succeeded"
	OutcomeRejected  ConversionOutcome = "rejected"
	OutcomeFailed    ConversionOutcome = "failed"
)

// ConversionRecord is one handled conversion request as kept in history.
type ConversionRecord struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	SourceFormat Format            `json:"source_format,omitempty"`
	TargetFormat Format            `json:"target_format"`
	InputBytes   int64             `json:"input_bytes"`
	OutputBytes  int64             `json:"output_bytes"`
	Outcome      ConversionOutcome `json:"outcome"`
	ErrorMessage string            `json:"error_message,omitempty"`
	DurationMS   int64             `json:"duration_ms"`
	CreatedAt    time.Time         `json:"created_at"`
}
