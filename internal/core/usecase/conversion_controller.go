package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
	"github.com/kirillkom/document-converter/internal/core/validation"
)

const (
	uploadProgressEnd     = 30
	processingProgressEnd = 90
	completeProgress      = 100
)

var (
	errNoFile            = errors.New("no file selected")
	errNothingToDownload = errors.New("result has no downloadable payload")
)

// ConversionController drives one conversion at a time through
// upload -> processing -> ready|error and keeps the resulting view state.
type ConversionController struct {
	gateway     ports.ConversionGateway
	sink        ports.DownloadSink
	notifier    ports.Notifier
	maxFileSize int64

	mu         sync.Mutex
	state      domain.ConversionState
	generation uint64
	cancel     context.CancelFunc
	observers  map[int]func(domain.ConversionState)
	nextObsID  int
	seq        uint64

	// pubMu orders delivery; snapshots older than delivered are dropped.
	pubMu     sync.Mutex
	delivered uint64
}

type ControllerOption func(*ConversionController)

// WithMaxFileSize overrides the client-side upload limit.
func WithMaxFileSize(n int64) ControllerOption {
	return func(c *ConversionController) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

func NewConversionController(
	gateway ports.ConversionGateway,
	sink ports.DownloadSink,
	notifier ports.Notifier,
	opts ...ControllerOption,
) *ConversionController {
	c := &ConversionController{
		gateway:     gateway,
		sink:        sink,
		notifier:    notifier,
		maxFileSize: validation.MaxFileSize,
		state:       idleState(),
		observers:   make(map[int]func(domain.ConversionState)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive a copy of the state after every change.
// The returned function removes the subscription.
func (c *ConversionController) Subscribe(fn func(domain.ConversionState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *ConversionController) Snapshot() domain.ConversionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyState(c.state)
}

// ConvertDocument validates file, submits it and records the outcome. Once the
// request is accepted every path resolves to a ConversionResult; an error is
// returned only when no file was given or another conversion is in flight.
func (c *ConversionController) ConvertDocument(
	ctx context.Context,
	file *domain.SourceFile,
	target domain.Format,
) (domain.ConversionResult, error) {
	if file == nil {
		c.notifier.Warning("No file", "Please select a file to convert.")
		return domain.ConversionResult{}, domain.WrapError(domain.ErrInvalidInput, "convert document", errNoFile)
	}

	gen, runCtx, err := c.begin(ctx)
	if err != nil {
		c.notifier.Warning("Busy", "A conversion is already in progress.")
		return domain.ConversionResult{}, err
	}
	defer c.finish(gen)

	if _, ok := domain.ParseFormat(string(target)); !ok {
		msg := fmt.Sprintf("Unsupported target format %q.", target)
		return c.rejectInput(gen, msg), nil
	}
	if check := validation.ValidateFileWithLimit(file, c.maxFileSize); !check.IsValid {
		return c.rejectInput(gen, check.Message), nil
	}

	c.notifier.Info("Processing", "Starting conversion...")

	doc, err := c.gateway.Convert(runCtx, domain.ConversionRequest{
		File:         file,
		TargetFormat: target,
	}, c.progressFunc(gen))
	if err != nil {
		return c.fail(gen, err), nil
	}

	filename := doc.Filename
	if strings.TrimSpace(filename) == "" {
		filename = strings.TrimSuffix(file.Name, filepath.Ext(file.Name)) + target.Extension()
	}
	result := domain.ConversionResult{
		Success:     true,
		Message:     "Conversion completed successfully!",
		Filename:    validation.SanitizeFilename(filename),
		ContentType: doc.ContentType,
		Payload:     doc.Data,
	}

	current := c.update(gen, func(s *domain.ConversionState) {
		s.Progress = completeProgress
		s.LoadingStates = domain.LoadingStates{
			Upload:     domain.UploadComplete,
			Processing: domain.ProcessingComplete,
			Download:   domain.DownloadReady,
		}
		s.Result = &result
	})
	if current {
		c.notifier.Success("Conversion complete", "Document converted successfully!")
	}
	return result, nil
}

// ResetState aborts any in-flight conversion and returns to idle. Updates from
// the aborted conversion are discarded.
func (c *ConversionController) ResetState() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.state = idleState()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// DownloadFile saves a successful result through the download sink and marks
// the download as complete.
func (c *ConversionController) DownloadFile(ctx context.Context, result domain.ConversionResult) (string, error) {
	if !result.Success || result.Filename == "" || len(result.Payload) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "download file", errNothingToDownload)
	}

	path, err := c.sink.Save(ctx, validation.SanitizeFilename(result.Filename), bytes.NewReader(result.Payload))
	if err != nil {
		c.notifier.Error("Download failed", err.Error())
		return "", fmt.Errorf("save download: %w", err)
	}

	c.mu.Lock()
	if c.state.LoadingStates.Download == domain.DownloadReady {
		c.state.LoadingStates.Download = domain.DownloadComplete
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	c.notifier.Success("File saved", "Download started: "+path)
	return path, nil
}

func (c *ConversionController) begin(ctx context.Context) (uint64, context.Context, error) {
	c.mu.Lock()
	if c.state.IsConverting {
		c.mu.Unlock()
		return 0, nil, domain.ErrConversionInFlight
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.generation++
	c.cancel = cancel
	c.state = domain.ConversionState{
		IsConverting: true,
		Progress:     0,
		LoadingStates: domain.LoadingStates{
			Upload:     domain.UploadUploading,
			Processing: domain.ProcessingIdle,
			Download:   domain.DownloadIdle,
		},
	}
	gen := c.generation
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return gen, runCtx, nil
}

func (c *ConversionController) finish(gen uint64) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.IsConverting = false
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// update applies fn only while gen is still the current conversion.
func (c *ConversionController) update(gen uint64, fn func(*domain.ConversionState)) bool {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return true
}

func (c *ConversionController) progressFunc(gen uint64) ports.ProgressFunc {
	return func(ev domain.ProgressEvent) {
		c.update(gen, func(s *domain.ConversionState) {
			switch ev.Stage {
			case domain.StageUpload:
				if ev.Total > 0 {
					advance(s, scale(ev.Done, ev.Total, 0, uploadProgressEnd))
				}
			case domain.StageProcess:
				s.LoadingStates.Upload = domain.UploadComplete
				s.LoadingStates.Processing = domain.ProcessingProcessing
				advance(s, uploadProgressEnd)
			case domain.StageDownload:
				if ev.Total > 0 {
					advance(s, scale(ev.Done, ev.Total, uploadProgressEnd, processingProgressEnd))
				}
			}
		})
	}
}

func (c *ConversionController) rejectInput(gen uint64, message string) domain.ConversionResult {
	result := domain.ConversionResult{Success: false, Message: message}
	c.update(gen, func(s *domain.ConversionState) {
		s.LoadingStates = domain.LoadingStates{
			Upload:     domain.UploadError,
			Processing: domain.ProcessingIdle,
			Download:   domain.DownloadIdle,
		}
		s.Result = &result
	})
	c.notifier.Error("Invalid file", message)
	return result
}

func (c *ConversionController) fail(gen uint64, err error) domain.ConversionResult {
	var (
		serverErr *domain.ServerError
		title     string
		message   string
	)

	switch {
	case errors.As(err, &serverErr):
		title = "Conversion error"
		if serverErr.StatusCode >= 200 && serverErr.StatusCode < 300 {
			message = serverErr.Reason()
		} else {
			message = fmt.Sprintf("Server error (HTTP %d): %s", serverErr.StatusCode, serverErr.Reason())
		}
	case domain.IsKind(err, domain.ErrConnection):
		title = "Connection error"
		message = "Connection error: could not reach the conversion server. Check that it is running."
	case errors.Is(err, context.Canceled):
		title = "Conversion cancelled"
		message = "Conversion cancelled."
	default:
		title = "Conversion error"
		message = "Conversion failed: " + err.Error()
	}

	result := domain.ConversionResult{Success: false, Message: message}
	current := c.update(gen, func(s *domain.ConversionState) {
		uploaded := s.LoadingStates.Upload == domain.UploadComplete
		switch {
		case serverErr != nil:
			s.LoadingStates.Upload = domain.UploadComplete
			s.LoadingStates.Processing = domain.ProcessingError
		case uploaded:
			s.LoadingStates.Processing = domain.ProcessingError
		default:
			s.LoadingStates.Upload = domain.UploadError
			s.LoadingStates.Processing = domain.ProcessingIdle
		}
		s.LoadingStates.Download = domain.DownloadIdle
		s.Result = &result
	})
	if current {
		c.notifier.Error(title, message)
	}
	return result
}

type stateSnapshot struct {
	seq       uint64
	state     domain.ConversionState
	observers []func(domain.ConversionState)
}

func (c *ConversionController) snapshotLocked() stateSnapshot {
	c.seq++
	observers := make([]func(domain.ConversionState), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	return stateSnapshot{seq: c.seq, state: copyState(c.state), observers: observers}
}

// publish delivers snapshots in the order they were taken. Observers must not
// call ConvertDocument, ResetState or DownloadFile.
func (c *ConversionController) publish(snap stateSnapshot) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if snap.seq <= c.delivered {
		return
	}
	c.delivered = snap.seq
	for _, fn := range snap.observers {
		fn(snap.state)
	}
}

func idleState() domain.ConversionState {
	return domain.ConversionState{LoadingStates: domain.IdleLoadingStates()}
}

func copyState(s domain.ConversionState) domain.ConversionState {
	out := s
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	return out
}

func advance(s *domain.ConversionState, progress int) {
	if progress > s.Progress {
		s.Progress = progress
	}
}

func scale(done, total int64, from, to int) int {
	if done > total {
		done = total
	}
	return from + int(done*int64(to-from)/total)
}
