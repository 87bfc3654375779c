package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/document-converter/internal/config"
	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
	"github.com/kirillkom/document-converter/internal/observability/metrics"
)

const (
	serviceName = "convertd"

	// multipartOverhead covers boundaries and form fields around the file.
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20

	rateClassConvert = "convert"
	rateClassDefault = "default"
)

var (
	fileFields   = []string{"file", "arquivo"}
	targetFields = []string{"target_format", "formato_destino"}
)

type Router struct {
	cfg       config.Config
	convertUC ports.ConversionService
	catalog   ports.FormatCatalog
	history   ports.ConversionHistoryQuery
	metrics   *metrics.HTTPServerMetrics
	limiter   *clientRateLimiter
}

type RouterOption func(*Router)

// WithHistory exposes recently handled conversions at /api/v1/conversions.
func WithHistory(history ports.ConversionHistoryQuery) RouterOption {
	return func(rt *Router) {
		rt.history = history
	}
}

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	convertUC ports.ConversionService,
	catalog ports.FormatCatalog,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		convertUC: convertUC,
		catalog:   catalog,
		limiter: newClientRateLimiter(map[string]RateLimitPolicy{
			rateClassConvert: {PerMinute: cfg.RateLimitConvertPerMinute, Burst: cfg.RateLimitConvertBurst},
			rateClassDefault: {PerMinute: cfg.RateLimitDefaultPerMinute, Burst: cfg.RateLimitDefaultBurst},
		}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.metrics != nil {
		rt.metrics.RegisterRateLimiterClients(rt.limiter.size)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/api/v1/health", rt.health)
	mux.HandleFunc("/api/v1/formats", rt.formats)
	if rt.history != nil {
		mux.HandleFunc("/api/v1/conversions", rt.conversions)
	}

	convert := bodyLimitMiddleware(http.HandlerFunc(rt.convert), rt.maxBodyBytes())
	convert = backpressureMiddleware(convert, rt.cfg.BackpressureMaxInFlight, time.Duration(rt.cfg.BackpressureWaitMillis)*time.Millisecond)
	mux.Handle("/api/v1/convert", convert)
	mux.Handle("/converter", convert)

	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.limiter, classifyRequest, rt.onRateLimited)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) maxBodyBytes() int64 {
	if rt.cfg.MaxUploadBytes <= 0 {
		return 0
	}
	return rt.cfg.MaxUploadBytes + multipartOverhead
}

func classifyRequest(r *http.Request) string {
	switch r.URL.Path {
	case "/api/v1/convert", "/converter":
		return rateClassConvert
	case "/health", "/api/v1/health", "/metrics":
		return ""
	default:
		return rateClassDefault
	}
}

func (rt *Router) onRateLimited(r *http.Request) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorEnvelope(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Version:   rt.cfg.AppVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type formatsResponse struct {
	SupportedFormats []domain.Format                   `json:"supported_formats"`
	Conversions      map[domain.Format][]domain.Format `json:"conversions"`
}

// formats lists, for each source, the targets other than the source itself.
func (rt *Router) formats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorEnvelope(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		return
	}

	conversions := make(map[domain.Format][]domain.Format)
	for source, targets := range rt.catalog.Conversions() {
		others := make([]domain.Format, 0, len(targets))
		for _, target := range targets {
			if target != source {
				others = append(others, target)
			}
		}
		conversions[source] = others
	}
	writeJSON(w, http.StatusOK, formatsResponse{
		SupportedFormats: domain.SupportedFormats,
		Conversions:      conversions,
	})
}

type conversionsResponse struct {
	Conversions []domain.ConversionRecord `json:"conversions"`
}

func (rt *Router) conversions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorEnvelope(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	records, err := rt.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionsResponse{Conversions: records})
}

func (rt *Router) convert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorEnvelope(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, err)
			return
		}
		writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "multipart form data is required", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	header := formFile(r.MultipartForm)
	if header == nil {
		writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "No file provided", nil)
		return
	}
	filename := rawFilename(header)
	if strings.TrimSpace(filename) == "" {
		writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "No file selected", nil)
		return
	}
	target := strings.TrimSpace(formValue(r.MultipartForm, targetFields))
	if target == "" {
		writeErrorEnvelope(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid or missing target format", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	source := strings.TrimPrefix(domain.FileExtension(filename), ".")
	start := time.Now()
	if rt.metrics != nil {
		rt.metrics.StartConversion()
	}

	doc, err := rt.convertUC.Convert(r.Context(), ports.ConvertInput{
		Filename:     filename,
		MIMEType:     header.Header.Get("Content-Type"),
		TargetFormat: domain.Format(strings.ToLower(target)),
		Body:         file,
	})
	rt.recordConversion(source, target, header.Size, start, err)
	if err != nil {
		slog.Warn("conversion_failed",
			"request_id", requestIDFromContext(r.Context()),
			"filename", filename,
			"target_format", target,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (rt *Router) recordConversion(source, target string, size int64, start time.Time, err error) {
	if rt.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case mapErrorToHTTPStatus(err) < 500:
		status = "rejected"
	default:
		status = "error"
	}
	if _, ok := domain.ParseFormat(target); !ok {
		target = "invalid"
	}
	if _, ok := domain.FormatForExtension("." + source); !ok {
		source = "other"
	}
	rt.metrics.FinishConversion(source, target, status, size, time.Since(start))
}

func formFile(form *multipart.Form) *multipart.FileHeader {
	for _, field := range fileFields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func formValue(form *multipart.Form, fields []string) string {
	for _, field := range fields {
		if values := form.Value[field]; len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

// rawFilename returns the filename as the client sent it. FileHeader.Filename
// has directory components stripped, which would hide traversal attempts
// from validation.
func rawFilename(header *multipart.FileHeader) string {
	if _, params, err := mime.ParseMediaType(header.Header.Get("Content-Disposition")); err == nil {
		if name, ok := params["filename"]; ok {
			return name
		}
	}
	return header.Filename
}

type errorEnvelope struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request_failed", "status", status, "error", err.Error())
	}
	writeErrorEnvelope(w, status, errorCode(err), errorMessage(err, status), errorDetails(err))
}

func writeErrorEnvelope(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, errorEnvelope{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
