package converterapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
	"github.com/kirillkom/document-converter/internal/infrastructure/resilience"
)

const (
	DefaultConvertPath = "/api/v1/convert"
	LegacyConvertPath  = "/converter"

	healthPath  = "/api/v1/health"
	formatsPath = "/api/v1/formats"

	maxResponseBytes = 256 << 20
)

// FormFields names the multipart fields of a conversion request.
type FormFields struct {
	File   string
	Target string
}

var (
	DefaultFields = FormFields{File: "file", Target: "target_format"}
	LegacyFields  = FormFields{File: "arquivo", Target: "formato_destino"}
)

// Client talks to a convertd-compatible conversion endpoint.
type Client struct {
	baseURL     string
	convertPath string
	fields      FormFields
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Option func(*Client)

func WithConvertPath(path string) Option {
	return func(c *Client) {
		if p := strings.TrimSpace(path); p != "" {
			if !strings.HasPrefix(p, "/") {
				p = "/" + p
			}
			c.convertPath = p
		}
	}
}

// WithLegacyForm targets the older /converter route and its field names.
func WithLegacyForm() Option {
	return func(c *Client) {
		c.convertPath = LegacyConvertPath
		c.fields = LegacyFields
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithExecutor routes requests through retry and circuit breaking.
func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		convertPath: DefaultConvertPath,
		fields:      DefaultFields,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Convert uploads req.File once and returns the converted payload. Transport
// failures are wrapped with domain.ErrConnection; rejections by the server are
// returned as *domain.ServerError. The breaker still counts failures.
func (c *Client) Convert(
	ctx context.Context,
	req domain.ConversionRequest,
	onProgress ports.ProgressFunc,
) (*domain.ConvertedDocument, error) {
	if req.File == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "convert", fmt.Errorf("file is required"))
	}
	if onProgress == nil {
		onProgress = func(domain.ProgressEvent) {}
	}

	if c.executor == nil {
		return c.convertOnce(ctx, req, onProgress)
	}
	doc, err := resilience.Do(ctx, c.executor, "converter_api.convert", func(ctx context.Context) (*domain.ConvertedDocument, error) {
		return c.convertOnce(ctx, req, onProgress)
	}, classifyConvertError)
	return doc, wrapCircuitOpen("convert", err)
}

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.run(ctx, "converter_api.health", func(ctx context.Context) error {
		return c.getJSON(ctx, healthPath, &out, "health")
	})
	return out, err
}

type FormatsResponse struct {
	SupportedFormats []string            `json:"supported_formats"`
	Conversions      map[string][]string `json:"conversions"`
}

func (c *Client) Formats(ctx context.Context) (FormatsResponse, error) {
	var out FormatsResponse
	err := c.run(ctx, "converter_api.formats", func(ctx context.Context) error {
		return c.getJSON(ctx, formatsPath, &out, "formats")
	})
	return out, err
}

func (c *Client) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return wrapCircuitOpen(operation, c.executor.Execute(ctx, operation, fn, classifyConverterError))
}
