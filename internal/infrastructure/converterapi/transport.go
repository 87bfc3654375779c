package converterapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
)

var errResponseReceived = errors.New("response received before upload finished")

// envelope is the JSON body convertd uses for failures.
type envelope struct {
	Success *bool          `json:"success"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func (c *Client) convertOnce(
	ctx context.Context,
	req domain.ConversionRequest,
	onProgress ports.ProgressFunc,
) (*domain.ConvertedDocument, error) {
	src, err := req.File.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", req.File.Name, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	uploaded := make(chan struct{})

	go func() {
		defer close(uploaded)
		defer src.Close()

		body := &progressReader{r: src, total: req.File.Size, stage: domain.StageUpload, fn: onProgress}
		if err := c.writeForm(mw, req, body); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
		onProgress(domain.ProgressEvent{Stage: domain.StageProcess, Total: -1})
	}()

	// The writer goroutine must be done before returning so that no progress
	// event is delivered after the caller has seen the outcome.
	defer func() {
		_ = pr.CloseWithError(errResponseReceived)
		<-uploaded
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.convertPath, pr)
	if err != nil {
		return nil, fmt.Errorf("create convert request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrConnection, "convert request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, decodeServerError(resp)
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		return nil, decodeUnexpectedJSON(resp)
	}

	body := &progressReader{r: resp.Body, total: resp.ContentLength, stage: domain.StageDownload, fn: onProgress}
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrConnection, "read convert response", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("convert response exceeds %d bytes", maxResponseBytes)
	}

	return &domain.ConvertedDocument{
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (c *Client) writeForm(mw *multipart.Writer, req domain.ConversionRequest, body io.Reader) error {
	if err := mw.WriteField(c.fields.Target, string(req.TargetFormat)); err != nil {
		return fmt.Errorf("write target field: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     c.fields.File,
		"filename": filepath.Base(req.File.Name),
	}))
	contentType := req.File.MIMEType
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	return mw.Close()
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.WrapError(domain.ErrConnection, operation+" request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeServerError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	serverErr := &domain.ServerError{
		StatusCode:     resp.StatusCode,
		Status:         resp.Status,
		RetryAfterHint: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Error != "" || env.Message != "") {
		serverErr.Message = firstNonEmpty(env.Error, env.Message)
		serverErr.Details = env.Details
		return serverErr
	}
	serverErr.Message = strings.TrimSpace(string(body))
	return serverErr
}

// decodeUnexpectedJSON handles a 2xx JSON body where a document was expected.
func decodeUnexpectedJSON(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode convert response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return &domain.ServerError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    firstNonEmpty(env.Error, env.Message, "Conversion error"),
			Details:    env.Details,
		}
	}
	return fmt.Errorf("convert response: expected a document, got json")
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" {
		return ""
	}
	return filepath.Base(name)
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	stage domain.ProgressStage
	fn    ports.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(domain.ProgressEvent{Stage: p.stage, Done: p.done, Total: p.total})
	}
	return n, err
}
