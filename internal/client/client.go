// Package client calls a running docconvert server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/docconvert/internal/core"
)

// DefaultTimeout is used by New when no http.Client is given. Conversions
// stream, so it bounds the whole exchange.
const DefaultTimeout = 5 * time.Minute

// Client converts documents through the HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a client for the server at baseURL.
// A nil httpClient gets a client with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse server URL: unsupported scheme %q", u.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// ConvertInput describes one conversion request.
type ConvertInput struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Format      string
	Download    bool
}

// ConvertOutput is a successful conversion. The caller must close Body.
type ConvertOutput struct {
	Body         io.ReadCloser
	ContentType  string
	Filename     string
	ConversionID string
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Action  string
	Detail  string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

// Convert streams in.Body to the server and returns the converted stream.
func (c *Client) Convert(ctx context.Context, in ConvertInput) (*ConvertOutput, error) {
	u := c.baseURL.JoinPath("convert", in.Format)
	q := url.Values{}
	if in.Download {
		q.Set("operation", string(core.OperationDownload))
	}
	if in.Filename != "" {
		q.Set("filename", in.Filename)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), in.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", in.ContentType)
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	return &ConvertOutput{
		Body:         resp.Body,
		ContentType:  resp.Header.Get("Content-Type"),
		Filename:     attachmentFilename(resp.Header.Get("Content-Disposition")),
		ConversionID: resp.Header.Get("X-Conversion-ID"),
	}, nil
}

// Formats lists the conversions the server supports as "FROM->TO" pairs.
func (c *Client) Formats(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath("api", "formats").String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get formats: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var body struct {
		Pairs []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode formats: %w", err)
	}
	pairs := make([]string, 0, len(body.Pairs))
	for _, p := range body.Pairs {
		pairs = append(pairs, p.From+"->"+p.To)
	}
	return pairs, nil
}

// decodeAPIError reads the JSON error body. Non-JSON bodies keep the status.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
		Action  string `json:"action"`
		Code    string `json:"code"`
		Detail  string `json:"detail"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Action = body.Action
		apiErr.Detail = body.Detail
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// attachmentFilename prefers filename* over filename.
func attachmentFilename(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
