// Package smugmug implements the OAuth1-signed HTTP client for the
// SmugMug v2 API: envelope unwrapping, pagination, retry, image upload
// and download, plus the remote tree scanner.
package smugmug

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // Content-MD5 is an integrity header required by the upload API
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	apiServer  = "https://api.smugmug.com"
	apiPrefix  = "api/v2"
	apiBaseURL = apiServer + "/" + apiPrefix

	// uploadBaseURL is a separate host; the API base URL rejects uploads.
	uploadBaseURL = "https://upload.smugmug.com/"

	// requestTimeout bounds every single HTTP request.
	requestTimeout = 10 * time.Second

	// maxRetries transient failures are retried with linearly increasing
	// delay: retry n sleeps n seconds.
	maxRetries = 3

	// pageSize is the service's maximum page size for list endpoints.
	pageSize = 100
)

// Credentials holds the pre-provisioned OAuth1 material.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// APIError is a non-2xx response from the service. 5xx responses are
// retried before one of these surfaces; 4xx responses surface directly.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smugmug: %s returned %d: %s", e.URL, e.StatusCode, e.Message)
}

// Retryable reports whether the error is worth retrying (server-side).
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Client is the transport layer: OAuth1 signing, standard headers,
// retry, and envelope unwrapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	uploadURL  string
	logger     *slog.Logger

	// sleepFunc waits between retries and for eventual-consistency
	// settles. Tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client whose requests are signed with the given
// OAuth1 credentials.
func NewClient(creds Credentials, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)

	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = requestTimeout

	return &Client{
		httpClient: httpClient,
		baseURL:    apiBaseURL,
		uploadURL:  uploadBaseURL,
		logger:     logger,
		sleepFunc:  sleepContext,
	}
}

// get issues a GET for a relative URI and returns the envelope's
// Response payload.
func (c *Client) get(ctx context.Context, relativeURI string, params url.Values) (json.RawMessage, error) {
	u := c.formatURL(relativeURI)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}

	return unwrapEnvelope(u, body)
}

// post issues a JSON POST for a relative URI and returns the envelope's
// Response payload.
func (c *Client) post(ctx context.Context, relativeURI string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("smugmug: encoding request body: %w", err)
	}

	u := c.formatURL(relativeURI)

	body, err := c.doRequest(ctx, http.MethodPost, u, data, http.Header{
		"Content-Type": []string{"application/json"},
	})
	if err != nil {
		return nil, err
	}

	return unwrapEnvelope(u, body)
}

// del issues a DELETE on an entity URI.
func (c *Client) del(ctx context.Context, relativeURI string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.formatURL(relativeURI), nil, nil)
	return err
}

// upload POSTs image bytes to the upload host as a multipart body with
// the X-Smug headers. The service reports failure through stat=="fail"
// even with HTTP 200, so the body is always inspected.
func (c *Client) upload(ctx context.Context, albumURI, filename string, data []byte, replaceImageURI string) error {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(filename, filename)
	if err != nil {
		return fmt.Errorf("smugmug: building upload body: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("smugmug: building upload body: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("smugmug: building upload body: %w", err)
	}

	sum := md5.Sum(data) //nolint:gosec // integrity header, not authentication

	header := http.Header{
		"Content-Type":        []string{w.FormDataContentType()},
		"X-Smug-AlbumUri":     []string{albumURI},
		"X-Smug-Title":        []string{filename},
		"X-Smug-Caption":      []string{filename},
		"X-Smug-ResponseType": []string{"JSON"},
		"X-Smug-Version":      []string{"v2"},
		"Content-MD5":         []string{hex.EncodeToString(sum[:])},
	}

	if replaceImageURI != "" {
		header.Set("X-Smug-ImageUri", replaceImageURI)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.uploadURL, buf.Bytes(), header)
	if err != nil {
		return err
	}

	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("smugmug: decoding upload response: %w", err)
	}

	if resp.Stat == "fail" {
		return fmt.Errorf("smugmug: upload of %s failed: %s", filename, resp.Message)
	}

	return nil
}

// download streams a URL to destPath via a temp file and atomic rename,
// so a crashed run is idempotent on retry. Returns the byte count.
func (c *Client) download(ctx context.Context, downloadURL, destPath string) (int64, error) {
	u := c.absoluteURL(downloadURL)
	tmpPath := destPath + ".tmp"

	var written int64

	attempt := 0

	for {
		n, err := c.downloadOnce(ctx, u, tmpPath)
		if err == nil {
			written = n
			break
		}

		if !c.shouldRetry(ctx, err, attempt) {
			return 0, err
		}

		attempt++
		if sleepErr := c.retrySleep(ctx, attempt, u, err); sleepErr != nil {
			return 0, sleepErr
		}
	}

	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("smugmug: replacing %s: %w", destPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("smugmug: renaming download: %w", err)
	}

	return written, nil
}

func (c *Client) downloadOnce(ctx context.Context, u, tmpPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("smugmug: creating download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{StatusCode: resp.StatusCode, URL: u, Message: string(msg)}
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("smugmug: creating temp file: %w", err)
	}

	n, copyErr := io.Copy(f, resp.Body)

	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}

	if copyErr != nil {
		return 0, fmt.Errorf("smugmug: streaming download: %w", copyErr)
	}

	return n, nil
}

// doRequest executes one logical request with the retry policy:
// transport errors and 5xx responses retry up to maxRetries with linear
// delay, 4xx responses surface immediately as *APIError.
func (c *Client) doRequest(ctx context.Context, method, u string, body []byte, header http.Header) ([]byte, error) {
	attempt := 0

	for {
		respBody, err := c.doOnce(ctx, method, u, body, header)
		if err == nil {
			return respBody, nil
		}

		if !c.shouldRetry(ctx, err, attempt) {
			return nil, err
		}

		attempt++
		if sleepErr := c.retrySleep(ctx, attempt, u, err); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, u string, body []byte, header http.Header) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("smugmug: creating request: %w", err)
	}

	// The service requires the www host header regardless of the API host.
	req.Host = "www.smugmug.com"
	req.Header.Set("Accept", "application/json")

	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smugmug: %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smugmug: reading response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: u, Message: string(respBody)}
	}

	return respBody, nil
}

// shouldRetry decides whether an attempt's failure is transient. API
// errors retry only for 5xx; everything else (transport-level) retries
// unless the context is already done.
func (c *Client) shouldRetry(ctx context.Context, err error, attempt int) bool {
	if attempt >= maxRetries || ctx.Err() != nil {
		return false
	}

	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Retryable()
	}

	return true
}

// retrySleep waits for the linear backoff of the given retry number.
func (c *Client) retrySleep(ctx context.Context, retry int, u string, cause error) error {
	delay := time.Duration(retry) * time.Second

	c.logger.Warn("smugmug: retrying request",
		slog.String("url", u),
		slog.Int("retry", retry),
		slog.Duration("delay", delay),
		slog.String("error", cause.Error()),
	)

	if err := c.sleepFunc(ctx, delay); err != nil {
		return fmt.Errorf("smugmug: request canceled: %w", err)
	}

	return nil
}

// paginate fetches a full list through the service's paging protocol:
// first request bare, then start (1-based) and count until Pages.Total
// items have accumulated.
func paginate[T any](ctx context.Context, c *Client, relativeURI, key string) ([]T, error) {
	var out []T

	total := -1

	for {
		var params url.Values
		if total >= 0 {
			params = url.Values{
				"start": []string{strconv.Itoa(len(out) + 1)},
				"count": []string{strconv.Itoa(pageSize)},
			}
		}

		raw, err := c.get(ctx, relativeURI, params)
		if err != nil {
			return nil, err
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("smugmug: decoding list response: %w", err)
		}

		var page []T
		if itemsRaw, ok := fields[key]; ok {
			if err := json.Unmarshal(itemsRaw, &page); err != nil {
				return nil, fmt.Errorf("smugmug: decoding %s items: %w", key, err)
			}
		}

		out = append(out, page...)

		if total < 0 {
			total = len(out)

			if pagesRaw, ok := fields["Pages"]; ok {
				var pages pagesInfo
				if err := json.Unmarshal(pagesRaw, &pages); err != nil {
					return nil, fmt.Errorf("smugmug: decoding Pages: %w", err)
				}

				total = pages.Total
			}
		}

		if len(out) >= total || len(page) == 0 {
			return out, nil
		}
	}
}

// formatURL resolves a relative API URI against the base URL, tolerating
// URIs that already carry the api/v2 prefix or a leading slash.
func (c *Client) formatURL(uri string) string {
	uri = strings.TrimPrefix(uri, "/")
	uri = strings.TrimPrefix(uri, apiPrefix+"/")

	return c.baseURL + "/" + uri
}

// absoluteURL passes through full URLs and resolves service-relative
// URIs against the base.
func (c *Client) absoluteURL(uri string) string {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}

	return c.formatURL(uri)
}

// unwrapEnvelope extracts the Response field every API payload is
// wrapped in.
func unwrapEnvelope(u string, body []byte) (json.RawMessage, error) {
	var envelope struct {
		Response json.RawMessage `json:"Response"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("smugmug: decoding envelope from %s: %w", u, err)
	}

	if envelope.Response == nil {
		return nil, fmt.Errorf("smugmug: response from %s has no Response field", u)
	}

	return envelope.Response, nil
}

// sleepContext waits for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
