// Package drive is a thin Google Drive v3 client covering exactly what the
// reconciler needs: list one folder and stream one file. Every outbound call
// goes through a single retryDo gateway that enforces rate limiting, circuit
// breaking, retry with backoff, and structured request logging.
package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tszym/driveframe/internal/eventlog"
	"github.com/tszym/driveframe/internal/model"
)

const (
	// DefaultBaseURL is the Drive v3 REST endpoint. Overridable for tests.
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"

	listFields   = "nextPageToken,files(id,name,mimeType,modifiedTime,md5Checksum,size)"
	listPageSize = 1000
)

// Client talks to the Drive API with a bearer token supplied by the config.
// Credential acquisition (service accounts, OAuth flows) stays outside this
// process; the token is opaque here.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Token   string

	limiter *rateLimiter
	breaker *circuitBreaker
}

// NewClient returns a client with the courtesy rate limit (5 req/s, burst 10)
// and a circuit breaker that trips after 5 consecutive API-level failures and
// stays open for 60 seconds before probing recovery.
func NewClient(token string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		BaseURL: DefaultBaseURL,
		Token:   token,
		limiter: newRateLimiter(5.0, 10),
		breaker: newCircuitBreaker(5, 60*time.Second),
	}
}

// listResponse mirrors the files.list JSON payload. Drive serializes file
// sizes as strings.
type listResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		MimeType     string `json:"mimeType"`
		ModifiedTime string `json:"modifiedTime"`
		Md5Checksum  string `json:"md5Checksum"`
		Size         string `json:"size"`
	} `json:"files"`
}

// retryDo is the single gateway for every outbound Drive call.
//
// It enforces, in order:
//  1. Rate limiting  — token-bucket, 5 req/s, burst 10
//  2. Circuit breaker — rejects immediately when open; logs state transitions
//  3. HTTP execution  — with context cancellation
//  4. Retry on 429 / 5xx — exponential backoff (500ms → 30s), Retry-After respected
//  5. Error classification — permanent (401/403/404) vs transient (everything else)
//
// label is a short endpoint name used in log entries (e.g. "files.list").
// Caller is responsible for closing the returned response body.
func (c *Client) retryDo(ctx context.Context, label string, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxRetries = 4
	backoff := 500 * time.Millisecond

	for attempt := 0; ; attempt++ {
		waited, err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("rate limiter cancelled for %s: %w", label, err)
		}
		// Only log if we actually waited (> 1ms threshold avoids noise).
		if waited > time.Millisecond {
			eventlog.RateLimitWait(label, waited)
		}

		cbState, allowed := c.breaker.Allow()
		if !allowed {
			eventlog.CircuitRejected(label)
			return nil, fmt.Errorf("%w: %w (label: %s)", model.ErrRemoteTransient, ErrCircuitOpen, label)
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		start := time.Now()
		resp, err := c.HTTP.Do(req)
		duration := time.Since(start)

		if err != nil {
			// Network-level error: log but do NOT trip the circuit breaker.
			// Network hiccups are distinct from the API being overloaded.
			eventlog.Request(label, 0, duration, attempt, cbState.String(), err)
			return nil, fmt.Errorf("%w: %s: %w", model.ErrRemoteTransient, label, err)
		}

		isAPIError := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !isAPIError {
			prev := c.breaker.RecordSuccess()
			if prev != circuitClosed {
				eventlog.CircuitStateChange("circuit_closed", label, prev.String(), circuitClosed.String())
			}
			eventlog.Request(label, resp.StatusCode, duration, attempt, circuitClosed.String(), nil)
			if resp.StatusCode >= 400 {
				status := resp.Status
				resp.Body.Close()
				return nil, classifyStatus(label, resp.StatusCode, status)
			}
			return resp, nil
		}

		// API-level error: trip circuit breaker, log, then retry or give up.
		resp.Body.Close()
		newState := c.breaker.RecordFailure()
		if newState == circuitOpen && cbState != circuitOpen {
			eventlog.CircuitStateChange("circuit_opened", label, cbState.String(), newState.String())
		}
		apiErr := fmt.Errorf("HTTP %s", resp.Status)
		eventlog.Request(label, resp.StatusCode, duration, attempt, newState.String(), apiErr)

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: %s failed after %d attempts: %w", model.ErrRemoteTransient, label, attempt+1, apiErr)
		}

		wait := backoff
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, e := strconv.Atoi(ra); e == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// classifyStatus maps a non-retryable 4xx status onto the error taxonomy.
// Auth and permission failures are permanent: retrying the same pass cannot
// fix them, credentials are re-read externally before the next run.
func classifyStatus(label string, code int, status string) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: %s: HTTP %s", model.ErrRemotePermanent, label, status)
	default:
		return fmt.Errorf("%w: %s: HTTP %s", model.ErrRemoteTransient, label, status)
	}
}

// ListFolder returns descriptors for every object directly inside folderID,
// in the API's listing order. Trashed files are excluded by the query;
// sub-folder entries are returned as-is and skipped by the reconciler.
func (c *Client) ListFolder(ctx context.Context, folderID string) ([]model.RemoteFile, error) {
	var (
		files     []model.RemoteFile
		pageToken string
	)

	for {
		query := url.Values{}
		query.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
		query.Set("fields", listFields)
		query.Set("pageSize", strconv.Itoa(listPageSize))
		query.Set("supportsAllDrives", "true")
		query.Set("includeItemsFromAllDrives", "true")
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}
		rawQuery := query.Encode()

		do, err := c.retryDo(ctx, "files.list", func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/files", nil)
			if err != nil {
				return nil, err
			}
			req.URL.RawQuery = rawQuery
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		var obj listResponse
		err = json.NewDecoder(do.Body).Decode(&obj)
		do.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: files.list decode: %w", model.ErrRemoteTransient, err)
		}

		for _, f := range obj.Files {
			rf := model.RemoteFile{
				ID:       f.ID,
				Name:     f.Name,
				MimeType: f.MimeType,
			}
			if f.ModifiedTime != "" {
				if ts, parseErr := time.Parse(time.RFC3339, f.ModifiedTime); parseErr == nil {
					rf.ModifiedAt = ts
				}
			}
			if f.Size != "" {
				if n, parseErr := strconv.ParseInt(f.Size, 10, 64); parseErr == nil {
					rf.SizeBytes = n
				}
			}
			rf.Token = versionToken(f.Md5Checksum, f.ModifiedTime)
			files = append(files, rf)
		}

		pageToken = obj.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return files, nil
}

// Download streams the content of fileID. The caller owns the returned body
// and must close it.
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	do, err := c.retryDo(ctx, "files.get", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.BaseURL+"/files/"+url.PathEscape(fileID), nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = "alt=media&supportsAllDrives=true"
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	return do.Body, nil
}

// versionToken derives the opaque change token for a remote file: the md5
// checksum when the API provides one, otherwise the raw modifiedTime string.
// Tokens are only ever compared for equality.
func versionToken(md5, modifiedTime string) string {
	if strings.TrimSpace(md5) != "" {
		return md5
	}
	return modifiedTime
}
