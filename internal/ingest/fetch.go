package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/amrdc/awsapi/internal/constants"
)

// maxBody bounds a single feed download.
const maxBody = 256 << 20

// ErrBodyTooLarge is returned when a feed document exceeds the download cap.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

const userAgent = "aws-ingest/" + constants.Version

// RetryConfig shapes the exponential backoff around each download.
type RetryConfig struct {
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	MaxElapsedTime    time.Duration
	PerAttemptTimeout time.Duration
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.InitialInterval
	if bo.InitialInterval <= 0 {
		bo.InitialInterval = time.Second
	}
	bo.MaxInterval = c.MaxInterval
	if bo.MaxInterval <= 0 {
		bo.MaxInterval = 30 * time.Second
	}
	if c.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = c.MaxElapsedTime
	}
	return backoff.WithContext(bo, ctx)
}

// Fetcher downloads feed documents, retrying transient failures.
type Fetcher struct {
	client *http.Client
	retry   RetryConfig
	logger  *zap.SugaredLogger
	maxBody int64
}

// NewFetcher returns a fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, retry RetryConfig, logger *zap.SugaredLogger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fetcher{client: client, retry: retry, logger: logger, maxBody: maxBody}
}

// StatusError is a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Get returns the body of url. 4xx responses other than 429 are not retried.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempts := 0

	op := func() error {
		attempts++
		actx := ctx
		if t := f.retry.PerAttemptTimeout; t > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{URL: url, Status: resp.StatusCode}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(serr)
			}
			return serr
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
		if err != nil {
			return err
		}
		if int64(len(b)) > f.maxBody {
			return backoff.Permanent(fmt.Errorf("GET %s: %w (%d bytes)", url, ErrBodyTooLarge, f.maxBody))
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		f.logger.Debugw("retrying download", "url", url, "attempt", attempts, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, f.retry.backOff(ctx), notify); err != nil {
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			err = perr.Err
		}
		return nil, fmt.Errorf("downloading %s after %d attempt(s): %w", url, attempts, err)
	}
	return body, nil
}
