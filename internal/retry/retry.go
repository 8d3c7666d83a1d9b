package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// calculateDelay computes the delay for the given attempt using exponential backoff
func (c Config) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Checker determines whether an attempt outcome should trigger a retry
type Checker func(statusCode int, err error) bool

// DefaultChecker retries network errors, rate limits and server-side failures.
// Client errors (auth, bad request) are never retried.
func DefaultChecker(statusCode int, err error) bool {
	if err != nil {
		return true
	}
	return statusCode == 429 || statusCode >= 500
}

// Logger defines a function for logging retry attempts
type Logger func(message string, args ...interface{})

// Options configures retry behavior
type Options struct {
	Config  Config
	Checker Checker
	Logger  Logger
	APIName string
}

// Attempt performs one request and reports its HTTP status and response body
type Attempt func(attempt int) (statusCode int, body []byte, err error)

// Do runs fn until it succeeds with a 2xx status, a non-retryable outcome
// occurs, or the retry budget is exhausted. The successful response body is
// returned.
func Do(ctx context.Context, opts Options, fn Attempt) ([]byte, error) {
	checker := opts.Checker
	if checker == nil {
		checker = DefaultChecker
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error

	for attempt := 0; attempt <= opts.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := opts.Config.calculateDelay(attempt - 1)
			if opts.Logger != nil {
				opts.Logger("%s API retry attempt %d/%d after %v delay", opts.APIName, attempt+1, opts.Config.MaxRetries+1, delay)
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		statusCode, body, err := fn(attempt)
		lastStatus = statusCode
		lastBody = body
		lastErr = err

		if err == nil && statusCode >= 200 && statusCode < 300 {
			if attempt > 0 && opts.Logger != nil {
				opts.Logger("%s API request succeeded on attempt %d/%d", opts.APIName, attempt+1, opts.Config.MaxRetries+1)
			}
			return body, nil
		}

		if checker(statusCode, err) && attempt < opts.Config.MaxRetries {
			if opts.Logger != nil {
				if err != nil {
					opts.Logger("%s API network error (attempt %d/%d): %v", opts.APIName, attempt+1, opts.Config.MaxRetries+1, err)
				} else {
					opts.Logger("%s API retryable error (attempt %d/%d): status %d", opts.APIName, attempt+1, opts.Config.MaxRetries+1, statusCode)
				}
			}
			continue
		}

		// Non-retryable outcome, stop immediately
		if err != nil {
			return nil, err
		}
		return nil, &HTTPError{APIName: opts.APIName, StatusCode: statusCode, Body: body}
	}

	if lastErr != nil {
		return nil, &ExhaustedError{APIName: opts.APIName, MaxAttempts: opts.Config.MaxRetries + 1, LastErr: lastErr}
	}
	return nil, &ExhaustedError{
		APIName:        opts.APIName,
		MaxAttempts:    opts.Config.MaxRetries + 1,
		LastStatusCode: lastStatus,
		LastResponse:   lastBody,
	}
}

// HTTPError represents a non-retryable HTTP failure, with the raw response
// body preserved for diagnosis
type HTTPError struct {
	APIName    string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.APIName, e.StatusCode)
}

// ExhaustedError represents an error when all retry attempts have been exhausted
type ExhaustedError struct {
	APIName        string
	MaxAttempts    int
	LastStatusCode int
	LastResponse   []byte
	LastErr        error
}

func (e *ExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("retry attempts exhausted for %s API: %v", e.APIName, e.LastErr)
	}
	return fmt.Sprintf("retry attempts exhausted for %s API (last status %d)", e.APIName, e.LastStatusCode)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}
