// Package source wraps each upstream news provider behind one fetch contract.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deusflow/nrfinsight/internal/article"
)

var (
	// ErrUnavailable covers transport failures and non-2xx upstream answers.
	ErrUnavailable = errors.New("source unavailable")
	// ErrParse means the upstream answered with a payload that could not be read.
	ErrParse = errors.New("source payload malformed")
)

// Adapter fetches raw items for a free-text query.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query string) ([]article.Raw, error)
}

// StatusError carries the upstream status of a non-2xx answer.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Source, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

const maxPayload = 4 << 20

// NewHTTPClient returns the client adapters use when none is given.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// get performs req and returns the body of a 2xx answer.
// Non-2xx answers return the body together with a *StatusError.
func get(client *http.Client, req *http.Request, name string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w: %v", name, ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &StatusError{Source: name, Code: resp.StatusCode}
	}
	return body, nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
