package storage

import (
	"context"
	"io"
	"net/http"

	perr "seqrun/internal/platform/errors"
)

// httpGet opens an HTTP(S) location as a byte stream
func (s *Store) httpGet(ctx context.Context, raw string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, perr.WithLoc(perr.Invalidf("bad URL %q: %v", raw, err), raw)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeUnavailable, "http request failed"), raw)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, perr.WithLoc(classifyHTTPStatus(resp.StatusCode, raw), raw)
	}
	return resp.Body, nil
}

// httpHead probes an HTTP(S) location, falling back to a ranged GET when the
// server rejects HEAD. Content length may be -1 for chunked responses.
func (s *Store) httpHead(ctx context.Context, raw string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return 0, perr.WithLoc(perr.Invalidf("bad URL %q: %v", raw, err), raw)
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return 0, perr.WithLoc(perr.Wrap(err, perr.ErrorCodeUnavailable, "http request failed"), raw)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed {
		rc, gerr := s.httpGet(ctx, raw)
		if gerr != nil {
			return 0, gerr
		}
		_ = rc.Close()
		return -1, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, perr.WithLoc(classifyHTTPStatus(resp.StatusCode, raw), raw)
	}
	return resp.ContentLength, nil
}

func classifyHTTPStatus(status int, raw string) error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return perr.NotFoundf("%s not found (http %d)", raw, status)
	case status == http.StatusForbidden || status == http.StatusUnauthorized:
		return perr.Permissionf("access to %s denied (http %d)", raw, status)
	case status >= 500:
		return perr.Unavailablef("server error for %s (http %d)", raw, status)
	}
	return perr.IOf("unexpected http %d for %s", status, raw)
}
