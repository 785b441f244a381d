package openaicompat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gremium-dev/gremium/pkg/provider"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into a
// classified provider.Error. It attempts to parse the response body as a
// ChatErrorResponse to extract a descriptive message.
func MapHTTPError(resp *http.Response) *provider.Error {
	message := ExtractErrorMessage(resp.Body)

	switch provider.ClassifyStatus(resp.StatusCode) {
	case provider.KindAuth:
		if message == "" {
			message = "backend rejected credentials"
		}
		return provider.NewAuthError(resp.StatusCode, message)

	case provider.KindRateLimited:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		return provider.NewRateLimitError(resp.StatusCode, message)

	case provider.KindTimeout:
		if message == "" {
			message = fmt.Sprintf("backend timed out (HTTP %d)", resp.StatusCode)
		}
		return &provider.Error{Kind: provider.KindTimeout, Status: resp.StatusCode, Message: message}

	default:
		if message == "" {
			message = fmt.Sprintf("backend error (HTTP %d)", resp.StatusCode)
		}
		return provider.NewUpstreamError(resp.StatusCode, message)
	}
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into a classified provider.Error.
func MapNetworkError(err error) *provider.Error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return provider.NewTimeoutError(err.Error())
	}
	return provider.NewUpstreamError(0, fmt.Sprintf("backend connection error: %s", err.Error()))
}

// ExtractErrorMessage tries to parse the response body as a ChatErrorResponse
// and returns the error message if found.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
