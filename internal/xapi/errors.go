package xapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dghubble/go-twitter/twitter"

	"github.com/mikequentel/autoshare/internal/model"
)

// APIError is a failed call to X: a non-2xx answer, or a transport failure
// when StatusCode is 0.
type APIError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// diagnoseHTTPError turns an error body in either the v2 problem shape or the
// v1.1 errors shape into one readable line.
func diagnoseHTTPError(resp *http.Response, body []byte, op string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s -> %d", op, resp.StatusCode)
	if lvl := resp.Header.Get("X-Access-Level"); lvl != "" {
		fmt.Fprintf(&sb, " (access level %s)", lvl)
	}

	var v2 model.V2Problem
	if json.Unmarshal(body, &v2) == nil && (v2.Title != "" || v2.Detail != "") {
		fmt.Fprintf(&sb, ": %s", v2.Title)
		if v2.Detail != "" {
			fmt.Fprintf(&sb, " - %s", v2.Detail)
		}
		return sb.String()
	}

	var v1 model.V1Errors
	if json.Unmarshal(body, &v1) == nil && len(v1.Errors) > 0 {
		for i, e := range v1.Errors {
			if i > 0 {
				sb.WriteString(";")
			}
			fmt.Fprintf(&sb, " [%d] %s", e.Code, e.Message)
		}
		return sb.String()
	}

	if raw := strings.TrimSpace(string(body)); raw != "" {
		fmt.Fprintf(&sb, ": %s", raw)
	}
	return sb.String()
}

// describeTwitterError formats what go-twitter decoded from a failed call.
func describeTwitterError(resp *http.Response, err error) string {
	var apiErr twitter.APIError
	if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
		parts := make([]string, len(apiErr.Errors))
		for i, e := range apiErr.Errors {
			parts[i] = fmt.Sprintf("[%d] %s", e.Code, e.Message)
		}
		return strings.Join(parts, "; ")
	}
	if err != nil {
		return fmt.Sprintf("%s (%v)", resp.Status, err)
	}
	return resp.Status
}
