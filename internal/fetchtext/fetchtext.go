// Package fetchtext implements C6: fetching a Url directive's target and
// validating that the response looks like text we can safely inline.
package fetchtext

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// UnsupportedContentTypeError reports a response whose content-type (and
// sniffed body) do not look like acceptable text.
type UnsupportedContentTypeError struct {
	URL         string
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("fetching %s: unsupported content type %q", e.URL, e.ContentType)
}

// HTTPStatusError reports a >=400 response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
}

var acceptableBaseTypes = map[string]bool{
	"text/markdown":    true,
	"text/x-markdown":  true,
	"text/plain":       true,
	"application/json": true,
	"application/x-json": true,
	"text/json":        true,
}

// Client is the shared HTTP client used for all fetches; tests may
// substitute http.DefaultClient's Transport to stub responses.
var Client = http.DefaultClient

// Fetch performs a GET against url and returns its trimmed body, after
// validating (by header or content sniffing) that it looks like text
// suitable for inlining into a document.
func Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/markdown, application/json, text/plain, */*")

	resp, err := Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !looksAcceptable(url, contentType, body) {
		return "", &UnsupportedContentTypeError{URL: url, ContentType: contentType}
	}

	return strings.TrimSpace(string(body)), nil
}

// genericContentTypes are treated the same as a missing content-type:
// too vague to trust, so sniffing decides instead.
var genericContentTypes = map[string]bool{
	"":                          true,
	"application/octet-stream":  true,
	"binary/octet-stream":       true,
}

func looksAcceptable(url, contentType string, body []byte) bool {
	base := ""
	if contentType != "" {
		if b, _, err := mime.ParseMediaType(contentType); err == nil {
			base = b
		}
	}
	if acceptableBaseTypes[base] {
		return true
	}
	if genericContentTypes[base] {
		return looksLikeJSON(body) || looksLikeMarkdown(url, body)
	}
	return false
}

func looksLikeJSON(body []byte) bool {
	var v any
	return json.Unmarshal(body, &v) == nil
}

func looksLikeMarkdown(url string, body []byte) bool {
	lower := strings.ToLower(url)
	if strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown") || strings.HasSuffix(lower, ".json") {
		return true
	}
	s := string(body)
	return strings.HasPrefix(s, "#") ||
		strings.HasPrefix(s, "\n- ") ||
		strings.HasPrefix(s, "\n* ") ||
		strings.HasPrefix(s, "\n#") ||
		strings.Contains(s, "```")
}
