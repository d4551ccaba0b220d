package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	curlHeaderFlag = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']*)'|"([^"]*)")`)
	curlCookieFlag = regexp.MustCompile(`(?:-b|--cookie)\s+(?:'([^']*)'|"([^"]*)")`)
)

// Headers the proxy recomputes per request.
var droppedHeaders = map[string]bool{
	"accept-encoding": true,
	"content-length":  true,
	"content-type":    true,
	"host":            true,
}

// BrowserHeaders is the request header bundle of a signed-in music.youtube.com session.
type BrowserHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ReadCurlFile parses a file holding a request copied from the browser with "Copy as cURL".
func ReadCurlFile(path string) (*BrowserHeaders, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurl(data)
}

// ParseCurl extracts headers and the session cookie from a cURL command.
// Header names are lower-cased. A cookie passed with -b wins over a cookie header.
func ParseCurl(data []byte) (*BrowserHeaders, error) {
	command := strings.ReplaceAll(string(data), "\\\n", " ")
	command = strings.ReplaceAll(command, "^\n", " ")

	h := &BrowserHeaders{Headers: map[string]string{}}
	for _, m := range curlHeaderFlag.FindAllStringSubmatch(command, -1) {
		name, value, ok := strings.Cut(m[1]+m[2], ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)

		switch {
		case name == "cookie":
			h.Cookie = value
		case droppedHeaders[name]:
		default:
			h.Headers[name] = value
		}
	}

	if m := curlCookieFlag.FindStringSubmatch(command); m != nil {
		h.Cookie = strings.TrimSpace(m[1] + m[2])
	}

	if h.Cookie == "" {
		return nil, fmt.Errorf("%w: no cookie in curl command (copy a request made while signed in)", ErrInvalidCredentials)
	}
	return h, nil
}

// WriteFile stores the bundle as a flat JSON object of header name to value, readable only by the owner.
func (h *BrowserHeaders) WriteFile(path string) error {
	out := make(map[string]string, len(h.Headers)+1)
	for k, v := range h.Headers {
		out[k] = v
	}
	out["cookie"] = h.Cookie

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create headers directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write headers file: %w", err)
	}
	return nil
}
