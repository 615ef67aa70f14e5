package observability

import (
	"fmt"
	"net/url"
	"strings"
)

// signalURL appends the OTLP signal path (/v1/traces, /v1/metrics) to an
// HTTP endpoint unless it already ends with it. Query and fragment survive.
func signalURL(endpoint, signal string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	suffix := "/" + strings.Trim(strings.TrimSpace(signal), "/")
	p := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(p, suffix) {
		p += suffix
	}
	u.Path = p
	return u.String(), nil
}

// grpcTarget turns an endpoint into host:port and reports whether the
// connection is plaintext. A bare host:port is plaintext.
func grpcTarget(raw string) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}
	if !strings.Contains(endpoint, "://") {
		if !strings.Contains(endpoint, ":") {
			return "", false, fmt.Errorf("endpoint %q should be host:port", endpoint)
		}
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}
	switch u.Scheme {
	case "http", "grpc":
		return u.Host, true, nil
	case "https", "grpcs":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
