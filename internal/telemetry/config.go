package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	envEndpoint    = "WEXPR_OTEL_ENDPOINT"
	envInsecure    = "WEXPR_OTEL_INSECURE"
	envService     = "WEXPR_OTEL_SERVICE"
	envHeaders     = "WEXPR_OTEL_HEADERS"
	envDialTimeout = "WEXPR_OTEL_DIAL_TIMEOUT"

	defaultServiceName = "wexpr"
)

// Config selects the OTLP collector spans are exported to.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
	Headers     map[string]string
	DialTimeout time.Duration
}

// Enabled reports whether an exporter should be created.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// ConfigFromEnv reads the WEXPR_OTEL_* variables. Malformed values are
// ignored.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		Endpoint:    strings.TrimSpace(getenv(envEndpoint)),
		ServiceName: strings.TrimSpace(getenv(envService)),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv(envInsecure))); err == nil {
		cfg.Insecure = v
	}
	if d, err := time.ParseDuration(strings.TrimSpace(getenv(envDialTimeout))); err == nil {
		cfg.DialTimeout = d
	}
	if headers, err := ParseHeaders(getenv(envHeaders)); err == nil {
		cfg.Headers = headers
	}
	return cfg
}

// ParseHeaders parses "k=v, k2=v2". A blank string yields nil.
func ParseHeaders(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q", strings.TrimSpace(pair))
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}
