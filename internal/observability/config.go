// Package observability sets up OpenTelemetry tracing and metrics export.
package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/nova/internal/types"
)

const (
	defaultServiceName     = "nova"
	protocolHTTP           = "http/protobuf"
	protocolGRPC           = "grpc"
	resourceServiceNameKey = "service.name"
	defaultMetricInterval  = 60 * time.Second
)

// Config holds the resolved OpenTelemetry settings.
type Config struct {
	Enabled        bool
	ServiceName    string
	Endpoint       string
	Protocol       string
	Resource       map[string]string
	Sampler        string
	SamplerArg     float64
	MetricInterval time.Duration
}

// FromConfig resolves and validates telemetry settings from the root config.
func FromConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration provided")
	}
	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}
	c := &Config{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    strings.TrimSpace(cfg.OTelServiceName),
		Endpoint:       strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		Protocol:       cfg.OTelExporterOTLPProtocol,
		Resource:       attrs,
		Sampler:        strings.TrimSpace(cfg.OTelTracesSampler),
		SamplerArg:     cfg.OTelTracesSamplerArg,
		MetricInterval: cfg.OTelMetricInterval,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate fills defaults and checks that an enabled exporter can be built.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.Protocol = strings.ToLower(strings.TrimSpace(c.Protocol))
	if c.Protocol == "" {
		c.Protocol = protocolHTTP
	}
	if c.Sampler == "" {
		c.Sampler = "always_on"
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
	if c.Resource == nil {
		c.Resource = make(map[string]string)
	}
	if _, ok := c.Resource[resourceServiceNameKey]; !ok {
		c.Resource[resourceServiceNameKey] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("observability: OTEL_EXPORTER_OTLP_ENDPOINT is required when OpenTelemetry is enabled")
	}
	if err := c.validateEndpoint(); err != nil {
		return err
	}
	if c.SamplerArg < 0 {
		return fmt.Errorf("observability: traces sampler argument must be non-negative")
	}
	if strings.EqualFold(c.Sampler, "traceidratio") && (c.SamplerArg <= 0 || c.SamplerArg > 1) {
		return fmt.Errorf("observability: traceidratio sampler needs an argument in (0, 1], got %v", c.SamplerArg)
	}
	return nil
}

func (c *Config) validateEndpoint() error {
	switch c.Protocol {
	case protocolHTTP:
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("observability: %s endpoint must use http or https, got %q", protocolHTTP, c.Endpoint)
		}
		if u.Host == "" {
			return fmt.Errorf("observability: %s endpoint must include a host", protocolHTTP)
		}
	case protocolGRPC:
		if _, _, err := grpcTarget(c.Endpoint); err != nil {
			return fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.Protocol)
	}
	return nil
}

// parseResourceAttributes reads "k1=v1,k2=v2".
func parseResourceAttributes(input string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}
