package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/nova/internal/types"
)

func TestFromConfig_DisabledFillsDefaults(t *testing.T) {
	c, err := FromConfig(&types.Config{})
	require.NoError(t, err)
	assert.False(t, c.Enabled)
	assert.Equal(t, "nova", c.ServiceName)
	assert.Equal(t, protocolHTTP, c.Protocol)
	assert.Equal(t, defaultMetricInterval, c.MetricInterval)
	assert.Equal(t, "nova", c.Resource[resourceServiceNameKey])
}

func TestFromConfig_Validation(t *testing.T) {
	testcases := []struct {
		name    string
		cfg     types.Config
		wantErr string
	}{
		{"missing endpoint", types.Config{OTelEnabled: true}, "OTEL_EXPORTER_OTLP_ENDPOINT"},
		{"http without scheme", types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector:4318"}, "http or https"},
		{"grpc without port", types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector", OTelExporterOTLPProtocol: "grpc"}, "host:port"},
		{"unknown protocol", types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://c:4318", OTelExporterOTLPProtocol: "thrift"}, "unsupported"},
		{"bad ratio", types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://c:4318", OTelTracesSampler: "traceidratio", OTelTracesSamplerArg: 2}, "traceidratio"},
		{"bad attributes", types.Config{OTelResourceAttributes: "novalue"}, "resource attributes"},
		{"ok grpc", types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "grpcs://collector:4317", OTelExporterOTLPProtocol: "GRPC"}, ""},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			_, err := FromConfig(&cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseResourceAttributes(t *testing.T) {
	got, err := parseResourceAttributes(" team=growth , env = prod,,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "growth", "env": "prod"}, got)

	_, err = parseResourceAttributes("=x")
	assert.Error(t, err)
}
