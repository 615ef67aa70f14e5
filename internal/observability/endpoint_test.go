package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalURL(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"no path", "https://collector:4318", "https://collector:4318/v1/metrics"},
		{"trailing slash", "https://collector:4318/", "https://collector:4318/v1/metrics"},
		{"already suffixed", "https://collector:4318/v1/metrics/", "https://collector:4318/v1/metrics"},
		{"custom base", "https://gw.example.com/otlp", "https://gw.example.com/otlp/v1/metrics"},
		{"keeps query", "https://gw.example.com/otlp?tenant=nova", "https://gw.example.com/otlp/v1/metrics?tenant=nova"},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := signalURL(tc.endpoint, "v1/metrics")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := signalURL(" ", "/v1/traces")
	assert.Error(t, err)
}

func TestGRPCTarget(t *testing.T) {
	testcases := []struct {
		raw       string
		target    string
		plaintext bool
		wantErr   bool
	}{
		{raw: "collector:4317", target: "collector:4317", plaintext: true},
		{raw: "http://collector:4317", target: "collector:4317", plaintext: true},
		{raw: "grpcs://collector:4317", target: "collector:4317", plaintext: false},
		{raw: "ftp://collector:4317", wantErr: true},
		{raw: "collector", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range testcases {
		target, plaintext, err := grpcTarget(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.target, target)
		assert.Equal(t, tc.plaintext, plaintext)
	}
}
