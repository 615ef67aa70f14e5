package types

import "time"

// LLM provider names accepted by LLM_PROVIDER
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// Config represents the assistant configuration resolved from the environment
type Config struct {
	// LLM configuration
	LLMProvider  string        `json:"llm_provider" env:"LLM_PROVIDER,default=gemini"`
	GoogleAPIKey string        `json:"-" env:"GOOGLE_API_KEY"`
	GeminiModel  string        `json:"gemini_model" env:"GEMINI_MODEL,default=gemini-1.5-flash-latest"`
	ChatModel    string        `json:"chat_model" env:"CHAT_MODEL,default=anthropic.claude-3-5-sonnet-20240620-v1:0"`
	AWSRegion    string        `json:"aws_region" env:"AWS_REGION,default=us-east-1"`
	LLMTimeout   time.Duration `json:"llm_timeout" env:"LLM_TIMEOUT,default=60s"`

	// Analytics API configuration
	AnalyticsAPIURL    string        `json:"analytics_api_url" env:"ANALYTICS_API_URL,default=http://127.0.0.1:10000/api/influencer/query"`
	AnalyticsTimeout   time.Duration `json:"analytics_timeout" env:"ANALYTICS_TIMEOUT,default=30s"`
	AnalyticsRateLimit float64       `json:"analytics_rate_limit" env:"ANALYTICS_RATE_LIMIT,default=5.0"`
	AnalyticsRateBurst int           `json:"analytics_rate_burst" env:"ANALYTICS_RATE_BURST,default=10"`

	// Parameter normalization
	DefaultYear int    `json:"default_year" env:"DEFAULT_YEAR,default=0"`
	MarketsFile string `json:"markets_file" env:"MARKETS_FILE"`

	// Session store
	SessionMaxContexts int           `json:"session_max_contexts" env:"SESSION_MAX_CONTEXTS,default=20"`
	SessionMaxAge      time.Duration `json:"session_max_age" env:"SESSION_MAX_AGE,default=0s"`
	SessionSweepEvery  int           `json:"session_sweep_every" env:"SESSION_SWEEP_EVERY,default=10"`

	// Strategic plan
	PlanCAC       float64 `json:"plan_cac" env:"PLAN_CAC,default=50"`
	PlanFillRatio float64 `json:"plan_fill_ratio" env:"PLAN_FILL_RATIO,default=0.98"`

	// Reports archive (optional)
	ReportsS3Bucket string `json:"reports_s3_bucket" env:"REPORTS_S3_BUCKET"`
	ReportsS3Prefix string `json:"reports_s3_prefix" env:"REPORTS_S3_PREFIX,default=plans/"`

	// Usage statistics database; empty means ~/.nova/usage.db
	UsageDBPath   string `json:"usage_db_path" env:"USAGE_DB_PATH"`
	UsageDisabled bool   `json:"usage_disabled" env:"USAGE_DISABLED,default=false"`

	// OpenTelemetry configuration
	OTelEnabled              bool          `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string        `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=nova"`
	OTelExporterOTLPEndpoint string        `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string        `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string        `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string        `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64       `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
	OTelMetricInterval       time.Duration `json:"otel_metric_interval" env:"OTEL_METRIC_EXPORT_INTERVAL,default=60s"`
}
