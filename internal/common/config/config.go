// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig               `mapstructure:"app"`
	Camunda CamundaConfig           `mapstructure:"camunda"`
	Server  ServerConfig            `mapstructure:"server"`
	Models  ModelsConfig            `mapstructure:"models"`
	Cache   CacheConfig             `mapstructure:"cache"`
	Workers map[string]WorkerConfig `mapstructure:"workers"`
	Logging LoggingConfig           `mapstructure:"logging"`
	Tracing TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds, budget for complete/fail/throw commands
}

// ServerConfig is the HTTP input-collection API.
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	Mode            string `mapstructure:"mode"`             // gin mode: debug, release, test
}

// ModelsConfig describes where the two models live and how they are served.
type ModelsConfig struct {
	TrackingURI     string      `mapstructure:"tracking_uri"`
	FeatureSchema   string      `mapstructure:"feature_schema"`
	EnforceSchema   bool        `mapstructure:"enforce_schema"`
	ResolveRetries  int         `mapstructure:"resolve_retries"`
	RetryDelay      int         `mapstructure:"retry_delay"`      // milliseconds
	RegistryTimeout int         `mapstructure:"registry_timeout"` // milliseconds
	Eligibility     ModelConfig `mapstructure:"eligibility"`
	EMI             ModelConfig `mapstructure:"emi"`
}

type ModelConfig struct {
	// Reference is models:/<name>@<alias>, models:/<name>/<version> or a local model directory.
	Reference  string `mapstructure:"reference"`
	ServingURL string `mapstructure:"serving_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	TTL     int         `mapstructure:"ttl"` // seconds
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
