// Package config loads the runtime configuration from the environment, an
// optional .env file, an optional YAML file and command line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/urbanair/aqkg/internal/util"
	"github.com/urbanair/aqkg/pkg/fuzzy"

	"github.com/go-playground/validator"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by the CLI, the server and the
// worker. Keys are the lower-cased environment variable names.
type Config struct {
	Debug          bool `mapstructure:"debug"`
	MatchThreshold int  `mapstructure:"match_threshold" validate:"min=0,max=100"`

	AIAdapter       string `mapstructure:"ai_adapter" validate:"oneof=openai ollama"`
	AIChatURL       string `mapstructure:"ai_chat_url"`
	AIChatKey       string `mapstructure:"ai_chat_key"`
	AIExtractModel  string `mapstructure:"ai_chat_extract_model"`
	AIDescribeModel string `mapstructure:"ai_chat_describe_model"`
	AIEmbedURL      string `mapstructure:"ai_embed_url"`
	AIEmbedKey      string `mapstructure:"ai_embed_key"`
	AIEmbedModel    string `mapstructure:"ai_embed_model"`
	AIEmbedDim      int    `mapstructure:"ai_embed_dim" validate:"min=1"`
	AIParallelReq   int    `mapstructure:"ai_parallel_req" validate:"min=1"`
	AITimeoutMin    int    `mapstructure:"ai_timeout_min" validate:"min=1"`
	AIMaxRetries    int    `mapstructure:"ai_max_retries" validate:"min=1"`
	AIThinking      string `mapstructure:"ai_thinking" validate:"omitempty,oneof=low medium high"`

	ExtractMaxTokens  int    `mapstructure:"extract_max_tokens" validate:"min=1"`
	ExtractStructured bool   `mapstructure:"extract_structured"`
	TokenEncoder      string `mapstructure:"token_encoder"`
	OntologyPath      string `mapstructure:"ontology_path"`
	HintsPath         string `mapstructure:"hints_path"`

	GraphBackend  string `mapstructure:"graph_backend" validate:"oneof=neo4j postgres memory"`
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
	Neo4jDatabase string `mapstructure:"neo4j_database"`
	DatabaseURL   string `mapstructure:"database_url"`

	AWSRegion    string `mapstructure:"aws_region"`
	AWSEndpoint  string `mapstructure:"aws_endpoint"`
	AWSAccessKey string `mapstructure:"aws_access_key"`
	AWSSecretKey string `mapstructure:"aws_secret_key"`
	AWSBucket    string `mapstructure:"aws_bucket"`

	RabbitMQUser     string `mapstructure:"rabbitmq_user"`
	RabbitMQPassword string `mapstructure:"rabbitmq_password"`
	RabbitMQHost     string `mapstructure:"rabbitmq_host"`
	RabbitMQPort     string `mapstructure:"rabbitmq_port"`

	Port         string `mapstructure:"port"`
	MasterAPIKey string `mapstructure:"master_api_key"`
	BaseDocument string `mapstructure:"base_document"`
}

var defaults = map[string]any{
	"debug":                  false,
	"match_threshold":        fuzzy.DefaultThreshold,
	"ai_adapter":             "openai",
	"ai_chat_url":            "",
	"ai_chat_key":            "",
	"ai_chat_extract_model":  "",
	"ai_chat_describe_model": "",
	"ai_embed_url":           "",
	"ai_embed_key":           "",
	"ai_embed_model":         "",
	"ai_embed_dim":           768,
	"ai_parallel_req":        4,
	"ai_timeout_min":         10,
	"ai_max_retries":         3,
	"ai_thinking":            "",
	"extract_max_tokens":     2000,
	"extract_structured":     false,
	"token_encoder":          "o200k_base",
	"ontology_path":          "",
	"hints_path":             "",
	"graph_backend":          "neo4j",
	"neo4j_uri":              "bolt://localhost:7687",
	"neo4j_user":             "neo4j",
	"neo4j_password":         "",
	"neo4j_database":         "",
	"database_url":           "",
	"aws_region":             "",
	"aws_endpoint":           "",
	"aws_access_key":         "",
	"aws_secret_key":         "",
	"aws_bucket":             "",
	"rabbitmq_user":          "guest",
	"rabbitmq_password":      "guest",
	"rabbitmq_host":          "localhost",
	"rabbitmq_port":          "5672",
	"port":                   "8080",
	"master_api_key":         "",
	"base_document":          "",
}

// LoadParams selects the sources Load reads besides the environment.
type LoadParams struct {
	// ConfigFile is an optional YAML file.
	ConfigFile string
	// EnvFiles are loaded with godotenv; empty means ".env".
	EnvFiles []string
	// Flags maps configuration keys to command line flags. A flag only
	// overrides the key when it was set explicitly.
	Flags map[string]*pflag.Flag
}

// Load reads and validates the configuration.
func Load(params LoadParams) (*Config, error) {
	util.LoadEnv(params.EnvFiles...)

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if params.ConfigFile != "" {
		v.SetConfigFile(params.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", params.ConfigFile, err)
		}
	}

	for key, flag := range params.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RabbitMQURL assembles the AMQP connection string.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}
