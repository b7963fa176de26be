package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// Secret is a credential value. It never prints its content.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

func (s Secret) Reveal() string { return string(s) }

func (s Secret) IsSet() bool { return strings.TrimSpace(string(s)) != "" }

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	Pipeline struct {
		StepTimeout   time.Duration `mapstructure:"stepTimeout"`
		DefaultOrigin string        `mapstructure:"defaultOrigin"`
		HistoryLimit  int           `mapstructure:"historyLimit"`
	} `mapstructure:"pipeline"`
	LLM struct {
		Provider    string  `mapstructure:"provider"`
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
		APIKey      Secret  `mapstructure:"apiKey"`
		BaseURL     string  `mapstructure:"baseURL"`
	} `mapstructure:"llm"`
	Amadeus struct {
		BaseURL           string  `mapstructure:"baseURL"`
		ClientID          Secret  `mapstructure:"clientID"`
		ClientSecret      Secret  `mapstructure:"clientSecret"`
		RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	} `mapstructure:"amadeus"`
	Geoapify struct {
		BaseURL           string  `mapstructure:"baseURL"`
		APIKey            Secret  `mapstructure:"apiKey"`
		RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	} `mapstructure:"geoapify"`
	ElevenLabs struct {
		BaseURL string `mapstructure:"baseURL"`
		APIKey  Secret `mapstructure:"apiKey"`
		VoiceID string `mapstructure:"voiceID"`
		ModelID string `mapstructure:"modelID"`
	} `mapstructure:"elevenlabs"`
}

// credentialEnv maps config keys to the environment variables that may provide them.
var credentialEnv = map[string][]string{
	"llm.apiKey":             {"GOOGLE_GEMINI_API_KEY", "OPENAI_API_KEY"},
	"amadeus.clientID":       {"AMADEUS_CLIENT_ID"},
	"amadeus.clientSecret":   {"AMADEUS_CLIENT_SECRET"},
	"geoapify.apiKey":        {"GEOAPIFY_API_KEY"},
	"elevenlabs.apiKey":      {"ELEVENLABS_API_KEY"},
	"server.HTTPPort":        {"PORT"},
	"pipeline.defaultOrigin": {"DEFAULT_ORIGIN"},
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range credentialEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
