// Package config handles application settings from the environment and the
// persisted model/retrieval configuration that pipelines are rebuilt from.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LatestFileName is the authoritative configuration file. Every save also
// writes a timestamped snapshot beside it for history.
const LatestFileName = "latest.json"

const snapshotTimeFormat = "20060102-150405"

// ModelConfig describes the generation and embedding backend selection.
type ModelConfig struct {
	// Provider is one of local, hosted_free, hosted_paid, enterprise.
	Provider  string `json:"provider"`
	ModelName string `json:"model_name"`
	// Credential is the provider API key or token, empty for local.
	Credential string `json:"credential,omitempty"`
	// Endpoint, Deployment, and APIVersion apply to enterprise providers.
	Endpoint   string `json:"endpoint,omitempty"`
	Deployment string `json:"deployment,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
}

// RetrievalConfig describes how queries retrieve by default.
type RetrievalConfig struct {
	// SearchOption is one of semantic, hybrid, reranking.
	SearchOption string `json:"search_option"`
	// StorageLocation is local or remote.
	StorageLocation string `json:"storage_location"`
}

// Config is the persisted pipeline configuration.
type Config struct {
	Model     ModelConfig     `json:"model"`
	Retrieval RetrievalConfig `json:"retrieval"`
}

// DefaultConfig returns the configuration used before any has been saved.
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			Provider:  "local",
			ModelName: "google/flan-t5-base",
		},
		Retrieval: RetrievalConfig{
			SearchOption:    "semantic",
			StorageLocation: "local",
		},
	}
}

// Store persists pipeline configuration under a directory and tracks a
// monotonically increasing version. The version changes on every save, so
// cached pipelines keyed on it go stale the moment configuration changes.
type Store struct {
	dir     string
	mu      sync.RWMutex
	current Config
	version int64
	logger  *slog.Logger
}

// NewStore opens a configuration store, loading latest.json when it exists
// and starting from defaults otherwise.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	s := &Store{
		dir:     dir,
		current: DefaultConfig(),
		version: 1,
		logger:  slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	data, err := os.ReadFile(filepath.Join(dir, LatestFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return s, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	s.current = cfg

	return s, nil
}

// Load returns the current configuration.
func (s *Store) Load() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version returns the current configuration version. It increments on every
// save and reload.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Save persists a new configuration, writing latest.json plus a timestamped
// snapshot, and bumps the version.
func (s *Store) Save(cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := filepath.Join(s.dir, LatestFileName)
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	snapshot := filepath.Join(s.dir, fmt.Sprintf("config-%s.json", time.Now().UTC().Format(snapshotTimeFormat)))
	if err := os.WriteFile(snapshot, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config snapshot: %w", err)
	}

	s.current = cfg
	s.version++
	s.logger.Info("configuration saved", "version", s.version, "provider", cfg.Model.Provider, "model", cfg.Model.ModelName)

	return nil
}

// Reload re-reads latest.json, bumping the version when the content changed.
// Used by the file watcher to pick up edits made outside the process.
func (s *Store) Reload() error {
	data, err := os.ReadFile(filepath.Join(s.dir, LatestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg == s.current {
		return nil
	}
	s.current = cfg
	s.version++
	s.logger.Info("configuration reloaded", "version", s.version)

	return nil
}

// Dir returns the configuration directory.
func (s *Store) Dir() string {
	return s.dir
}

// AppConfig holds process-level settings read from the environment.
type AppConfig struct {
	DataDir    string `env:"AUTORAG_DATA_DIR" envDefault:"./data"`
	ConfigDir  string `env:"AUTORAG_CONFIG_DIR" envDefault:"./configs"`
	Collection string `env:"AUTORAG_COLLECTION" envDefault:"autorag"`

	HuggingFaceAPIKey string `env:"HUGGINGFACE_API_KEY"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	LocalLLMURL       string `env:"LOCAL_LLM_URL"`
	CrossEncoderModel string `env:"CROSS_ENCODER_MODEL"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"autorag-index"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// LoadApp reads process settings from the environment, loading a .env file
// first when one exists.
func LoadApp() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
