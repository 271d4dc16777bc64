package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jesrav/jesktop/internal/parser"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Notes     NotesConfig       `yaml:"notes"`
	Chunking  ChunkingConfig    `yaml:"chunking"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Artifact  ArtifactConfig    `yaml:"artifact"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Artifact.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// NotesConfig holds the notes corpus location and reference parsing setup.
// AttachmentFolders are searched, in order, when an image or diagram target
// does not resolve relative to its note. Pattern lists, when set, replace
// the built-in reference patterns; each entry is a regular expression whose
// first capture group is the target.
type NotesConfig struct {
	Path              string         `yaml:"path"`
	AttachmentFolders []string       `yaml:"attachment_folders"`
	Patterns          PatternsConfig `yaml:"patterns"`
}

// PatternsConfig overrides the reference patterns per kind.
type PatternsConfig struct {
	Wikilink []string `yaml:"wikilink"`
	Image    []string `yaml:"image"`
	Diagram  []string `yaml:"diagram"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	); err != nil {
		return err
	}
	// Compiling here surfaces bad pattern overrides at startup.
	if _, err := parser.New(c.PatternSources()); err != nil {
		return err
	}
	return nil
}

// PatternSources returns the effective reference patterns: configured
// overrides per kind, built-in patterns otherwise.
func (c *NotesConfig) PatternSources() parser.PatternSources {
	src := parser.DefaultPatternSources()
	if len(c.Patterns.Wikilink) > 0 {
		src.Wikilink = c.Patterns.Wikilink
	}
	if len(c.Patterns.Image) > 0 {
		src.Image = c.Patterns.Image
	}
	if len(c.Patterns.Diagram) > 0 {
		src.Diagram = c.Patterns.Diagram
	}
	return src
}

// ChunkingConfig holds the chunking parameters, both in words.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Validate validates the chunking configuration.
func (c *ChunkingConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ChunkOverlap, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunking: overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// EmbeddingConfig holds the embedding provider configuration.
//
// Provider selects the backend:
//   - "openai": remote embeddings; APIKey must be non-empty.
//   - "hash": deterministic offline embeddings, suitable for tests and
//     credential-free runs.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	MaxRetries  int    `yaml:"max_retries"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderHash
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderOpenAI, ProviderHash)),
		validation.Field(&c.BatchSize, validation.Min(0)),
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Provider == ProviderOpenAI && c.APIKey == "" {
		return fmt.Errorf("embedding: provider is %q but api_key is empty", ProviderOpenAI)
	}
	return nil
}

// ArtifactConfig holds the vector database artifact location.
type ArtifactConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the artifact configuration.
func (c *ArtifactConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Notes: NotesConfig{
			Path: "./notes",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    200,
			ChunkOverlap: 20,
		},
		Embedding: EmbeddingConfig{
			Provider:    ProviderHash,
			Model:       "text-embedding-3-small",
			BatchSize:   64,
			Concurrency: 4,
			MaxRetries:  3,
		},
		Artifact: ArtifactConfig{
			Path: "./jesktop.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
