package internal

import "github.com/jesrav/jesktop/internal/embedder"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	embedder embedder.Embedder
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithEmbedder overrides the embedder built from configuration. Used by
// tests to run the full application with the deterministic hash embedder.
func WithEmbedder(emb embedder.Embedder) Option {
	return func(a *application) {
		a.embedder = emb
	}
}
