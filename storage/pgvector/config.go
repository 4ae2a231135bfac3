package pgvector

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds connection settings for the Postgres-backed vector store.
type Config struct {
	// ConnString is the pgx connection string or URL.
	ConnString string `validate:"required"`

	// Dimension is the vector column dimension. Must match the embedding
	// model's declared dimension.
	Dimension int `validate:"gte=1"`
}

// DefaultConfig returns a Config with the default embedding dimension.
// The connection string must still be provided.
func DefaultConfig() *Config {
	return &Config{Dimension: 1536}
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		errs := err.(validator.ValidationErrors)
		for _, e := range errs {
			return fmt.Errorf("pgvector config: field %s failed on '%s' tag", e.Field(), e.Tag())
		}
	}
	return nil
}
