package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Feed is the on-disk registry format produced by an external loader.
type Feed struct {
	SchemaText     string  `yaml:"schema_text"`
	DictionaryText string  `yaml:"dictionary_text"`
	Tables         []Table `yaml:"tables"`
}

// LoadFeed reads a YAML feed file into a Registry.
func LoadFeed(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema feed: %w", err)
	}

	var feed Feed
	if err := yaml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse schema feed: %w", err)
	}

	return NewRegistry(feed.Tables, feed.SchemaText, feed.DictionaryText), nil
}
