package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
)

// Config holds the CLI configuration loaded from flags, environment
// variables, .env files, and ~/.geokb.yaml, in that order of precedence.
type Config struct {
	// Knowledgebase connection profile.
	KBURL   string
	KBToken string

	// SPARQL endpoint of the source graph (and of the knowledgebase's
	// own query service for vocab pulls).
	SparqlEndpoint string

	// VocabPath is the vocabulary YAML file.
	VocabPath string

	// DatasetEntity is the knowledgebase entity representing the source
	// dataset, used as the provenance reference for every statement.
	DatasetEntity string
}

// LoadConfig loads configuration from all sources.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.SetEnvPrefix("GEOKB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Search for config in standard locations
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".geokb")
	}
	// Missing config file is fine; env and flags can carry everything
	_ = viper.ReadInConfig()

	cfg := &Config{
		KBURL:          viper.GetString("kb_url"),
		KBToken:        viper.GetString("kb_token"),
		SparqlEndpoint: viper.GetString("sparql_endpoint"),
		VocabPath:      viper.GetString("vocab_path"),
		DatasetEntity:  viper.GetString("dataset_entity"),
	}
	if cfg.VocabPath == "" {
		cfg.VocabPath = "vocabulary.yaml"
	}
	return cfg, nil
}

// Validate checks the fields a knowledgebase-writing command needs.
func (c *Config) Validate() error {
	if c.KBURL == "" {
		return errors.NewConfigError("kb", "kb_url is required (set GEOKB_KB_URL or kb_url in ~/.geokb.yaml)", nil)
	}
	if c.KBToken == "" {
		return errors.ErrTokenRequired
	}
	if c.DatasetEntity == "" {
		return errors.NewConfigError("kb", "dataset_entity is required for provenance", nil)
	}
	return nil
}

// Vocabulary loads the vocabulary file named by the config.
func (c *Config) Vocabulary() (*kb.Vocabulary, error) {
	return kb.LoadVocabulary(c.VocabPath)
}

// loadEnvFiles loads .env files from the working directory and home.
func loadEnvFiles() {
	_ = godotenv.Load()
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".geokb.env"))
	}
}
