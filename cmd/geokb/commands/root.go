// Package commands implements the geokb CLI: sync runs for the
// geospatial and graph sources, the relationship link pass, and
// vocabulary management.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is populated at build time.
var Version = "dev"

// NewRootCommand builds the geokb command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "geokb",
		Short: "Sync geographic and geologic reference data into a knowledgebase",
		Long: `geokb extracts records from external geographic and geologic data
sources (a cloud geospatial catalog, a SPARQL-queryable graph) and
upserts them as entities into a Wikibase-style knowledgebase, with
dataset provenance on every statement.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("kb-url", "", "knowledgebase base URL")
	root.PersistentFlags().String("kb-token", "", "knowledgebase API token")
	root.PersistentFlags().String("sparql-endpoint", "", "SPARQL endpoint URL")
	root.PersistentFlags().String("vocab", "", "vocabulary YAML file (default vocabulary.yaml)")
	root.PersistentFlags().String("dataset-entity", "", "entity ID of the source dataset (provenance)")

	_ = viper.BindPFlag("kb_url", root.PersistentFlags().Lookup("kb-url"))
	_ = viper.BindPFlag("kb_token", root.PersistentFlags().Lookup("kb-token"))
	_ = viper.BindPFlag("sparql_endpoint", root.PersistentFlags().Lookup("sparql-endpoint"))
	_ = viper.BindPFlag("vocab_path", root.PersistentFlags().Lookup("vocab"))
	_ = viper.BindPFlag("dataset_entity", root.PersistentFlags().Lookup("dataset-entity"))

	root.AddCommand(newSyncCommand())
	root.AddCommand(newLinkCommand())
	root.AddCommand(newVocabCommand())

	return root
}
