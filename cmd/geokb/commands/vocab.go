package commands

import (
	stderrors "errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/geokb/geokb/internal/jobs"
	"github.com/geokb/geokb/internal/printer"
	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/logging"
	"github.com/geokb/geokb/pkg/sources/sparql"
)

func newVocabCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the property and class vocabulary",
	}

	cmd.AddCommand(newVocabPullCommand())
	return cmd
}

func newVocabPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Refresh the vocabulary from the knowledgebase property catalog",
		Long: `Queries the knowledgebase's SPARQL endpoint for every property with
its label and writes the name-to-identifier table into the vocabulary
file. Class entries already in the file are preserved.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if cfg.SparqlEndpoint == "" {
				return errors.NewConfigError("sparql", "sparql_endpoint is required (set GEOKB_SPARQL_ENDPOINT)", nil)
			}

			vocab, err := cfg.Vocabulary()
			if err != nil {
				// A missing file starts a fresh vocabulary
				if !stderrors.Is(err, fs.ErrNotExist) {
					return err
				}
				vocab = kb.NewVocabulary()
			}

			job := &jobs.VocabJob{
				Source: sparql.New(cfg.SparqlEndpoint),
				Logger: logging.Default(),
			}
			count, err := job.Pull(cmd.Context(), vocab)
			if err != nil {
				return err
			}
			if err := vocab.Save(cfg.VocabPath); err != nil {
				return err
			}

			printer.New().Info("wrote %d properties to %s", count, cfg.VocabPath)
			return nil
		},
	}
	return cmd
}
