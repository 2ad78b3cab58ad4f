package commands

import (
	"github.com/spf13/cobra"
)

func newLinkCommand() *cobra.Command {
	var flags chronostratFlags

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link containment relationships between synced entities",
		Long: `Queries the source graph for directed containment pairs, groups them
by subject and relationship type, and replaces each subject's prior
statements of that type with the grouped object set. Every endpoint
must already exist in the knowledgebase; run "geokb sync chronostrat"
first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, out, err := flags.job()
			if err != nil {
				return err
			}
			report, err := job.Link(cmd.Context())
			if err != nil {
				return err
			}
			return finishRun(out, report)
		},
	}

	flags.register(cmd)
	return cmd
}
