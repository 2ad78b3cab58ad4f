package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geokb/geokb/internal/jobs"
	"github.com/geokb/geokb/internal/kbclient"
	"github.com/geokb/geokb/internal/printer"
	"github.com/geokb/geokb/pkg/errors"
	"github.com/geokb/geokb/pkg/kb"
	"github.com/geokb/geokb/pkg/logging"
	"github.com/geokb/geokb/pkg/sources/census"
	"github.com/geokb/geokb/pkg/sources/sparql"
	"github.com/geokb/geokb/pkg/upsert"
)

func newSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run an upsert batch from an external source",
	}

	cmd.AddCommand(newSyncStatesCommand())
	cmd.AddCommand(newSyncChronostratCommand())

	return cmd
}

func newSyncStatesCommand() *cobra.Command {
	var datasetURL string

	cmd := &cobra.Command{
		Use:   "states",
		Short: "Sync U.S. state boundary records from the geospatial catalog",
		Long: `Fetches the state boundary dataset as GeoJSON, maps each record's
codes, names, identifiers, and geometry onto knowledgebase properties,
and upserts one entity per state. Statements carry the dataset entity
as provenance; existing statements for mapped properties are replaced.`,
		Example: `  geokb sync states --dataset-url https://catalog.example.org/tiger/states.geojson`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			vocab, err := cfg.Vocabulary()
			if err != nil {
				return err
			}

			out := printer.New()
			job := &jobs.StatesJob{
				Source:  census.New(),
				KB:      kbclient.New(cfg.KBURL, kbclient.WithToken(cfg.KBToken)),
				Vocab:   vocab,
				Dataset: kb.EntityID(cfg.DatasetEntity),
				Logger:  logging.Default(),
				Confirm: out.Confirm,
			}

			report, err := job.Run(cmd.Context(), datasetURL)
			if err != nil {
				return err
			}
			return finishRun(out, report)
		},
	}

	cmd.Flags().StringVar(&datasetURL, "dataset-url", "", "URL of the GeoJSON state boundary dataset")
	_ = cmd.MarkFlagRequired("dataset-url")

	return cmd
}

func newSyncChronostratCommand() *cobra.Command {
	var flags chronostratFlags

	cmd := &cobra.Command{
		Use:   "chronostrat",
		Short: "Sync geologic time units from the source graph",
		Long: `Queries the source graph's SPARQL endpoint for chronostratigraphic
units with their labels and ranks, and upserts one entity per unit.
Run "geokb link" afterwards to attach the containment hierarchy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, out, err := flags.job()
			if err != nil {
				return err
			}
			report, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}
			return finishRun(out, report)
		},
	}

	flags.register(cmd)
	return cmd
}

// chronostratFlags carries the graph-side identifiers shared by the
// chronostrat sync and link commands.
type chronostratFlags struct {
	unitClass       string
	instanceOfProp  string
	rankProp        string
	containmentProp string
}

func (f *chronostratFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.unitClass, "unit-class", "Q104", "graph class of chronostratigraphic units")
	cmd.Flags().StringVar(&f.instanceOfProp, "instance-of-prop", "P1", "graph instance-of property")
	cmd.Flags().StringVar(&f.rankProp, "rank-prop", "P14", "graph rank property")
	cmd.Flags().StringVar(&f.containmentProp, "containment-prop", "P10", "graph containment property")
}

func (f *chronostratFlags) job() (*jobs.ChronostratJob, *printer.Printer, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.SparqlEndpoint == "" {
		return nil, nil, errors.NewConfigError("sparql", "sparql_endpoint is required (set GEOKB_SPARQL_ENDPOINT)", nil)
	}
	vocab, err := cfg.Vocabulary()
	if err != nil {
		return nil, nil, err
	}

	out := printer.New()
	job := &jobs.ChronostratJob{
		Source:            sparql.New(cfg.SparqlEndpoint),
		KB:                kbclient.New(cfg.KBURL, kbclient.WithToken(cfg.KBToken)),
		Vocab:             vocab,
		Dataset:           kb.EntityID(cfg.DatasetEntity),
		UnitClassID:       f.unitClass,
		InstanceOfPropID:  f.instanceOfProp,
		RankPropID:        f.rankProp,
		ContainmentPropID: f.containmentProp,
		Logger:            logging.Default(),
		Confirm:           out.Confirm,
	}
	return job, out, nil
}

// finishRun prints the report and turns failures into a non-zero exit.
func finishRun(out *printer.Printer, report *upsert.Report) error {
	out.Report(report)
	if report.HasFailures() {
		return fmt.Errorf("%d of %d records did not sync", report.Skipped+report.Failed, report.Attempted)
	}
	return nil
}
