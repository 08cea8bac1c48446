package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suteetoe/cnpjsync/internal/batch"
	"github.com/suteetoe/cnpjsync/internal/ingest"
	"github.com/suteetoe/cnpjsync/internal/upsert"
	"github.com/suteetoe/cnpjsync/metrics"
	"go.uber.org/zap"
)

var importStrict bool

var importCmd = &cobra.Command{
	Use:   "import <" + strings.Join(ingest.Kinds(), "|") + "> <path>...",
	Short: "Load entity files, plain or zipped",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := ingest.ParseKind(args[0])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		defer a.pushMetrics(serviceName + "_import_" + string(kind))

		coordinator, _ := newCoordinator(a)
		importer := ingest.NewImporter(coordinator, upsert.NewEngine(), a.log, a.cfg.Import.Charset, a.cfg.Import.PartnerPolicy)

		failedRows := 0
		for _, path := range args[1:] {
			summary, err := importer.ImportFile(cmd.Context(), kind, path)
			if summary != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", path, summary)
				failedRows += summary.Errors()
			}
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
		}

		if importStrict && failedRows > 0 {
			return fmt.Errorf("%d rows were not imported", failedRows)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "exit non-zero when any row was skipped or rolled back")
}

func newCoordinator(a *app) (*batch.Coordinator, *metrics.IngestMetrics) {
	m := metrics.NewIngestMetrics(a.registry, a.cfg.Metrics.Prefix)
	c := batch.NewCoordinator(a.db, a.log, m)
	c.BatchSize = a.cfg.Import.BatchSize
	c.ProgressEvery = a.cfg.Import.ProgressEvery
	c.MaxReportedFailures = a.cfg.Import.MaxReportedFailures
	a.log.Debug("Coordinator ready", zap.Int("batch_size", c.BatchSize))
	return c, m
}
