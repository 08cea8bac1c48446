package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suteetoe/cnpjsync/internal/ingest"
	"github.com/suteetoe/cnpjsync/internal/model"
	"github.com/suteetoe/cnpjsync/internal/reference"
	"github.com/suteetoe/cnpjsync/internal/upsert"
)

var referenceCmd = &cobra.Command{
	Use:   "reference <" + strings.Join(model.ReferenceTags(), "|") + "> <path>...",
	Short: "Synchronize a code lookup table",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, ok := model.ReferenceTableFor(args[0])
		if !ok {
			return fmt.Errorf("unknown reference table %q, want one of %s", args[0], strings.Join(model.ReferenceTags(), ", "))
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		defer a.pushMetrics(serviceName + "_reference_" + args[0])

		coordinator, m := newCoordinator(a)
		syncer := reference.NewSynchronizer(coordinator, upsert.NewEngine(), a.log, m)
		for _, path := range args[1:] {
			if err := syncFile(cmd, a, syncer, table, path); err != nil {
				return err
			}
		}
		return nil
	},
}

func syncFile(cmd *cobra.Command, a *app, syncer *reference.Synchronizer, table model.ReferenceTable, path string) error {
	src, err := ingest.Open(path, a.cfg.Import.Charset)
	if err != nil {
		return err
	}
	defer src.Close()

	res, err := syncer.Sync(cmd.Context(), table, src)
	if res != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", path, res)
	}
	if err != nil {
		return fmt.Errorf("reference %s: %w", path, err)
	}
	return nil
}
