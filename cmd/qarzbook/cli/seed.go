package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qarzbook/qarzbook/internal/ledger"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample dataset into an empty ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			err = ledger.Seed(cmd.Context(), rt.Ledger, ledger.SampleData(rt.Ledger.Now()))
			if errors.Is(err, ledger.ErrNotEmpty) {
				return errors.New("seed: ledger already holds data, refusing to add samples")
			}
			if err != nil {
				return err
			}
			state := rt.Ledger.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d debts and %d payments\n", len(state.Debts), len(state.Payments))
			return nil
		},
	}
}
