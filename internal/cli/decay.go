package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/rooted/internal/engine"
)

var decayAll bool

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Expire old leaves and demote stale branches now",
	RunE:  runDecay,
}

func init() {
	decayCmd.Flags().BoolVar(&decayAll, "all", false, "Decay every user, not just the current one")
}

func runDecay(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var res engine.DecayResult
	if decayAll {
		res, err = a.engine.DecayAll(cmd.Context())
	} else {
		res, err = a.engine.Decay(cmd.Context(), currentUser())
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "expired %d leaves, demoted %d branches\n", res.Expired, res.Demoted)
	return nil
}
