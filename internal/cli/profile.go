package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the root profile",
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.engine.Profile(currentUser())
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	out := cmd.OutOrStdout()
	if p == nil {
		fmt.Fprintln(out, "No root profile yet.")
		return nil
	}

	fmt.Fprintln(out, "## Root Profile")
	fmt.Fprintln(out)
	fmt.Fprintln(out, p.PersonaSummary)
	if len(p.Traits) > 0 {
		keys := make([]string, 0, len(p.Traits))
		for k := range p.Traits {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "\nTraits:")
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %v\n", k, p.Traits[k])
		}
	}
	if len(p.Values) > 0 {
		fmt.Fprintf(out, "\nValues: %s\n", strings.Join(p.Values, ", "))
	}
	return nil
}
