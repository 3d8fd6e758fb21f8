package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lazypower/rooted/internal/store"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the memory tree",
	Long:  "Print the root profile followed by STEM, BRANCH (grouped by domain) and LEAF memories.",
	RunE:  runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.engine.Tree(currentUser())
	if err != nil {
		return fmt.Errorf("load tree: %w", err)
	}

	out := cmd.OutOrStdout()
	if t.Root.Empty() && t.Counts[store.PriorityStem]+t.Counts[store.PriorityBranch]+t.Counts[store.PriorityLeaf] == 0 {
		fmt.Fprintln(out, "Memory tree is empty. Chat for a while first.")
		return nil
	}

	fmt.Fprintln(out, "ROOT")
	if t.Root.PersonaSummary != "" {
		fmt.Fprintf(out, "  %s\n", t.Root.PersonaSummary)
	}

	fmt.Fprintf(out, "\nSTEM (%d)\n", t.Counts[store.PriorityStem])
	for _, n := range t.Stem {
		fmt.Fprintf(out, "  - %s [%s, conf %.2f]\n", n.Content, n.Domain, n.Confidence)
	}

	fmt.Fprintf(out, "\nBRANCH (%d)\n", t.Counts[store.PriorityBranch])
	domains := make([]string, 0, len(t.Branches))
	for d := range t.Branches {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		fmt.Fprintf(out, "  %s\n", d)
		for _, n := range t.Branches[d] {
			fmt.Fprintf(out, "    - %s [x%d]\n", n.Content, n.ReinforcementCount)
		}
	}

	fmt.Fprintf(out, "\nLEAF (%d)\n", t.Counts[store.PriorityLeaf])
	for _, n := range t.Leaf {
		fmt.Fprintf(out, "  - %s [%s]\n", n.Content, n.Domain)
	}
	return nil
}
