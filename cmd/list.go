package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the chronicles under the root",
	RunE:  runList,
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the known event kinds and their required fields",
	RunE:  runKinds,
}

func init() {
	rootCmd.AddCommand(listCmd, kindsCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	paths, err := store.List()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No chronicles found.")
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func runKinds(_ *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range chronicle.KnownKinds() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", k, strings.Join(chronicle.RequiredFields(k), ", ")); err != nil {
			return err
		}
	}
	return w.Flush()
}
