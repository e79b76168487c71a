package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uni_directory/internal/compare"
)

var (
	compareType string
	compareIDs  []int64
	compareJSON bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare up to three universities or faculties side by side",
	Example: `  unictl compare --type universities --ids 1,2
  unictl compare --type faculties --ids 1,4,7 --json`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareType, "type", "t", string(compare.Universities), "universities|faculties")
	compareCmd.Flags().Int64SliceVar(&compareIDs, "ids", nil, "comma-separated ids to compare")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the table as JSON")
	_ = compareCmd.MarkFlagRequired("ids")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	kind := compare.Kind(strings.ToLower(compareType))
	if !kind.Valid() {
		return fmt.Errorf("--type must be universities or faculties, got %q", compareType)
	}
	q, err := ensureQueries(cmd.Context())
	if err != nil {
		return err
	}

	sel := compare.NewSelector(kind)
	for _, id := range compareIDs {
		if sel.Contains(id) {
			continue
		}
		if sel.Count() >= compare.MaxItems {
			return errors.New(compare.LimitMessage)
		}
		it, err := q.Item(cmd.Context(), kind, id)
		if err != nil {
			return fmt.Errorf("%s %d: %w", kind, id, err)
		}
		if err := sel.Add(it); err != nil {
			return err
		}
	}

	if sel.Stage() != compare.StageReady {
		fmt.Fprintln(cmd.OutOrStdout(), "Select at least two items to compare.")
		return nil
	}

	table := compare.Project(sel.Items(), compare.SchemaFor(kind))
	if compareJSON {
		return outputJSON(cmd, table)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	header := []string{"FIELD"}
	for _, c := range table.Columns {
		header = append(header, c.Name)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range table.Rows {
		fmt.Fprintln(tw, r.Label+"\t"+strings.Join(r.Values, "\t"))
	}
	return tw.Flush()
}
