package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [id]",
	Short: "List stored jobs, or show one",
	Long:  `Reads the configured job store (file or redis). Without an ID, lists job IDs, most recent first.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, closeStore, err := newEngine(nil)
		if err != nil {
			return err
		}
		defer closeStore()

		if len(args) == 0 {
			ids, err := eng.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}

		job, err := eng.Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		}
		printReport(job)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().Bool("json", false, "Print the full job as JSON")
}
