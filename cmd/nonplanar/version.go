package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/internal/presentation/tui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nonplanar",
	Run: func(cmd *cobra.Command, args []string) {
		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}
		fmt.Printf("nonplanar version %s\n", strings.TrimSpace(nonplanar.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
