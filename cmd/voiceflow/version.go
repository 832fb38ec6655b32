package main

import (
	"fmt"

	"github.com/aretw0/voiceflow"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of voiceflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "voiceflow version %s\n", voiceflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
