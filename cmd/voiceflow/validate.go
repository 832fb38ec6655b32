package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/voiceflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow]",
	Short: "Check the flow for consistency",
	Long: `Loads the flow and reports every problem at once: dangling transitions,
undeclared handlers, malformed argument declarations and unknown actions.
Nodes unreachable from the initial node are logged as warnings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Flow = args[0]
		}

		f, err := cli.CompileFlow(cfg, logger)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Flow %q is valid: %d nodes, starting at %q ✅\n", f.Name(), len(f.NodeIDs()), f.InitialNode())

		reg, err := cli.NewRegistry(cfg.Handlers)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Handlers: %s\n", strings.Join(reg.Names(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
