package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"saffaucet/logx"
)

var rootCmd = &cobra.Command{
	Use:   "faucetd",
	Short: "Test-token faucet daemon",
	Long:  "Dispenses a fixed amount of test-network tokens per eligible request, with per-IP and per-address daily quotas.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
