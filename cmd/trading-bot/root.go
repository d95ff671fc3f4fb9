package main

import (
	"github.com/spf13/cobra"

	"github.com/Cenotaph26/trading-botv5/cmd/common"
)

var rootCmd = &cobra.Command{
	Use:   "trading-bot",
	Short: "Paper trading agent on live futures market data",
	Long: `Scans perpetual futures symbols on real market data, scores them with
technical indicators and trades a virtual leveraged account.

No orders are ever sent to an exchange. State is served over HTTP:
  /api/status   dashboard snapshot
  /api/debug    diagnostics
  /api/risk     live risk settings (POST)
  /api/export   trade journal (xlsx)
  /metrics      Prometheus metrics`,
	Version:       common.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		common.PrintDetailedVersion(cmd.OutOrStdout(), rootCmd.Use)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
