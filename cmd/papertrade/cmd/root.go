package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrade",
	Short: "A paper-trading simulator with live market quotes",
	Long: `Papertrade lets you practice trading against a simulated balance using
live third-party market quotes, without risking real assets.

It keeps an internally consistent ledger of cash and holdings across
repeated buy/sell operations, tracks weighted-average cost, and keeps an
immutable trade log, even while the external price feed degrades to
fallback data and recovers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
