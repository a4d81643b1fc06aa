package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"saffaucet/chain"
	"saffaucet/config"
	"saffaucet/faucet"
	"saffaucet/wallet"
)

var fundFlags struct {
	ConfigPath string
	Timeout    time.Duration
}

// fundCmd dispatches a single transfer from the command line, bypassing the
// HTTP quota gate. Useful for seeding accounts during network bring-up.
var fundCmd = &cobra.Command{
	Use:   "fund <recipient>",
	Short: "Send one faucet payout to a recipient address",
	Long: `Sends the configured payout amount from the faucet's funding account to the
given recipient, using the same stabilize-and-retry dispatch pipeline the
HTTP service uses. Quotas are not applied.

Example:
  faucetd fund addr_safro1xyzabc... --config faucet.yml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipient := args[0]

		cfg, err := config.NewFileProvider(fundFlags.ConfigPath).Load()
		if err != nil {
			return err
		}
		if !wallet.ValidateAddress(recipient, cfg.AddressPrefix) {
			return fmt.Errorf("recipient %q does not carry the %q prefix", recipient, cfg.AddressPrefix)
		}

		ctx, cancel := context.WithTimeout(context.Background(), fundFlags.Timeout)
		defer cancel()

		dispatcher := faucet.NewDispatcher(chain.NewRestGateway, config.DefaultDispatchTuning())
		success, err := dispatcher.Dispatch(ctx, cfg, recipient)
		if err != nil {
			return err
		}

		fmt.Printf("sent %s%s to %s\n", success.Amount, success.Denom, recipient)
		fmt.Printf("tx: %s (height %d)\n", success.TxHash, success.Height)
		if success.ExplorerTxURL != "" {
			fmt.Printf("explorer: %s\n", success.ExplorerTxURL)
		}
		return nil
	},
}

func init() {
	fundCmd.Flags().StringVar(&fundFlags.ConfigPath, "config", "faucet.yml", "path to the faucet config file")
	fundCmd.Flags().DurationVar(&fundFlags.Timeout, "timeout", 2*time.Minute, "overall dispatch timeout")
	rootCmd.AddCommand(fundCmd)
}

// fundingAddress derives the funding account's address from the configured
// key material. Shared with the serve command's self-check.
func fundingAddress(cfg *config.FaucetConfig) (string, error) {
	seed, err := cfg.FundingSeed()
	if err != nil {
		return "", err
	}
	funding, err := wallet.NewWallet(seed, cfg.AddressPrefix)
	if err != nil {
		return "", err
	}
	return funding.Address(), nil
}
