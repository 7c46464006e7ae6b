// cmd/checkout-gateway/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:   "checkout-gateway",
		Short: "Payment-intent gateway for the browser checkout form",
		Long: `checkout-gateway validates {amount, currency} requests from the checkout page,
creates a Stripe payment intent and returns its client secret.

Running it without a subcommand starts the server.`,
		RunE:          serve.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
