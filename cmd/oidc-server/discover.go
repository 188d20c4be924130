package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/auth0/go-oidc-server/internal/oidc"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <issuer>",
	Short: "Fetch and print the discovery document of a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issuerURL, err := url.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing issuer: %w", err)
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")

		meta, err := oidc.FetchMetadata(cmd.Context(), &http.Client{Timeout: timeout}, *issuerURL)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().Duration("timeout", 10*time.Second, "HTTP timeout")
}
