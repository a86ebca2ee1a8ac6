package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lucasew/cachequota"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/httpclient"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Asks a server to enforce a tenant quota",
	Long: `prune sends DELETE /artifacts to the servers listed in CACHEQUOTA_SERVER
(a Structured Field Values list) or --server, and prints the remaining files.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		teamID, _ := flags.GetString("team-id")
		slug, _ := flags.GetString("slug")
		id, _ := flags.GetString("id")
		servers, err := flags.GetStringSlice("server")
		if err != nil {
			errutil.ReportError(err, "Failed to get server flag")
			os.Exit(1)
		}

		httpClient, err := newHTTPClient(flags)
		if err != nil {
			errutil.ReportError(err, "Failed to build HTTP client")
			os.Exit(1)
		}

		client := cachequota.NewClient(httpClient)
		if len(servers) > 0 {
			client.Servers = servers
		}

		opts := cachequota.PruneOptions{TeamID: teamID, Slug: slug, ID: id}
		if flags.Changed("mb") {
			mb, err := flags.GetFloat64("mb")
			if err != nil {
				errutil.ReportError(err, "Failed to get mb flag")
				os.Exit(1)
			}
			opts.MB = &mb
		}

		paths, err := client.Prune(cmd.Context(), opts)
		if err != nil {
			errutil.ReportError(err, "Prune failed")
			os.Exit(1)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		errutil.LogMsg(enc.Encode(paths), "Failed to print listing")
	},
}

func newHTTPClient(flags *pflag.FlagSet) (*http.Client, error) {
	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	caPath, err := flags.GetString("ca-cert")
	if err != nil {
		return nil, err
	}

	var caPEM []byte
	if caPath != "" {
		caPEM, err = os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
	}
	return httpclient.NewClient(caPEM, timeout)
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().String("team-id", "", "Tenant team id (takes precedence over --slug)")
	pruneCmd.Flags().String("slug", "", "Tenant slug")
	pruneCmd.Flags().Float64("mb", 0, "Quota in MiB (server default when omitted)")
	pruneCmd.Flags().String("id", "", "Artifact id (accepted, not used for selection)")
	pruneCmd.Flags().StringSlice("server", []string{}, "Server URLs, overriding "+cachequota.ServerEnv)
	pruneCmd.Flags().String("ca-cert", "", "PEM bundle of extra CAs to trust for HTTPS servers")
	pruneCmd.Flags().Duration("timeout", 30*time.Second, "Per-request timeout (0 disables)")
}
