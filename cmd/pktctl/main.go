package main

import (
	"fmt"
	"os"

	"github.com/danmuck/compacket/internal/logging"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logging.ConfigureRuntime()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pktctl",
		Short: "Inspect, encode and decode packets described by a schema file",
		Long: `pktctl works with TOML packet schemas.

Packets are encoded as [id bytes][field 1]...[field N] with numbers in
host byte order, text NUL-terminated and bitfields as raw bytes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		initCmd(),
		validateCmd(),
		sizesCmd(),
		encodeCmd(),
		decodeCmd(),
		loopCmd(),
		sendCmd(),
		listenCmd(),
		versionCmd(),
	)
	return root
}
