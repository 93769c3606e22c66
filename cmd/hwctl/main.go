package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sergeyboyko0791/hardware-wallet-api/internal/env"
	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/link"
	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

var rootCmd = &cobra.Command{
	Use:   "hwctl",
	Short: "Hardware wallet USB session tooling",
	Long:  "hwctl drives the wallet session and transport layer directly: enumerate connected devices, watch for plug events, and exchange raw 64-byte frames over the normal or debug link.",
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.AddCommand(
		newListCmd(),
		newWatchCmd(),
		newWriteCmd(),
		newReadCmd(),
		newRequestCmd(),
	)
	_ = env.Ensure()
}

// newBridge wires the gousb bus into the link layer with env-driven defaults.
func newBridge() (*link.Bridge, *usb.GousbBus) {
	bus := usb.NewGousbBus(link.SupportedFilters())
	return link.New(bus, link.Config{}), bus
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("hwctl command failed")
	}
}
