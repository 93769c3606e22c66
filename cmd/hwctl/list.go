package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sergeyboyko0791/hardware-wallet-api/internal/config"
)

// EnvWatchInterval overrides the default polling interval of `hwctl watch`.
const EnvWatchInterval = "HW_WATCH_INTERVAL"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Enumerate connected wallet devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, bus := newBridge()
			defer bus.Close()

			infos, err := bridge.Enumerate(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("no devices")
				return nil
			}
			for _, info := range infos {
				fmt.Println(info)
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var flagInterval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously report device list changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval := flagInterval
			if interval <= 0 {
				interval = config.Duration(EnvWatchInterval, time.Second)
			}
			bridge, bus := newBridge()
			defer bus.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log.Info().Dur("interval", interval).Msg("watching for device changes")
			for infos := range bridge.Watch(ctx, interval) {
				if len(infos) == 0 {
					fmt.Println("no devices")
					continue
				}
				for _, info := range infos {
					fmt.Println(info)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&flagInterval, "interval", 0, "Polling interval (defaults to $HW_WATCH_INTERVAL or 1s)")
	return cmd
}

func newRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request",
		Short: "Request access to a supported device",
		Long:  "Triggers the host permission flow for the supported vendor/product pairs. The granted device shows up in the next `hwctl list`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, bus := newBridge()
			defer bus.Close()
			return bridge.RequestPermission(cmd.Context())
		},
	}
}
