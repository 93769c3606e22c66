package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWriteCmd() *cobra.Command {
	var (
		flagPath string
		flagHex  string
	)

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write one frame to a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(flagPath)
			if path == "" {
				return errors.New("--path is required")
			}
			payload, err := hex.DecodeString(strings.TrimSpace(flagHex))
			if err != nil {
				return errors.Wrap(err, "decode --hex payload")
			}
			bridge, bus := newBridge()
			defer bus.Close()

			if err := bridge.Send(cmd.Context(), path, payload); err != nil {
				return err
			}
			log.Info().Str("path", path).Int("bytes", len(payload)).Msg("frame written")
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPath, "path", "", "Device path from `hwctl list`")
	cmd.Flags().StringVar(&flagHex, "hex", "", "Frame payload as a hex string")
	return cmd
}

func newReadCmd() *cobra.Command {
	var (
		flagPath  string
		flagCount int
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read frames from a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(flagPath)
			if path == "" {
				return errors.New("--path is required")
			}
			count := flagCount
			if count <= 0 {
				count = 1
			}
			bridge, bus := newBridge()
			defer bus.Close()

			for i := 0; i < count; i++ {
				frame, err := bridge.Receive(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Println(hex.EncodeToString(frame))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPath, "path", "", "Device path from `hwctl list`")
	cmd.Flags().IntVar(&flagCount, "count", 1, "Number of frames to read")
	return cmd
}
