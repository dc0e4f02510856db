package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreman2200/lumanet/internal/artnet"
	"github.com/coreman2200/lumanet/internal/dmx"
)

var sendTest struct {
	universe int
	value    int
	host     string
	port     int
}

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Send one universe filled with a single value",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendTest.value < 0 || sendTest.value > 255 {
			return fmt.Errorf("value %d outside 0..255", sendTest.value)
		}
		if sendTest.universe < 0 || sendTest.universe > 0x7fff {
			return fmt.Errorf("universe %d out of range", sendTest.universe)
		}
		cfg := loadConfig()
		applyLogLevel(cfg.Log.Level)
		host, port := cfg.ArtNet.Host, cfg.ArtNet.Port
		if cmd.Flags().Changed("host") {
			host = sendTest.host
		}
		if cmd.Flags().Changed("port") {
			port = sendTest.port
		}

		conn, err := artnet.Dial(cmd.Context(), host, port, 2*time.Second)
		if err != nil {
			return err
		}
		defer conn.Close()
		data := bytes.Repeat([]byte{byte(sendTest.value)}, dmx.MaxChannels)
		if err := conn.Send(uint16(sendTest.universe), data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent universe %d = %d to %s\n", sendTest.universe, sendTest.value, conn.RemoteAddr())
		return nil
	},
}

func init() {
	f := sendTestCmd.Flags()
	f.IntVarP(&sendTest.universe, "universe", "u", 0, "wire universe number")
	f.IntVarP(&sendTest.value, "value", "v", 255, "channel value 0..255")
	f.StringVar(&sendTest.host, "host", "", "Art-Net node address (overrides config)")
	f.IntVar(&sendTest.port, "port", artnet.Port, "Art-Net node UDP port (overrides config)")
	rootCmd.AddCommand(sendTestCmd)
}
