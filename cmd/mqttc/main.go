// Command mqttc is a small example client exercising the mqtt package
// over a real TCP connection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.StandardLogger()

func logDebugLevel() logrus.Level { return logrus.DebugLevel }

var rootCmd = &cobra.Command{
	Use:   "mqttc",
	Short: "mqttc is a minimal MQTT 3.1.1 client for the mqtt package",
}

var (
	broker    string
	clientID  string
	keepAlive int
	verbose   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&broker, "broker", "b", "127.0.0.1:1883", "broker host:port to dial")
	rootCmd.PersistentFlags().StringVarP(&clientID, "client-id", "c", "", "MQTT client id (default: a random UUID)")
	rootCmd.PersistentFlags().IntVarP(&keepAlive, "keep-alive", "k", 60, "keep-alive interval in seconds")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(connectCmd, pubCmd, subCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
