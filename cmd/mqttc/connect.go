package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "connect to a broker and hold the session open, pinging as needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(logDebugLevel())
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		sess, ticker, err := dialSession(ctx, broker, clientID, time.Duration(keepAlive)*time.Second)
		cancel()
		if err != nil {
			return err
		}
		defer ticker.Stop()

		<-cmd.Context().Done()
		log.Info("mqttc: disconnecting")
		if err := sess.Disconnect(); err != nil {
			return err
		}
		return sess.Sync()
	},
}
