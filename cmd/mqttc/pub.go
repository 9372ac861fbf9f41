package main

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/nilq/mqttc"
	"github.com/spf13/cobra"
)

var (
	pubTopic   string
	pubMessage string
	pubQoS     int
	pubRetain  bool
)

var pubCmd = &cobra.Command{
	Use:   "pub",
	Short: "publish a single message and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pubTopic == "" {
			return fmt.Errorf("mqttc pub: --topic is required")
		}
		if verbose {
			log.SetLevel(logDebugLevel())
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		sess, ticker, err := dialSession(ctx, broker, clientID, time.Duration(keepAlive)*time.Second)
		if err != nil {
			return err
		}
		defer ticker.Stop()

		qos := mqtt.QoSLevel(pubQoS)
		if !qos.IsValid() {
			return fmt.Errorf("mqttc pub: invalid --qos %d", pubQoS)
		}
		pid, err := sess.Publish(pubTopic, []byte(pubMessage), qos, pubRetain)
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		log.WithFields(map[string]any{"topic": pubTopic, "qos": qos, "packet_id": pid}).Info("mqttc: publish enqueued")

		// Give QoS1/QoS2 handshakes a few Sync rounds to complete before
		// disconnecting; QoS0 has nothing to wait for.
		rounds := 1
		if qos != mqtt.QoS0 {
			rounds = 20
		}
		for i := 0; i < rounds; i++ {
			if err := sess.Sync(); err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			time.Sleep(50 * time.Millisecond)
		}
		if err := sess.Disconnect(); err != nil {
			return err
		}
		return sess.Sync()
	},
}

func init() {
	pubCmd.Flags().StringVarP(&pubTopic, "topic", "t", "", "topic to publish to")
	pubCmd.Flags().StringVarP(&pubMessage, "message", "m", "", "message payload")
	pubCmd.Flags().IntVarP(&pubQoS, "qos", "q", 0, "QoS level (0, 1 or 2)")
	pubCmd.Flags().BoolVarP(&pubRetain, "retain", "r", false, "set the RETAIN flag")
}
