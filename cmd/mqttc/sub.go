package main

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/nilq/mqttc"
	"github.com/spf13/cobra"
)

var subTopics []string
var subQoS int

var subCmd = &cobra.Command{
	Use:   "sub",
	Short: "subscribe to one or more topics and print incoming messages until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(subTopics) == 0 {
			return fmt.Errorf("mqttc sub: at least one --topic is required")
		}
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

		sess.OnPublish = func(topic string, payload []byte, qos mqtt.QoSLevel, retain bool) {
			fmt.Printf("%s %s (qos=%d retain=%t)\n", topic, payload, qos, retain)
		}

		filters := make([]mqtt.SubscribeRequest, len(subTopics))
		for i, t := range subTopics {
			filters[i] = mqtt.SubscribeRequest{Topic: t, QoS: mqtt.QoSLevel(subQoS)}
		}
		if _, err := sess.Subscribe(filters); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		log.WithField("topics", subTopics).Info("mqttc: subscribed")

		<-cmd.Context().Done()
		log.Info("mqttc: disconnecting")
		if err := sess.Disconnect(); err != nil {
			return err
		}
		return sess.Sync()
	},
}

func init() {
	subCmd.Flags().StringArrayVarP(&subTopics, "topic", "t", nil, "topic filter to subscribe to (repeatable)")
	subCmd.Flags().IntVarP(&subQoS, "qos", "q", 0, "requested QoS level (0, 1 or 2)")
}
