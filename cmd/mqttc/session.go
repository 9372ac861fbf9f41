package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	mqtt "github.com/nilq/mqttc"
	"github.com/nilq/mqttc/refresher"
	"github.com/nilq/mqttc/transport/tcp"
)

// dialSession opens a TCP connection to broker, builds a Session around it
// and drives the CONNECT handshake to completion (or ctx expiring).
func dialSession(ctx context.Context, broker, cid string, keepAlive time.Duration) (*mqtt.Session, *refresher.Ticker, error) {
	if cid == "" {
		cid = uuid.New().String()
	}
	conn, err := net.Dial("tcp", broker)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", broker, err)
	}
	log.WithField("client_id", cid).Info("mqttc: dialed broker")

	sess := &mqtt.Session{
		Transport: tcp.New(conn),
		Log:       log,
	}
	if err := sess.Init(
		mqtt.WithClientID(cid),
		mqtt.WithKeepAlive(keepAlive),
		mqtt.WithLogger(log),
	); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init session: %w", err)
	}

	if err := sess.Connect(mqtt.VariablesConnect{CleanSession: true}); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("enqueue CONNECT: %w", err)
	}

	for !sess.Connected() {
		if err := sess.Sync(); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("sync: %w", err)
		}
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	log.Info("mqttc: CONNACK received, session established")

	t := &refresher.Ticker{
		Session: sess,
		Period:  500 * time.Millisecond,
		Log:     log,
		OnError: func(err error) {
			log.WithError(err).Error("mqttc: sync failed")
		},
	}
	t.Start()
	return sess, t, nil
}
