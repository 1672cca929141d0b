// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport carries samples and session events over MQTT as JSON.
package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends a JSON encoded value to a topic.
type Publisher interface {
	Publish(topic string, v any) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(topic string, v any) error

func (f PublisherFunc) Publish(topic string, v any) error { return f(topic, v) }

// Client is a thin JSON wrapper around a paho client.
type Client struct {
	mqtt mqtt.Client
	id   string
}

// Connect dials broker as clientID.
//
// Message handlers run without ordering guarantees so a handler that
// publishes cannot deadlock the paho router.
func Connect(broker, clientID string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt: %s: connection lost: %v", clientID, err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: %s connected to %s", clientID, broker)
	return &Client{mqtt: client, id: clientID}, nil
}

// Publish marshals v and sends it with QoS 0 without waiting for delivery.
// Safe to call from inside a message handler.
func (c *Client) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: marshal for %s: %w", topic, err)
	}
	c.mqtt.Publish(topic, 0, false, payload)
	return nil
}

// PublishWait marshals v and blocks until the broker accepts it or the
// timeout runs out.
func (c *Client) PublishWait(topic string, v any, timeout time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: marshal for %s: %w", topic, err)
	}
	token := c.mqtt.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt: publish to %s timed out", topic)
	}
	return token.Error()
}

// Subscribe decodes every message on topic as T and hands it to fn.
// Malformed payloads are logged and dropped.
func Subscribe[T any](c *Client, topic string, fn func(T)) error {
	token := c.mqtt.Subscribe(topic, 0, Handler(topic, fn))
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: %s subscribed to %s", c.id, topic)
	return nil
}

// Handler builds a paho callback that decodes JSON into T.
func Handler[T any](topic string, fn func(T)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			log.Printf("mqtt: %s payload unmarshal error: %v", topic, err)
			return
		}
		fn(v)
	}
}

// Close disconnects after letting in-flight work drain for 250ms.
func (c *Client) Close() {
	c.mqtt.Disconnect(250)
	log.Printf("mqtt: %s disconnected", c.id)
}
