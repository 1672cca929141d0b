// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestHandlerDecodesSample(t *testing.T) {
	var got []imu.Sample
	h := Handler("sts/samples", func(s imu.Sample) { got = append(got, s) })

	payload, err := json.Marshal(imu.Sample{TimestampMs: 20, Gy: 0.5, Ay: 9.8})
	require.NoError(t, err)

	h(nil, fakeMessage{topic: "sts/samples", payload: payload})
	h(nil, fakeMessage{topic: "sts/samples", payload: []byte("{not json")})

	require.Len(t, got, 1)
	require.Equal(t, int64(20), got[0].TimestampMs)
	require.Equal(t, 0.5, got[0].Gy)
}

func TestControlValidate(t *testing.T) {
	for _, a := range []Action{ActionStart, ActionStop, ActionPause, ActionResume, ActionReset} {
		require.NoError(t, Control{Action: a}.Validate())
	}
	require.Error(t, Control{Action: "jump"}.Validate())
	require.Error(t, Control{}.Validate())
}

func TestControlWireFormat(t *testing.T) {
	var c Control
	require.NoError(t, json.Unmarshal([]byte(`{"action":"start","patient":"Ana Lima","participantId":"p-1"}`), &c))
	require.Equal(t, ActionStart, c.Action)
	require.Equal(t, "Ana Lima", c.Patient)
	require.Equal(t, "p-1", c.ParticipantID)
}

func TestPublisherFunc(t *testing.T) {
	var topics []string
	p := PublisherFunc(func(topic string, _ any) error {
		topics = append(topics, topic)
		return nil
	})
	require.NoError(t, p.Publish("a", 1))
	require.Equal(t, []string{"a"}, topics)
}
