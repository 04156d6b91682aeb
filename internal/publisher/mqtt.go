// Package publisher forwards fleet snapshots and status changes to an MQTT broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Client is the part of mqtt.Client the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Connect dials broker and waits up to timeout for the session.
func Connect(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", broker).Info("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out after %s", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

// StatusEvent is published whenever a vehicle changes status.
type StatusEvent struct {
	VehicleID  string               `json:"vehicle_id"`
	From       models.VehicleStatus `json:"from"`
	To         models.VehicleStatus `json:"to"`
	RequestID  string               `json:"request_id,omitempty"`
	DistanceKm float64              `json:"distance_km"`
	ETAMinutes int                  `json:"eta_minutes"`
	Timestamp  time.Time            `json:"timestamp"`
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

// MQTTPublisher queues messages from the fleet observer and sends them from
// Run, so a slow broker never stalls the simulation.
type MQTTPublisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
	queue   chan message

	mu     sync.Mutex
	status map[string]models.VehicleStatus
}

func NewMQTTPublisher(client Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		prefix:  strings.TrimSuffix(prefix, "/"),
		qos:     1,
		timeout: 5 * time.Second,
		queue:   make(chan message, 64),
		status:  make(map[string]models.VehicleStatus),
	}
}

func (p *MQTTPublisher) SnapshotTopic() string {
	return p.prefix + "/fleet/snapshot"
}

func (p *MQTTPublisher) StatusTopic(vehicleID string) string {
	return p.prefix + "/vehicles/" + vehicleID + "/status"
}

// Observe queues the snapshot, retained, plus one event per vehicle whose
// status differs from the previous snapshot. The first snapshot seeds the
// known statuses without emitting events.
func (p *MQTTPublisher) Observe(snap models.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.WithError(err).Error("Failed to marshal snapshot")
		return
	}
	p.enqueue(message{topic: p.SnapshotTopic(), retained: true, payload: data})

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range snap.Vehicles {
		prev, seen := p.status[v.ID]
		p.status[v.ID] = v.Status
		if !seen || prev == v.Status {
			continue
		}
		ev := StatusEvent{
			VehicleID:  v.ID,
			From:       prev,
			To:         v.Status,
			RequestID:  v.RequestID,
			DistanceKm: v.DistanceKm,
			ETAMinutes: v.ETAMinutes,
			Timestamp:  snap.Timestamp,
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID).Error("Failed to marshal status event")
			continue
		}
		p.enqueue(message{topic: p.StatusTopic(v.ID), payload: payload})
	}
}

func (p *MQTTPublisher) enqueue(m message) {
	select {
	case p.queue <- m:
	default:
		log.WithField("topic", m.topic).Warn("MQTT queue full, dropping message")
	}
}

// Run sends queued messages until ctx is done.
func (p *MQTTPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-p.queue:
			if err := p.send(m); err != nil {
				log.WithError(err).WithField("topic", m.topic).Warn("MQTT publish failed")
			}
		}
	}
}

func (p *MQTTPublisher) send(m message) error {
	token := p.client.Publish(m.topic, p.qos, m.retained, m.payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	return token.Error()
}
