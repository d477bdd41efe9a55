package door

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/mqtt"
)

// Protocol is the protocol segment used in MQTT state topics.
const Protocol = "mpu6050"

// ChannelStateChanged is the WebSocket channel carrying door transitions.
const ChannelStateChanged = "door.state_changed"

// MQTTClient is the interface for publishing state to the broker.
type MQTTClient interface {
	// PublishRetained publishes payload as the topic's retained message.
	PublishRetained(topic string, payload []byte) error
}

// TiltWriter is the interface for writing telemetry points.
type TiltWriter interface {
	WriteDoorTilt(s influxdb.TiltSample)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// StateMessage is the payload published on transitions over MQTT and
// WebSocket.
type StateMessage struct {
	SensorID      string    `json:"sensor_id"`
	State         State     `json:"state"`
	PreviousState State     `json:"previous_state"`
	Roll          float64   `json:"roll"`
	Pitch         float64   `json:"pitch"`
	Kickstarted   bool      `json:"kickstarted"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewStateMessage builds the transition payload for r.
func NewStateMessage(r Reading) StateMessage {
	return StateMessage{
		SensorID:      r.SensorID,
		State:         r.State,
		PreviousState: r.PreviousState,
		Roll:          r.Orientation.Roll,
		Pitch:         r.Orientation.Pitch,
		Kickstarted:   r.Kickstarted,
		Timestamp:     r.Timestamp,
	}
}

// MQTTPublisher keeps the retained state topic in step with the door.
//
// It publishes on every transition. After a failed publish, or after
// MarkStale, the next reading is published even if the state did not change,
// so the retained message cannot stay behind the door.
type MQTTPublisher struct {
	client MQTTClient
	topic  string

	mu    sync.Mutex
	stale bool
}

// NewMQTTPublisher creates a publisher for the given sensor.
//
// State is published to graylogic/state/mpu6050/{sensorID}.
func NewMQTTPublisher(client MQTTClient, sensorID string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  mqtt.Topics{}.DeviceState(Protocol, sensorID),
	}
}

// Topic returns the state topic.
func (p *MQTTPublisher) Topic() string {
	return p.topic
}

// MarkStale forces the next reading to be published. It is registered as
// an MQTT on-connect hook.
func (p *MQTTPublisher) MarkStale() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

// Record publishes r when the state changed or the retained state is stale.
func (p *MQTTPublisher) Record(_ context.Context, r Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !r.Changed && !p.stale {
		return nil
	}

	payload, err := json.Marshal(NewStateMessage(r))
	if err != nil {
		return fmt.Errorf("marshalling state message: %w", err)
	}
	if err := p.client.PublishRetained(p.topic, payload); err != nil {
		p.stale = true
		return fmt.Errorf("publishing door state: %w", err)
	}
	p.stale = false
	return nil
}

// InfluxRecorder writes every reading as a door_tilt point.
type InfluxRecorder struct {
	writer TiltWriter
}

// NewInfluxRecorder creates a telemetry recorder.
func NewInfluxRecorder(w TiltWriter) *InfluxRecorder {
	return &InfluxRecorder{writer: w}
}

// Record writes r. Writes are batched asynchronously and never fail here.
func (i *InfluxRecorder) Record(_ context.Context, r Reading) error {
	i.writer.WriteDoorTilt(influxdb.TiltSample{
		SensorID:    r.SensorID,
		State:       r.State.String(),
		Roll:        r.Orientation.Roll,
		Pitch:       r.Orientation.Pitch,
		StatusCode:  r.State.HTTPStatus(),
		Kickstarted: r.Kickstarted,
		Time:        r.Timestamp,
	})
	return nil
}

// HistoryRecorder stores transitions in a HistoryRepository.
type HistoryRecorder struct {
	repo HistoryRepository
}

// NewHistoryRecorder creates a transition history recorder.
func NewHistoryRecorder(repo HistoryRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// Record inserts a history row when the state changed.
func (h *HistoryRecorder) Record(ctx context.Context, r Reading) error {
	if !r.Changed {
		return nil
	}
	return h.repo.RecordTransition(ctx, Transition{
		SensorID:      r.SensorID,
		State:         r.State,
		PreviousState: r.PreviousState,
		Roll:          r.Orientation.Roll,
		Pitch:         r.Orientation.Pitch,
		Kickstarted:   r.Kickstarted,
		CreatedAt:     r.Timestamp,
	})
}

// BroadcastRecorder pushes transitions to WebSocket subscribers.
type BroadcastRecorder struct {
	hub WSHub
}

// NewBroadcastRecorder creates a WebSocket transition recorder.
func NewBroadcastRecorder(hub WSHub) *BroadcastRecorder {
	return &BroadcastRecorder{hub: hub}
}

// Record broadcasts r on ChannelStateChanged when the state changed.
func (b *BroadcastRecorder) Record(_ context.Context, r Reading) error {
	if r.Changed {
		b.hub.Broadcast(ChannelStateChanged, NewStateMessage(r))
	}
	return nil
}
