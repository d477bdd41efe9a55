package door

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-doorsense/internal/infrastructure/influxdb"
)

type publishCall struct {
	topic   string
	payload []byte
}

// fakeMQTT records retained publishes. errs are returned in order, one per
// call; calls past the end of errs succeed.
type fakeMQTT struct {
	calls []publishCall
	errs  []error
}

func (f *fakeMQTT) PublishRetained(topic string, payload []byte) error {
	f.calls = append(f.calls, publishCall{topic, payload})
	if n := len(f.calls); n <= len(f.errs) {
		return f.errs[n-1]
	}
	return nil
}

type fakeTiltWriter struct {
	samples []influxdb.TiltSample
}

func (f *fakeTiltWriter) WriteDoorTilt(s influxdb.TiltSample) {
	f.samples = append(f.samples, s)
}

type broadcast struct {
	channel string
	payload any
}

type fakeHub struct {
	events []broadcast
}

func (f *fakeHub) Broadcast(channel string, payload any) {
	f.events = append(f.events, broadcast{channel, payload})
}

func testReading(changed bool) Reading {
	return Reading{
		SensorID:      "door-test",
		Orientation:   Orientation{Roll: 90.5, Pitch: 1.5},
		State:         StateClosed,
		PreviousState: StateMoving,
		Changed:       changed,
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeMQTT{}
	p := NewMQTTPublisher(client, "door-test")

	if p.Topic() != "graylogic/state/mpu6050/door-test" {
		t.Errorf("Topic() = %q", p.Topic())
	}

	if err := p.Record(context.Background(), testReading(false)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("published %d messages for unchanged state, want 0", len(client.calls))
	}

	if err := p.Record(context.Background(), testReading(true)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("published %d messages, want 1", len(client.calls))
	}

	call := client.calls[0]
	if call.topic != p.Topic() {
		t.Errorf("topic = %q, want %q", call.topic, p.Topic())
	}

	var msg map[string]any
	if err := json.Unmarshal(call.payload, &msg); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if msg["state"] != "closed" || msg["previous_state"] != "moving" || msg["sensor_id"] != "door-test" {
		t.Errorf("payload = %s", call.payload)
	}
	if msg["roll"] != 90.5 {
		t.Errorf("payload roll = %v, want 90.5", msg["roll"])
	}
}

func TestMQTTPublisher_Error(t *testing.T) {
	client := &fakeMQTT{errs: []error{errors.New("not connected")}}
	p := NewMQTTPublisher(client, "door-test")

	if err := p.Record(context.Background(), testReading(true)); err == nil {
		t.Error("Record() expected error when publish fails")
	}
}

func TestMQTTPublisher_RepublishesAfterFailure(t *testing.T) {
	client := &fakeMQTT{errs: []error{errors.New("not connected")}}
	p := NewMQTTPublisher(client, "door-test")
	ctx := context.Background()

	if err := p.Record(ctx, testReading(true)); err == nil {
		t.Fatal("first Record() error = nil, want publish failure")
	}

	// Same state, but the retained topic never got it.
	if err := p.Record(ctx, testReading(false)); err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("published %d times, want 2 (retry on unchanged reading)", len(client.calls))
	}

	// Once delivered, unchanged readings are quiet again.
	if err := p.Record(ctx, testReading(false)); err != nil {
		t.Fatalf("third Record() error = %v", err)
	}
	if len(client.calls) != 2 {
		t.Errorf("published %d times, want 2", len(client.calls))
	}
}

func TestMQTTPublisher_MarkStale(t *testing.T) {
	client := &fakeMQTT{}
	p := NewMQTTPublisher(client, "door-test")
	ctx := context.Background()

	if err := p.Record(ctx, testReading(true)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	p.MarkStale() // broker reconnect
	if err := p.Record(ctx, testReading(false)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(client.calls) != 2 {
		t.Errorf("published %d times, want 2 (refresh after reconnect)", len(client.calls))
	}
}

func TestInfluxRecorder(t *testing.T) {
	w := &fakeTiltWriter{}
	rec := NewInfluxRecorder(w)

	r := testReading(false)
	r.Kickstarted = true
	if err := rec.Record(context.Background(), r); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if len(w.samples) != 1 {
		t.Fatalf("wrote %d samples, want 1 (every reading)", len(w.samples))
	}
	s := w.samples[0]
	if s.SensorID != "door-test" || s.State != "closed" || s.StatusCode != 200 || !s.Kickstarted {
		t.Errorf("sample = %+v", s)
	}
	if s.Roll != 90.5 || s.Pitch != 1.5 || !s.Time.Equal(r.Timestamp) {
		t.Errorf("sample angles/time = %+v", s)
	}
}

func TestBroadcastRecorder(t *testing.T) {
	hub := &fakeHub{}
	rec := NewBroadcastRecorder(hub)

	_ = rec.Record(context.Background(), testReading(false))
	_ = rec.Record(context.Background(), testReading(true))

	if len(hub.events) != 1 {
		t.Fatalf("broadcast %d events, want 1", len(hub.events))
	}
	if hub.events[0].channel != ChannelStateChanged {
		t.Errorf("channel = %q, want %q", hub.events[0].channel, ChannelStateChanged)
	}
	msg, ok := hub.events[0].payload.(StateMessage)
	if !ok || msg.State != StateClosed {
		t.Errorf("payload = %#v", hub.events[0].payload)
	}
}

type fakeHistoryRepo struct {
	transitions []Transition
	pruneCalls  int
	pruneErr    error
}

func (f *fakeHistoryRepo) RecordTransition(_ context.Context, t Transition) error {
	f.transitions = append(f.transitions, t)
	return nil
}

func (f *fakeHistoryRepo) GetHistory(_ context.Context, _ string, _ int) ([]Transition, error) {
	return f.transitions, nil
}

func (f *fakeHistoryRepo) PruneHistory(_ context.Context, _ time.Duration) (int64, error) {
	f.pruneCalls++
	return 0, f.pruneErr
}

func TestHistoryRecorder(t *testing.T) {
	repo := &fakeHistoryRepo{}
	rec := NewHistoryRecorder(repo)

	_ = rec.Record(context.Background(), testReading(false))
	if err := rec.Record(context.Background(), testReading(true)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if len(repo.transitions) != 1 {
		t.Fatalf("stored %d transitions, want 1", len(repo.transitions))
	}
	got := repo.transitions[0]
	if got.State != StateClosed || got.PreviousState != StateMoving || got.Roll != 90.5 {
		t.Errorf("transition = %+v", got)
	}
}
