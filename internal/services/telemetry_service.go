package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iotp2c/ditto-twin/internal/constants"
	"github.com/iotp2c/ditto-twin/internal/models"
	"github.com/iotp2c/ditto-twin/pkg/ditto"
	"github.com/iotp2c/ditto-twin/pkg/identity"
	"github.com/iotp2c/ditto-twin/pkg/mqtt"
)

const featuresPath = "/features"

// TelemetryService simulates a smart watch publishing its readings to its twin
// as Ditto protocol modify commands. It also listens on the device's event topic
// for the modified events Ditto sends back once a command is applied.
type TelemetryService struct {
	Identity   identity.Identity
	Interval   time.Duration
	QOS        int
	MqttClient mqtt.MQTTClient
	Logger     zerolog.Logger

	mu        sync.Mutex
	reading   models.WatchReading
	rng       *rand.Rand
	lastEvent *models.DittoProtocolMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTelemetryService initializes a new TelemetryService for the device.
func NewTelemetryService(id identity.Identity, interval time.Duration, qos int,
	mqttClient mqtt.MQTTClient, logger zerolog.Logger) *TelemetryService {

	return &TelemetryService{
		Identity:   id,
		Interval:   interval,
		QOS:        qos,
		MqttClient: mqttClient,
		Logger:     logger,
		reading:    models.WatchReading{HeartRate: 70, BatteryLevel: 100},
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Start launches the telemetry loop in a separate goroutine.
func (t *TelemetryService) Start() error {
	if t.ctx != nil {
		t.Logger.Warn().Msg("TelemetryService is already running")
		return errors.New("telemetry service is already running")
	}

	token := t.MqttClient.Subscribe(t.Identity.EventTopic(), byte(t.QOS), t.handleTwinEvent)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", t.Identity.EventTopic(), err)
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.runTelemetryLoop()
	}()

	t.Logger.Info().
		Str("topic", t.Identity.CommandTopic()).
		Str("event_topic", t.Identity.EventTopic()).
		Msg("TelemetryService started successfully")
	return nil
}

// Stop gracefully stops the telemetry service.
func (t *TelemetryService) Stop() error {
	if t.ctx == nil {
		t.Logger.Warn().Msg("TelemetryService is not running")
		return errors.New("telemetry service is not running")
	}

	t.cancel()
	t.wg.Wait()

	token := t.MqttClient.Unsubscribe(t.Identity.EventTopic())
	token.Wait()
	if err := token.Error(); err != nil {
		t.Logger.Warn().Err(err).Msg("Failed to unsubscribe from twin events")
	}

	t.ctx = nil
	t.cancel = nil

	t.Logger.Info().Msg("TelemetryService stopped successfully")
	return nil
}

// NextReading advances the simulated watch by one sample.
func (t *TelemetryService) NextReading() models.WatchReading {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reading.HeartRate = 60 + t.rng.IntN(41)
	t.reading.Steps += t.rng.IntN(30)
	if t.reading.BatteryLevel > 0 && t.rng.IntN(4) == 0 {
		t.reading.BatteryLevel--
	}
	return t.reading
}

// Message wraps a reading in a Ditto protocol command that replaces the twin's features.
func (t *TelemetryService) Message(reading models.WatchReading) models.DittoProtocolMessage {
	property := func(v int) map[string]any {
		return map[string]any{"properties": map[string]any{"value": v}}
	}
	return models.DittoProtocolMessage{
		Topic:   t.Identity.ProtocolTopic(),
		Headers: map[string]string{ditto.CorrelationIDHeader: uuid.NewString()},
		Path:    featuresPath,
		Value: map[string]any{
			constants.FeatureHeartRate:    property(reading.HeartRate),
			constants.FeatureBatteryLevel: property(reading.BatteryLevel),
			constants.FeatureSteps:        property(reading.Steps),
		},
	}
}

// PublishReading publishes one reading to the device's command topic.
func (t *TelemetryService) PublishReading(reading models.WatchReading) error {
	payload, err := json.Marshal(t.Message(reading))
	if err != nil {
		return fmt.Errorf("failed to serialize telemetry message: %w", err)
	}

	token := t.MqttClient.Publish(t.Identity.CommandTopic(), byte(t.QOS), false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish telemetry message: %w", err)
	}
	return nil
}

// LastTwinEvent returns the most recent modified event received for the twin.
func (t *TelemetryService) LastTwinEvent() (models.DittoProtocolMessage, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastEvent == nil {
		return models.DittoProtocolMessage{}, false
	}
	return *t.lastEvent, true
}

// handleTwinEvent records a modified event published by Ditto's connection target.
func (t *TelemetryService) handleTwinEvent(_ paho.Client, msg paho.Message) {
	var event models.DittoProtocolMessage
	if err := json.Unmarshal(msg.Payload(), &event); err != nil {
		t.Logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Discarding malformed twin event")
		return
	}

	t.mu.Lock()
	t.lastEvent = &event
	t.mu.Unlock()

	t.Logger.Debug().
		Str("path", event.Path).
		Int64("revision", event.Revision).
		Msg("Twin modified")
}

// runTelemetryLoop publishes a reading at every tick until stopped.
func (t *TelemetryService) runTelemetryLoop() {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reading := t.NextReading()
			if err := t.PublishReading(reading); err != nil {
				t.Logger.Error().Err(err).Msg("Failed to publish telemetry")
				continue
			}
			t.Logger.Debug().
				Int(constants.FeatureHeartRate, reading.HeartRate).
				Int(constants.FeatureBatteryLevel, reading.BatteryLevel).
				Int(constants.FeatureSteps, reading.Steps).
				Msg("Telemetry published successfully")

		case <-t.ctx.Done():
			t.Logger.Info().Msg("TelemetryService stopping gracefully")
			return
		}
	}
}
