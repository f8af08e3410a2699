// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	mqttStatusQueue   = 16
	mqttConnectWait   = 10 * time.Second
	mqttStatusSuffix  = "status"
	mqttCommandSuffix = "command"
)

var mqttBridgeCmd = &cobra.Command{
	Use:   "mqtt_bridge",
	Short: "Bridge a flow controller to an MQTT broker",
	Long: `Publish status frames to MQTT and forward commands from MQTT to the board.

Every accepted status frame is published as JSON to <topic>/status:
  {"ticks":300,"total_ticks":1200,"fridge":"ON","valve":"OPEN",
   "temperature":4.5,"timestamp":"2025-01-02T03:04:05Z"}

Messages on <topic>/command are parsed as command names (e.g. "valve_on")
and sent to the board. The bridge requests status on --request-interval
for boards that do not push ticks.

Broker settings can also come from the config file or KEGSTAT_MQTT_*
environment variables.`,
	RunE: runMQTTBridge,
}

func init() {
	rootCmd.AddCommand(mqttBridgeCmd)
	flags := mqttBridgeCmd.Flags()
	flags.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	flags.String("mqtt-topic", "kegstat", "Topic prefix for status and command topics")
	flags.String("mqtt-client-id", "", "MQTT client ID (default kegstat-<random>)")
	flags.Int("mqtt-qos", 0, "QoS for published status messages")
	flags.Duration("request-interval", time.Second, "Send STATUS on this period (0 disables)")
	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// errReceiveLoopEnded is returned when the flow device link fails while
// the bridge is running
var errReceiveLoopEnded = errors.New("flow controller receive loop ended")

// statusMessage is the JSON document published for each status frame
type statusMessage struct {
	Ticks       uint16    `json:"ticks"`
	TotalTicks  uint64    `json:"total_ticks"`
	Fridge      string    `json:"fridge"`
	Valve       string    `json:"valve"`
	Temperature *float64  `json:"temperature,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// newStatusMessage builds the published form of a status frame
func newStatusMessage(p *flowctl.StatusPacket, totalTicks uint64) statusMessage {
	msg := statusMessage{
		Ticks:      p.Ticks(),
		TotalTicks: totalTicks,
		Fridge:     p.Fridge().String(),
		Valve:      p.Valve().String(),
		Timestamp:  p.Timestamp().UTC(),
	}
	if temp, ok := p.Temperature(); ok {
		msg.Temperature = &temp
	}
	return msg
}

// mqttBridge couples a controller with an MQTT client
type mqttBridge struct {
	ctrl   *flowctl.Controller
	client mqtt.Client
	log    *zap.Logger
	topic  string
	qos    byte
	queue  chan statusMessage
}

func runMQTTBridge(cmd *cobra.Command, args []string) error {
	s := loadSettings()
	log, err := loggerFor(s)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	b := &mqttBridge{
		log:   log,
		topic: strings.TrimSuffix(viper.GetString("mqtt-topic"), "/"),
		qos:   byte(viper.GetInt("mqtt-qos")),
		queue: make(chan statusMessage, mqttStatusQueue),
	}

	sess, err := openSession(s, log, flowctl.WithStatusHandler(b.enqueue))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	b.ctrl = sess.ctrl

	clientID := viper.GetString("mqtt-client-id")
	if clientID == "" {
		clientID = "kegstat-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(viper.GetString("mqtt-broker")).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt connection lost", zap.Error(err))
		})
	b.client = mqtt.NewClient(opts)

	token := b.client.Connect()
	if !token.WaitTimeout(mqttConnectWait) {
		return fmt.Errorf("timed out connecting to %s", viper.GetString("mqtt-broker"))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	defer b.client.Disconnect(250)

	log.Info("bridge running",
		zap.String("connection", sess.info),
		zap.String("broker", viper.GetString("mqtt-broker")),
		zap.String("client_id", clientID),
		zap.String("topic", b.topic))

	if err := b.ctrl.Start(); err != nil {
		return err
	}

	return b.run(viper.GetDuration("request-interval"))
}

// enqueue runs on the receive loop and must not block
func (b *mqttBridge) enqueue(p *flowctl.StatusPacket) {
	msg := newStatusMessage(p, b.ctrl.ReadTicks())
	select {
	case b.queue <- msg:
	default:
		b.log.Warn("status queue full; dropping frame", zap.Uint16("ticks", msg.Ticks))
	}
}

func (b *mqttBridge) run(requestInterval time.Duration) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	var request <-chan time.Time
	if requestInterval > 0 {
		ticker := time.NewTicker(requestInterval)
		defer ticker.Stop()
		request = ticker.C
	}

	for {
		select {
		case msg := <-b.queue:
			b.publish(msg)
		case <-request:
			if err := b.ctrl.RequestStatus(); err != nil {
				b.log.Error("status request failed", zap.Error(err))
			}
		case <-b.ctrl.Done():
			return errReceiveLoopEnded
		case s := <-sig:
			b.log.Info("shutting down", zap.Stringer("signal", s))
			return nil
		}
	}
}

func (b *mqttBridge) publish(msg statusMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("failed to marshal status", zap.Error(err))
		return
	}

	token := b.client.Publish(b.topic+"/"+mqttStatusSuffix, b.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("failed to publish status", zap.Error(err))
	}
}

// onConnect (re)subscribes to the command topic
func (b *mqttBridge) onConnect(client mqtt.Client) {
	topic := b.topic + "/" + mqttCommandSuffix
	token := client.Subscribe(topic, 1, b.onCommand)
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Error("failed to subscribe", zap.String("topic", topic), zap.Error(err))
		return
	}
	b.log.Info("subscribed", zap.String("topic", topic))
}

func (b *mqttBridge) onCommand(_ mqtt.Client, m mqtt.Message) {
	c, err := flowctl.ParseCommand(string(m.Payload()))
	if err != nil {
		b.log.Warn("ignoring command", zap.ByteString("payload", m.Payload()), zap.Error(err))
		return
	}
	if err := b.ctrl.Send(c); err != nil {
		b.log.Error("command failed", zap.Stringer("command", c), zap.Error(err))
	}
}
