package main

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/cwsl/ubersstv/sstv"
)

// MQTTPublisher pushes decode results and periodic metric snapshots
// to an MQTT broker
type MQTTPublisher struct {
	client mqtt.Client
	config *MQTTConfig
	done   chan struct{}
}

// DecodePayload is the per-decode MQTT message
type DecodePayload struct {
	JobID       string           `json:"job_id"`
	Timestamp   int64            `json:"timestamp"`
	Diagnostics sstv.Diagnostics `json:"diagnostics"`
}

// MetricPayload is the periodic metrics message
type MetricPayload struct {
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// generateClientID creates a random client ID for the MQTT connection
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "ubersstv_" + hex.EncodeToString(bytes)
}

// loadTLSConfig loads TLS configuration from files
func loadTLSConfig(tlsConfig MQTTTLSConfig) (*tls.Config, error) {
	if !tlsConfig.Enabled {
		return nil, nil
	}

	config := &tls.Config{InsecureSkipVerify: tlsConfig.InsecureSkipVerify}

	if tlsConfig.CACert != "" {
		caCert, err := os.ReadFile(tlsConfig.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = caCertPool
	}

	if tlsConfig.ClientCert != "" && tlsConfig.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.ClientCert, tlsConfig.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	return config, nil
}

// NewMQTTPublisher connects to the broker and starts the periodic
// metrics loop. Returns nil when MQTT is disabled.
func NewMQTTPublisher(config *MQTTConfig) (*MQTTPublisher, error) {
	if !config.Enabled {
		return nil, nil
	}

	scheme := "tcp"
	tlsConfig, err := loadTLSConfig(config.TLS)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		scheme = "ssl"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, config.Broker, config.Port)).
		SetClientID(generateClientID()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p := &MQTTPublisher{
		client: client,
		config: config,
		done:   make(chan struct{}),
	}

	interval := config.MetricsIntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	go p.metricsLoop(time.Duration(interval) * time.Second)

	log.Printf("[MQTT] Connected to %s:%d, publishing under %q",
		config.Broker, config.Port, config.TopicPrefix)
	return p, nil
}

// Close stops the metrics loop and disconnects
func (p *MQTTPublisher) Close() {
	if p == nil {
		return
	}
	close(p.done)
	p.client.Disconnect(250)
}

// PublishDecode publishes one decode's diagnostics
func (p *MQTTPublisher) PublishDecode(jobID string, diag sstv.Diagnostics) {
	if p == nil {
		return
	}
	payload := DecodePayload{
		JobID:       jobID,
		Timestamp:   time.Now().Unix(),
		Diagnostics: diag,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[MQTT] Failed to marshal decode payload: %v", err)
		return
	}
	topic := fmt.Sprintf("%s/decodes/%s", p.config.TopicPrefix, diag.ModeKey)
	p.client.Publish(topic, 0, false, data)
}

// metricsLoop periodically gathers the Prometheus registry and
// publishes a flat snapshot
func (p *MQTTPublisher) metricsLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.publishMetrics()
		}
	}
}

func (p *MQTTPublisher) publishMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Printf("[MQTT] Failed to gather metrics: %v", err)
		return
	}

	payload := MetricPayload{
		Timestamp: time.Now().Unix(),
		Metrics:   make(map[string]float64),
	}
	for _, family := range families {
		for _, metric := range family.Metric {
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name += "_" + label.GetValue()
			}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				payload.Metrics[name] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				payload.Metrics[name] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				payload.Metrics[name+"_count"] = float64(metric.GetHistogram().GetSampleCount())
				payload.Metrics[name+"_sum"] = metric.GetHistogram().GetSampleSum()
			}
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[MQTT] Failed to marshal metrics payload: %v", err)
		return
	}
	p.client.Publish(p.config.TopicPrefix+"/metrics", 0, false, data)
}
