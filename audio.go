package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pion/rtp"

	"github.com/cwsl/ubersstv/sstv"
)

/*
 * RTP PCM ingest.
 *
 * ka9q-radio style sources multicast demodulated audio as RTP with
 * big-endian int16 payloads. Each SSRC gets its own streaming decode
 * session; completed images land in the output directory and on MQTT.
 */

// AudioReceiver listens for RTP PCM and routes packets to per-SSRC
// decode sessions
type AudioReceiver struct {
	conn    *net.UDPConn
	config  *Config
	metrics *PrometheusMetrics
	mqtt    *MQTTPublisher

	mu       sync.Mutex
	sessions map[uint32]*rtpSession
	running  bool
}

type rtpSession struct {
	decoder  *sstv.StreamDecoder
	lastSeen time.Time
}

// Idle sessions are dropped after this long without a packet.
const rtpSessionTimeout = 2 * time.Minute

// NewAudioReceiver binds the UDP listener
func NewAudioReceiver(config *Config, metrics *PrometheusMetrics, mqtt *MQTTPublisher) (*AudioReceiver, error) {
	addr, err := net.ResolveUDPAddr("udp", config.Audio.RTP.Listen)
	if err != nil {
		return nil, fmt.Errorf("invalid RTP listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind RTP listener: %w", err)
	}

	return &AudioReceiver{
		conn:     conn,
		config:   config,
		metrics:  metrics,
		mqtt:     mqtt,
		sessions: make(map[uint32]*rtpSession),
	}, nil
}

// Start launches the receive loop
func (ar *AudioReceiver) Start() {
	ar.mu.Lock()
	ar.running = true
	ar.mu.Unlock()

	log.Printf("[RTP] Listening for PCM on %s", ar.config.Audio.RTP.Listen)
	go ar.receiveLoop()
	go ar.reapLoop()
}

// Stop shuts the listener down
func (ar *AudioReceiver) Stop() {
	ar.mu.Lock()
	ar.running = false
	ar.mu.Unlock()
	ar.conn.Close()
}

func (ar *AudioReceiver) receiveLoop() {
	buffer := make([]byte, 65536)

	for {
		n, _, err := ar.conn.ReadFromUDP(buffer)
		if err != nil {
			ar.mu.Lock()
			running := ar.running
			ar.mu.Unlock()
			if !running {
				return
			}
			log.Printf("[RTP] Error reading UDP packet: %v", err)
			continue
		}
		if n < 12 {
			continue
		}

		packet := &rtp.Packet{}
		if err := packet.Unmarshal(buffer[:n]); err != nil {
			if DebugMode {
				log.Printf("[RTP] Error parsing RTP packet: %v", err)
			}
			continue
		}
		if len(packet.Payload) == 0 || len(packet.Payload)%2 != 0 {
			continue
		}

		ar.metrics.rtpPackets.Inc()
		ar.routeAudio(packet.SSRC, packet.Payload)
	}
}

// routeAudio feeds one packet's PCM into its SSRC's session
func (ar *AudioReceiver) routeAudio(ssrc uint32, payload []byte) {
	ar.mu.Lock()
	session, ok := ar.sessions[ssrc]
	if !ok {
		log.Printf("[RTP] New session for SSRC %08x", ssrc)
		session = &rtpSession{
			decoder: sstv.NewStreamDecoder(ar.config.Audio.SampleRate, ar.config.SSTVConfig(),
				func(res *sstv.Result) { ar.onDecode(ssrc, res) }),
		}
		ar.sessions[ssrc] = session
		ar.metrics.rtpSessions.Set(float64(len(ar.sessions)))
	}
	session.lastSeen = time.Now()
	ar.mu.Unlock()

	// radiod RTP carries big-endian int16 samples
	samples := make([]int16, len(payload)/2)
	for i := range samples {
		samples[i] = int16(payload[i*2])<<8 | int16(payload[i*2+1])
	}
	session.decoder.WriteInt16(samples)
}

// onDecode handles a completed off-air image
func (ar *AudioReceiver) onDecode(ssrc uint32, res *sstv.Result) {
	log.Printf("[RTP] SSRC %08x decoded %s, verdict %s",
		ssrc, res.Diagnostics.ModeName, res.Diagnostics.Quality.Verdict)

	ar.metrics.ObserveDecode(res)
	if ar.mqtt != nil {
		ar.mqtt.PublishDecode(fmt.Sprintf("rtp-%08x-%d", ssrc, time.Now().Unix()), res.Diagnostics)
	}

	dir := ar.config.Server.OutputDir
	if dir == "" {
		return
	}
	pngData, err := encodePNG(res.Pixels, res.Width, res.Height)
	if err != nil {
		log.Printf("[RTP] Failed to encode PNG: %v", err)
		return
	}
	name := fmt.Sprintf("%s_%08x_%s.png",
		time.Now().UTC().Format("20060102T150405Z"), ssrc, res.Diagnostics.ModeKey)
	if err := os.WriteFile(filepath.Join(dir, name), pngData, 0o644); err != nil {
		log.Printf("[RTP] Failed to write %s: %v", name, err)
	}
}

// reapLoop drops sessions whose source went quiet
func (ar *AudioReceiver) reapLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ar.mu.Lock()
		if !ar.running {
			ar.mu.Unlock()
			return
		}
		for ssrc, session := range ar.sessions {
			if time.Since(session.lastSeen) > rtpSessionTimeout {
				log.Printf("[RTP] Reaping idle session %08x", ssrc)
				delete(ar.sessions, ssrc)
			}
		}
		ar.metrics.rtpSessions.Set(float64(len(ar.sessions)))
		ar.mu.Unlock()
	}
}
