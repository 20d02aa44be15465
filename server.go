package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwsl/ubersstv/sstv"
)

// Server exposes the codec over HTTP: one-shot decode/encode uploads,
// a live decode websocket, mode listing and status.
type Server struct {
	config  *Config
	metrics *PrometheusMetrics
	mqtt    *MQTTPublisher

	upgrader websocket.Upgrader

	decodesOK     atomic.Int64
	decodesFailed atomic.Int64
	encodesOK     atomic.Int64
}

// NewServer creates the HTTP server wiring
func NewServer(config *Config, metrics *PrometheusMetrics, mqtt *MQTTPublisher) *Server {
	s := &Server{
		config:  config,
		metrics: metrics,
		mqtt:    mqtt,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  32 * 1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return config.Server.AllowOrigins || r.Header.Get("Origin") == ""
		},
	}
	return s
}

// Register mounts all API routes on the mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/modes", s.handleModes)
	mux.HandleFunc("/api/decode", s.handleDecode)
	mux.HandleFunc("/api/encode", s.handleEncode)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws/decode", s.handleLiveDecode)
}

func (s *Server) maxUpload() int {
	mb := s.config.Server.MaxUploadMB
	if mb <= 0 {
		mb = 64
	}
	return mb << 20
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// handleModes lists the supported modes
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	type modeInfo struct {
		Key        string  `json:"key"`
		Name       string  `json:"name"`
		VIS        int     `json:"vis"`
		Width      int     `json:"width"`
		Lines      int     `json:"lines"`
		Color      string  `json:"color"`
		LineTimeMS float64 `json:"line_time_ms"`
	}
	var out []modeInfo
	for _, m := range sstv.Modes() {
		out = append(out, modeInfo{
			Key: m.Key, Name: m.Name, VIS: int(m.VIS),
			Width: m.Width, Lines: m.Lines,
			Color:      m.Color.String(),
			LineTimeMS: m.LineTime() * 1000,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// readBody reads the request body, transparently expanding zstd
// uploads
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, int64(s.maxUpload())+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > s.maxUpload() {
		return nil, fmt.Errorf("upload exceeds %d MB limit", s.maxUpload()>>20)
	}
	if r.Header.Get("Content-Encoding") == "zstd" {
		return decompressUpload(body, s.maxUpload())
	}
	return body, nil
}

// handleDecode accepts a WAV upload and returns diagnostics plus the
// decoded image. ?format=png returns the PNG body directly.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST a WAV file to this endpoint")
		return
	}

	body, err := s.readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	samples, rate, err := sstv.ReadWAV(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	jobID := uuid.New().String()
	log.Printf("[Server] Decode job %s: %.1fs of audio at %d Hz",
		jobID, float64(len(samples))/float64(rate), rate)

	dec := sstv.NewDecoder(rate, s.config.SSTVConfig())
	res, err := dec.Decode(r.Context(), samples)
	if err != nil {
		s.decodesFailed.Add(1)
		writeError(w, http.StatusUnprocessableEntity, "%s", decodeErrorMessage(err))
		return
	}

	s.decodesOK.Add(1)
	s.metrics.ObserveDecode(res)
	if s.mqtt != nil {
		s.mqtt.PublishDecode(jobID, res.Diagnostics)
	}

	pngData, err := encodePNG(res.Pixels, res.Width, res.Height)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	if r.URL.Query().Get("format") == "png" {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Job-ID", jobID)
		w.Write(pngData)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":      jobID,
		"diagnostics": res.Diagnostics,
		"width":       res.Width,
		"height":      res.Height,
		"png_base64":  pngData,
	})
}

// decodeErrorMessage maps decoder errors to user-facing text
func decodeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, sstv.ErrNoSync) {
		return "Could not find sync pulse. Make sure this is a valid SSTV transmission."
	}
	return err.Error()
}

// handleEncode accepts a PNG/JPEG upload plus ?mode= and returns WAV
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST an image to this endpoint")
		return
	}

	modeKey := r.URL.Query().Get("mode")
	mode := sstv.ModeByKey(modeKey)
	if mode == nil {
		writeError(w, http.StatusBadRequest, "unknown mode %q; see /api/modes", modeKey)
		return
	}

	body, err := s.readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	pixels, err := loadImageRGBA(bytes.NewReader(body), mode.Width, mode.Lines)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	enc := sstv.NewEncoder(s.config.Encoder.SampleRate)
	wav, err := enc.Encode(pixels, mode.Width, mode.Lines, mode.Key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}

	s.encodesOK.Add(1)
	s.metrics.ObserveEncode(mode.Key)
	log.Printf("[Server] Encoded %s transmission (%d samples)", mode.Name, (len(wav)-44)/2)

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.wav", mode.Key))
	w.Write(wav)
}

// handleLiveDecode upgrades to a websocket: the client streams raw
// int16 PCM up and receives mode/line/complete frames down.
func (s *Server) handleLiveDecode(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.metrics.wsSessions.Inc()
	defer s.metrics.wsSessions.Dec()

	rate := s.config.Audio.SampleRate
	codec := frameCodec{compress: s.config.Server.CompressWS}

	send := func(frame []byte) {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			log.Printf("[Server] Websocket write failed: %v", err)
		}
	}

	session := sstv.NewStreamDecoder(rate, s.config.SSTVConfig(), func(res *sstv.Result) {
		if m := sstv.ModeByKey(res.Diagnostics.ModeKey); m != nil {
			send(codec.modeDetectedFrame(m))
		}
		for y := 0; y < res.Height; y++ {
			send(codec.imageLineFrame(y, res.Pixels[y*res.Width*4:(y+1)*res.Width*4]))
		}
		send(codec.completeFrame(res.Diagnostics))

		s.decodesOK.Add(1)
		s.metrics.ObserveDecode(res)
		if s.mqtt != nil {
			s.mqtt.PublishDecode(uuid.New().String(), res.Diagnostics)
		}
	})

	send(codec.statusFrame(fmt.Sprintf("Listening for SSTV at %d Hz", rate)))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage || len(data) < 2 {
			continue
		}
		session.WriteInt16(pcmBytesToInt16(data))
	}

	// Connection closed: decode whatever tail is buffered.
	if res, err := session.Flush(context.Background()); err == nil && res != nil {
		s.decodesOK.Add(1)
		s.metrics.ObserveDecode(res)
	}
}
