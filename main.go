package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/ubersstv/sstv"
)

// Global debug flag
var DebugMode bool

// Global start time for process uptime tracking
var StartTime time.Time

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	debug := flag.Bool("debug", false, "Enable verbose logging")
	decodePath := flag.String("decode", "", "Decode an SSTV recording (WAV, or Ogg/Opus with -tags opus) and exit")
	encodePath := flag.String("encode", "", "Encode a PNG/JPEG image as SSTV audio and exit")
	modeKey := flag.String("mode", "ROBOT36", "Mode key for -encode (ROBOT36, MARTIN1, SCOTTIE1, PD120)")
	outPath := flag.String("out", "", "Output path for -decode (PNG) or -encode (WAV)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	StartTime = time.Now()

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	DebugMode = *debug || config.Logging.Debug
	sstv.SetDebug(DebugMode)

	switch {
	case *decodePath != "":
		if err := runDecode(config, *decodePath, *outPath); err != nil {
			log.Fatalf("Decode failed: %v", err)
		}
	case *encodePath != "":
		if err := runEncode(config, *encodePath, *modeKey, *outPath); err != nil {
			log.Fatalf("Encode failed: %v", err)
		}
	default:
		if err := runServer(config); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}

// loadAudioFile reads a recording into samples: WAV natively, Ogg/Opus
// when compiled in
func loadAudioFile(path string) ([]float32, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".ogg" || ext == ".opus" {
		return readOpusFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sstv.ReadWAV(data)
}

// runDecode is the one-shot CLI decode path
func runDecode(config *Config, inPath, outPath string) error {
	samples, rate, err := loadAudioFile(inPath)
	if err != nil {
		return err
	}
	log.Printf("[CLI] Decoding %s: %.1fs at %d Hz", inPath, float64(len(samples))/float64(rate), rate)

	dec := sstv.NewDecoder(rate, config.SSTVConfig())
	res, err := dec.Decode(context.Background(), samples)
	if err != nil {
		return fmt.Errorf("%s", decodeErrorMessage(err))
	}

	q := res.Diagnostics.Quality
	log.Printf("[CLI] Mode %s, offset %+.0f Hz, verdict %s",
		res.Diagnostics.ModeName, res.Diagnostics.FreqOffset, q.Verdict)
	for _, warning := range append(res.Diagnostics.Warnings, q.Warnings...) {
		log.Printf("[CLI] Warning: %s", warning)
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".png"
	}
	pngData, err := encodePNG(res.Pixels, res.Width, res.Height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, pngData, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Printf("[CLI] Wrote %s (%dx%d)", outPath, res.Width, res.Height)
	return nil
}

// runEncode is the one-shot CLI encode path
func runEncode(config *Config, inPath, modeKey, outPath string) error {
	mode := sstv.ModeByKey(modeKey)
	if mode == nil {
		return fmt.Errorf("unknown mode %q", modeKey)
	}

	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", inPath, err)
	}
	defer f.Close()

	pixels, err := loadImageRGBA(f, mode.Width, mode.Lines)
	if err != nil {
		return err
	}

	enc := sstv.NewEncoder(config.Encoder.SampleRate)
	wav, err := enc.Encode(pixels, mode.Width, mode.Lines, mode.Key)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".wav"
	}
	if err := os.WriteFile(outPath, wav, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Printf("[CLI] Wrote %s: %s, %.1fs at %d Hz", outPath, mode.Name,
		float64(len(wav)-44)/2/float64(config.Encoder.SampleRate), config.Encoder.SampleRate)
	return nil
}

// runServer starts the HTTP API plus the optional RTP listener
func runServer(config *Config) error {
	metrics := NewPrometheusMetrics()

	mqttPublisher, err := NewMQTTPublisher(&config.MQTT)
	if err != nil {
		return err
	}
	defer mqttPublisher.Close()

	srv := NewServer(config, metrics, mqttPublisher)

	mux := http.NewServeMux()
	srv.Register(mux)
	if config.Prometheus.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if config.Server.EnableMCP {
		mux.Handle("/mcp", NewMCPServer(config, metrics))
	}

	var receiver *AudioReceiver
	if config.Audio.RTP.Enabled {
		receiver, err = NewAudioReceiver(config, metrics, mqttPublisher)
		if err != nil {
			return err
		}
		receiver.Start()
		defer receiver.Stop()
	}

	startVersionChecker(config.VersionCheck)

	httpServer := &http.Server{
		Addr:         config.Server.Listen,
		Handler:      mux,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s (version %s)", config.Server.Listen, Version)
		errChan <- httpServer.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("[Server] Received %v, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}
