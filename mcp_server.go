package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cwsl/ubersstv/sstv"
)

// MCPServer exposes the codec as Model Context Protocol tools
type MCPServer struct {
	config     *Config
	metrics    *PrometheusMetrics
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// NewMCPServer creates the MCP server and registers tools
func NewMCPServer(config *Config, metrics *PrometheusMetrics) *MCPServer {
	m := &MCPServer{config: config, metrics: metrics}

	m.mcpServer = server.NewMCPServer(
		"ubersstv",
		Version,
		server.WithToolCapabilities(true),
	)
	m.registerTools()
	m.httpServer = server.NewStreamableHTTPServer(m.mcpServer)
	return m
}

// ServeHTTP delegates to the streamable HTTP transport
func (m *MCPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.httpServer.ServeHTTP(w, r)
}

func (m *MCPServer) registerTools() {
	m.mcpServer.AddTool(
		mcp.NewTool("list_modes",
			mcp.WithDescription("List the supported SSTV modes with their VIS codes, resolutions, color formats and line timings."),
		),
		m.handleListModes,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("decode_wav",
			mcp.WithDescription("Decode an SSTV transmission from a WAV file on disk. Returns decode diagnostics (mode, frequency offset, quality verdict) and optionally writes the decoded image as PNG."),
			mcp.WithString("path",
				mcp.Description("Path to a mono 16-bit PCM WAV file"),
				mcp.Required(),
			),
			mcp.WithString("output",
				mcp.Description("Optional path to write the decoded PNG image"),
			),
		),
		m.handleDecodeWAV,
	)

	m.mcpServer.AddTool(
		mcp.NewTool("encode_image",
			mcp.WithDescription("Encode a PNG or JPEG image as an SSTV transmission and write it as a WAV file. The image is scaled to the mode's native resolution."),
			mcp.WithString("path",
				mcp.Description("Path to the PNG or JPEG image"),
				mcp.Required(),
			),
			mcp.WithString("mode",
				mcp.Description("Mode key: ROBOT36, MARTIN1, SCOTTIE1 or PD120"),
				mcp.DefaultString("ROBOT36"),
			),
			mcp.WithString("output",
				mcp.Description("Path for the WAV file to write"),
				mcp.Required(),
			),
		),
		m.handleEncodeImage,
	)
}

func (m *MCPServer) handleListModes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
	for _, mode := range sstv.Modes() {
		out = append(out, modeInfo{
			Key: mode.Key, Name: mode.Name, VIS: int(mode.VIS),
			Width: mode.Width, Lines: mode.Lines,
			Color:      mode.Color.String(),
			LineTimeMS: mode.LineTime() * 1000,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (m *MCPServer) handleDecodeWAV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	output := request.GetString("output", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
	}
	samples, rate, err := sstv.ReadWAV(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dec := sstv.NewDecoder(rate, m.config.SSTVConfig())
	res, err := dec.Decode(ctx, samples)
	if err != nil {
		return mcp.NewToolResultError(decodeErrorMessage(err)), nil
	}
	m.metrics.ObserveDecode(res)

	if output != "" {
		pngData, err := encodePNG(res.Pixels, res.Width, res.Height)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := os.WriteFile(output, pngData, 0o644); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", output, err)), nil
		}
	}

	diag, err := json.Marshal(res.Diagnostics)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(diag)), nil
}

func (m *MCPServer) handleEncodeImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := request.GetString("path", "")
	modeKey := request.GetString("mode", "ROBOT36")
	output := request.GetString("output", "")
	if path == "" || output == "" {
		return mcp.NewToolResultError("path and output are required"), nil
	}

	mode := sstv.ModeByKey(modeKey)
	if mode == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", modeKey)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open %s: %v", path, err)), nil
	}
	defer f.Close()

	pixels, err := loadImageRGBA(f, mode.Width, mode.Lines)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	enc := sstv.NewEncoder(m.config.Encoder.SampleRate)
	wav, err := enc.Encode(pixels, mode.Width, mode.Lines, mode.Key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := os.WriteFile(output, wav, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", output, err)), nil
	}
	m.metrics.ObserveEncode(mode.Key)

	return mcp.NewToolResultText(fmt.Sprintf(
		`{"mode":%q,"output":%q,"duration_seconds":%.1f}`,
		mode.Name, output, float64(len(wav)-44)/2/float64(m.config.Encoder.SampleRate))), nil
}
