package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var jsonOutput bool
	var count int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live marker events from the real-time channel",
		Long: `Connect to the real-time channel and print every frame it delivers.

Frames include:
  - connected: welcome with the live client count
  - marker add: a marker was placed by another client
  - marker remove: a marker was removed

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), jsonOutput || cfg.Output == "json", count)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many frames (0 streams until interrupted)")

	return cmd
}

// Frame is one real-time message as received
type Frame struct {
	Type      string          `json:"type"`
	Action    string          `json:"action,omitempty"`
	Message   string          `json:"message,omitempty"`
	Clients   int             `json:"clients,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func streamEvents(ctx context.Context, w io.Writer, jsonOutput bool, count int) error {
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, cfg.RealtimeURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if !jsonOutput {
		_, _ = fmt.Fprintf(w, "Connected to %s\n", cfg.RealtimeURL)
	}

	for seen := 0; count == 0 || seen < count; seen++ {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					_, _ = fmt.Fprintln(w, "Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printFrame(w, raw, jsonOutput)
	}
	return nil
}

func printFrame(w io.Writer, raw []byte, jsonOutput bool) {
	if jsonOutput {
		_, _ = fmt.Fprintln(w, string(raw))
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		_, _ = fmt.Fprintf(w, "[%s] unreadable frame: %s\n", timestamp, truncate(string(raw), 100))
		return
	}

	switch {
	case f.Type == "connected":
		_, _ = fmt.Fprintf(w, "[%s] %s (%d clients)\n", timestamp, f.Message, f.Clients)
	case f.Type == "marker" && f.Action == "add":
		var m Marker
		if err := json.Unmarshal(f.Data, &m); err != nil {
			_, _ = fmt.Fprintf(w, "[%s] add: %s\n", timestamp, truncate(string(f.Data), 100))
			return
		}
		_, _ = fmt.Fprintf(w, "[%s] add %s %s/%s at (%.1f, %.1f) by %s\n",
			timestamp, m.ID, m.Type, m.Shape, m.X, m.Y, m.CreatedBy)
	case f.Type == "marker" && f.Action == "remove":
		var m Marker
		_ = json.Unmarshal(f.Data, &m)
		_, _ = fmt.Fprintf(w, "[%s] remove %s\n", timestamp, m.ID)
	default:
		_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, f.Type, truncate(string(raw), 100))
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
