// Command voicelive runs a live voice session from the terminal using
// the default microphone and speaker. Requires GEMINI_API_KEY (or a
// .env file providing it).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gtistudio/voicelive/internal/dotenv"
	"github.com/gtistudio/voicelive/pkg/core/live"
	"github.com/gtistudio/voicelive/pkg/core/types"
)

func main() {
	model := flag.String("model", live.DefaultModel, "realtime model")
	voice := flag.String("voice", string(types.DefaultVoice), "voice preset (Puck, Charon, Kore, Fenrir, Aoede, Zephyr)")
	baseURL := flag.String("base-url", live.DefaultBaseURL, "endpoint base URL")
	customPrompt := flag.String("prompt", "", "extra system prompt text")
	workspaceDir := flag.String("workspace", "workspace", "directory for files produced by tool calls")
	noPreview := flag.Bool("no-preview", false, "skip the voice greeting on connect")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY is not set")
		os.Exit(1)
	}

	cfg := live.DefaultSessionConfig()
	cfg.Model = *model
	cfg.BaseURL = *baseURL
	cfg.APIKey = apiKey
	cfg.Voice = types.VoiceName(*voice)
	cfg.Settings = types.UserSettings{CustomPrompt: *customPrompt}
	cfg.AutoPreview = !*noPreview

	closed := make(chan struct{})
	ctrl := live.NewController(cfg, live.Callbacks{
		OnStateChange: func(state live.SessionState) {
			logger.Info("session", "state", state.String())
		},
		OnToolCall: func(files []types.VirtualFile) {
			for _, f := range files {
				path := filepath.Join(*workspaceDir, filepath.Base(f.Name))
				if err := os.MkdirAll(*workspaceDir, 0o755); err != nil {
					logger.Error("workspace", "error", err)
					return
				}
				if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
					logger.Error("workspace", "file", f.Name, "error", err)
					continue
				}
				logger.Info("workspace updated", "file", path, "language", f.Language)
			}
		},
		OnError: func(err error) {
			logger.Error("session", "error", err)
		},
		OnClose: func() {
			close(closed)
		},
	})
	ctrl.SetLogger(logger)

	ctx := context.Background()
	if err := ctrl.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	logger.Info("connected", "model", *model, "voice", *voice)
	fmt.Println("Talking live. Press Ctrl-C to hang up.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		ctrl.Disconnect()
		<-closed
	case <-closed:
	}
	logger.Info("session ended", "latency", ctrl.Latency())
}
