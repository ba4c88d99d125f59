package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/copperline/deskchat/internal/api"
	"github.com/copperline/deskchat/internal/config"
	"github.com/copperline/deskchat/internal/core"
	"github.com/copperline/deskchat/internal/store"
	"github.com/copperline/deskchat/internal/tui"
	"github.com/copperline/deskchat/internal/voice"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("deskchat %s\n", Version)
		os.Exit(0)
	}

	if err := initLogging(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().Str("version", Version).Msg("Starting deskchat")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Debug().Interface("config", cfg).Msg("Configuration loaded")

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load credentials")
		creds = &config.Credentials{}
	}

	s, err := store.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer s.Close()
	log.Debug().Msg("Store initialized")

	bus := core.NewEventBus(1000)
	defer bus.Close()

	limiter := rate.NewLimiter(rate.Limit(cfg.API.RateLimit), cfg.API.RateBurst)
	client := api.NewClient(cfg.API.Endpoint, creds.APIToken, limiter, cfg.API.Timeout())

	engine := core.NewEngine(client, bus, cfg.Sync.Staleness(), cfg.Sync.Retention(), cfg.Sync.ReconcileDelay())
	defer engine.Shutdown()

	recognizer := voice.NewExecRecognizer(cfg.Voice.Command)
	controller := voice.NewController(recognizer, cfg.Voice.AutoSubmitDelay())
	log.Debug().Bool("voice_available", recognizer.Available()).Msg("Voice input initialized")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	eventCh := bus.Subscribe()

	model := tui.New(engine, s, client, controller, eventCh)
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-sigCh
		log.Info().Msg("Received shutdown signal")
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Fatal().Err(err).Msg("TUI error")
	}

	log.Info().Msg("deskchat shutdown complete")
}

func initLogging(debug bool) error {
	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// Open log file (truncate on startup)
	logPath := filepath.Join(dataDir, "deskchat.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Log to file only (TUI owns stdout/stderr)
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()

	return nil
}
