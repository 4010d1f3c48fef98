package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicolasHaas/homevoice/pkg/audio"
	"github.com/NicolasHaas/homevoice/pkg/controller"
	"github.com/NicolasHaas/homevoice/pkg/logging"
	"github.com/NicolasHaas/homevoice/pkg/registry"
	"github.com/NicolasHaas/homevoice/pkg/router"
	"github.com/NicolasHaas/homevoice/pkg/speech"
	"github.com/NicolasHaas/homevoice/pkg/status"
	"github.com/NicolasHaas/homevoice/pkg/version"
	"github.com/NicolasHaas/homevoice/pkg/voiceid"
)

func main() {
	dbPath := flag.String("db", "homevoice.db", "SQLite database file path")
	configPath := flag.String("config", "", "YAML settings file (defaults if empty or missing)")
	backendURL := flag.String("backend", "http://127.0.0.1:5000", "Voice recognition backend base URL")
	device := flag.String("device", "", "Audio input device name (system default if empty)")
	vadThreshold := flag.Float64("vad-threshold", 0, "RMS speech activation threshold (0 for default)")
	sttCommand := flag.String("stt", "", "Speech-to-text command printing transcript lines on stdout (audio-only capture if empty)")
	ttsCommand := flag.String("tts", "", "TTS command for spoken prompts, e.g. espeak-ng (prompts are logged if empty)")
	statusAddr := flag.String("status", "", "HTTP bind address for /status and /metrics (empty to disable)")
	listDevices := flag.Bool("list-devices", false, "List audio input devices and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	if *listDevices {
		devices, err := audio.ListInputDevices()
		if err != nil {
			slog.Error("list devices", "err", err)
			os.Exit(1)
		}
		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %s (%d in)\n", marker, d.Name, d.MaxInputs)
		}
		return
	}

	// Device enumeration is slow; overlap it with the rest of startup.
	audio.PreInitAudio()

	cfg := controller.DefaultConfig()
	if *configPath != "" {
		cfg = controller.LoadConfig(*configPath)
	}

	reg, err := registry.New(*dbPath)
	if err != nil {
		slog.Error("open registry", "err", err)
		os.Exit(1)
	}
	defer func() { _ = reg.Close() }()

	backend := voiceid.NewClient(*backendURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := backend.Health(hctx); err != nil {
		slog.Warn("voice backend unreachable at startup", "url", *backendURL, "err", err)
	}
	cancel()

	var synth speech.Synthesizer = speech.NullSynthesizer{}
	if *ttsCommand != "" {
		synth = speech.NewExecSynthesizer(*ttsCommand)
	}

	var stt speech.Transcriber
	if *sttCommand != "" {
		stt = speech.NewExecTranscriber(*sttCommand)
	} else {
		slog.Warn("no -stt command configured; captures are audio-only and voice commands cannot be classified")
	}

	recorder := audio.NewRecorder(*device, *vadThreshold)
	coordinator := speech.NewCoordinator(recorder, stt)

	clock := controller.SystemClock{}
	session := controller.NewSession(clock, cfg.StatusRevertDelay)

	metrics := status.NewMetrics()
	session.OnChange = func(state controller.State) {
		metrics.Observe(state)
		slog.Info("session", "status", state.Status.String(), "message", state.Message)
	}

	enroller := controller.NewEnroller(backend, coordinator, synth, newTermPrompter(), session, reg, clock, cfg)
	verifier := controller.NewVerifier(backend, coordinator, synth, session, reg, clock, cfg)
	identifier := controller.NewIdentifier(backend)
	dispatcher := controller.NewDispatcher(session, reg, enroller, verifier, identifier, router.Log{}, synth, coordinator, cfg)

	status.NewServer(*statusAddr, session, backend, metrics).Start(ctx)
	metrics.StartPeriodicLog(ctx, 5*time.Minute)

	slog.Info("homevoice ready", "version", version.String(), "db", *dbPath, "backend", *backendURL)

	for ctx.Err() == nil {
		if err := dispatcher.ListenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("command cycle failed", "err", err)
			// Back off so a broken capture device does not spin the loop.
			_ = clock.Sleep(ctx, time.Second)
		}
	}

	slog.Info("shutting down")
}
