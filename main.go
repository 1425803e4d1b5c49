// ABOUTME: Entry point for the OP-1 drum kit editor
// ABOUTME: Parses CLI flags, opens audio output and runs the slot editor TUI
package main

import (
	"flag"
	"log"
	"os"

	"github.com/op1kit/op1drum/internal/config"
	"github.com/op1kit/op1drum/internal/engine"
	"github.com/op1kit/op1drum/internal/ui"
	"github.com/op1kit/op1drum/pkg/audio/output"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

var (
	outputPath = flag.String("o", "drum.aif", "Output file for exports")
	configPath = flag.String("config", "", "YAML config whose kit and preview sections provide defaults")
	logFile    = flag.String("log-file", "op1drum.log", "Log file path")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noAudio    = flag.Bool("no-audio", false, "Disable preview playback")
)

func main() {
	flag.Parse()

	// Set up logging; the TUI owns the terminal
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()
	log.SetOutput(f)

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.SetOutput(os.Stderr)
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *debug || cfg.Logging.Debug {
		bridge.Debug = true
		engine.Debug = true
		op1.Debug = true
	}

	env := &ui.Env{Bridge: bridge.NewDefault()}

	if !*noAudio {
		mgr := output.NewManager(output.NewOto(), cfg.Preview.SampleRate)
		defer func() {
			if err := mgr.Close(); err != nil {
				log.Printf("Error closing audio output: %v", err)
			}
		}()
		env.Player = mgr
	}

	log.Printf("Starting editor with %d files, exporting to %s", flag.NArg(), *outputPath)

	model := ui.NewModel(env, flag.Args(), cfg.Kit, *outputPath)
	if _, err := ui.Run(model).Run(); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Editor error: %v", err)
	}

	log.Printf("Editor stopped")
}
