// ABOUTME: Entry point for the op1-drum command line tool
// ABOUTME: Builds an OP-1 drum kit from audio files, locally or on an export service
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"time"

	"github.com/op1kit/op1drum/internal/config"
	"github.com/op1kit/op1drum/internal/engine"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

var (
	outputPath = flag.String("o", "", "Output file (required)")
	fxType     = flag.String("fxtype", "", "Effect type, one of 'cwo', 'delay', 'grid', 'nitro', 'phone', 'punch' or 'spring' (default cwo)")
	fxOn       = flag.Bool("fxon", false, "Whether the effect is on by default or not")
	lfoType    = flag.String("lfotype", "", "LFO type, one of 'bend', 'crank', 'element', 'midi', 'random', 'tremolo', 'value' (default element)")
	lfoOn      = flag.Bool("lfoon", false, "Whether the LFO is on by default or not")
	normalize  = flag.Bool("normalize", false, "Normalize each sample before creating the output file")
	strictRate = flag.Bool("strict-rate", false, "Fail on mismatched sample rates instead of resampling")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	configPath = flag.String("config", "", "YAML config whose kit section provides defaults")
	serverURL  = flag.String("server", "", "Export on this service instead of locally")
	discover   = flag.Bool("discover", false, "Find an export service with mDNS and export there")
)

func init() {
	flag.StringVar(outputPath, "output", "", "Alias for -o")
	flag.StringVar(fxType, "fx", "", "Alias for -fxtype")
	flag.StringVar(lfoType, "lfo", "", "Alias for -lfotype")
	flag.BoolVar(normalize, "n", false, "Alias for -normalize")
	flag.BoolVar(debug, "d", false, "Alias for -debug")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `op1-drum
    Usage: op1-drum [options] audio-file [audio-file ...] -o output.aif

    Creates an AIFF file for use with an OP-1, with start and end markers included in the file.

`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *debug {
		bridge.Debug = true
		engine.Debug = true
		op1.Debug = true
	} else {
		log.SetOutput(io.Discard)
	}

	inputs := flag.Args()
	if *outputPath == "" {
		flag.Usage()
		fatalf("-o is required")
	}
	if len(inputs) == 0 {
		flag.Usage()
		fatalf("Need some audio files as arguments.")
	}
	if len(inputs) > op1.Slots {
		flag.Usage()
		fatalf("No more than %d files on an op-1.", op1.Slots)
	}

	opts, err := kitOptions()
	if err != nil {
		flag.Usage()
		fatalf("%v", err)
	}

	files := make([]bridge.File, 0, len(inputs))
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			fatalf("%v", err)
		}
		files = append(files, bridge.File{Name: path, Data: data})
	}

	start := time.Now()
	var out []byte
	switch {
	case *serverURL != "":
		out, err = exportRemote(*serverURL, files, opts)
	case *discover:
		var url string
		url, err = discoverServer(5 * time.Second)
		if err == nil {
			out, err = exportRemote(url, files, opts)
		}
	default:
		out, err = bridge.NewDefault().Export(files, opts)
	}
	if err != nil {
		fatalf("%v", err)
	}

	if err := os.WriteFile(*outputPath, out, 0o644); err != nil {
		fatalf("Could not write %s: %v", *outputPath, err)
	}
	log.Printf("Wrote %s: %d samples, %d bytes in %s", *outputPath, len(files), len(out), time.Since(start).Round(time.Millisecond))
}

// kitOptions merges the config file kit section with the flags
func kitOptions() (bridge.KitOptions, error) {
	var opts bridge.KitOptions
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return opts, err
		}
		opts = cfg.Kit
	}

	if *fxType != "" {
		opts.FX = *fxType
	}
	if *lfoType != "" {
		opts.LFO = *lfoType
	}
	if opts.FX != "" && !slices.Contains(op1.FXTypes, opts.FX) {
		return opts, fmt.Errorf("unknown effect type %q", opts.FX)
	}
	if opts.LFO != "" && !slices.Contains(op1.LFOTypes, opts.LFO) {
		return opts, fmt.Errorf("unknown LFO type %q", opts.LFO)
	}

	opts.FXActive = opts.FXActive || *fxOn
	opts.LFOActive = opts.LFOActive || *lfoOn
	opts.Normalize = opts.Normalize || *normalize
	opts.StrictRate = opts.StrictRate || *strictRate
	return opts, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
