// ABOUTME: Entry point for the op1-dump tool
// ABOUTME: Prints the JSON descriptor of an OP-1 drum kit and optionally extracts its slots
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/op1kit/op1drum/pkg/audio/encode"
	"github.com/op1kit/op1drum/pkg/op1"
)

var (
	pretty  = flag.Bool("pretty", false, "Indent the JSON descriptor")
	extract = flag.String("extract", "", "Directory to write each slot to as a WAV file")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: op1-dump [options] drum.aif\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("%v", err)
	}
	drum, err := op1.ReadDrum(data)
	if err != nil {
		fatalf("%s: %v", path, err)
	}

	descriptor := drum.Descriptor
	if *pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, descriptor, "", "  "); err != nil {
			fatalf("%s: invalid descriptor: %v", path, err)
		}
		descriptor = buf.Bytes()
	}
	fmt.Println(string(descriptor))

	if *extract != "" {
		if err := extractSlots(drum, *extract); err != nil {
			fatalf("%v", err)
		}
	}
}

// extractSlots writes every used slot as a mono 16-bit WAV
func extractSlots(drum *op1.Drum, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for i := 0; i < drum.UsedSlots(); i++ {
		pcm := drum.Slot(i)
		if len(pcm) == 0 {
			continue
		}
		name := filepath.Join(dir, fmt.Sprintf("slot%02d.wav", i+1))
		if err := writeWAV(name, drum.SampleRate, pcm); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d frames)\n", name, len(pcm))
	}
	return nil
}

func writeWAV(path string, rate int, pcm []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return encode.WriteWAV(f, rate, pcm)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
