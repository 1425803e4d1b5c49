// ABOUTME: Slot preview tasks
// ABOUTME: Decodes a slot through the bridge and publishes rate, length and waveform
package server

import (
	"log"
	"time"

	"github.com/op1kit/op1drum/pkg/audio"
)

type previewResult struct {
	rate     int
	frames   int
	waveform []float32
	err      error
}

// startPreview decodes one generation of a slot. Completions for a
// generation that has since been replaced are dropped.
func (s *Server) startPreview(sess *Session, n int, gen uint64, data []byte) {
	sess.tasks.Go(func() error {
		if sess.ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		res := s.preview(data)
		s.metrics.RecordPreview(res.err == nil, time.Since(start).Seconds())

		if !sess.completePreview(n, gen, res) {
			s.metrics.RecordStalePreview()
			if s.config.Debug {
				log.Printf("[DEBUG] Session %s: dropped stale preview for slot %d (generation %d)", sess.ID, n, gen)
			}
		}
		return nil
	})
}

func (s *Server) preview(data []byte) previewResult {
	sample, err := s.bridge.Decode(data)
	if err != nil {
		return previewResult{err: err}
	}
	defer func() {
		if err := s.bridge.Release(sample); err != nil {
			log.Printf("Failed to release preview sample: %v", err)
		}
	}()

	rate, err := s.bridge.SampleRate(sample)
	if err != nil {
		return previewResult{err: err}
	}
	pcm, err := s.bridge.SamplePCM(sample)
	if err != nil {
		return previewResult{err: err}
	}

	return previewResult{
		rate:     rate,
		frames:   len(pcm),
		waveform: audio.Waveform(pcm, s.config.PreviewWidth),
	}
}
