// micfilter captures microphone audio, runs it through the filter
// pipeline, and writes both the raw and filtered signal to WAV files for
// A/B listening. Stop with Ctrl+C.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cleanstream/internal/asr"
	"cleanstream/internal/capture"
	"cleanstream/internal/config"
	"cleanstream/internal/filter"
	"cleanstream/internal/models"
	"cleanstream/internal/wavfile"
)

const sampleRate = 48000

func main() {
	device := flag.String("device", "", "capture device ID (empty = default)")
	modelsDir := flag.String("models", "data/models", "models directory")
	modelPath := flag.String("model", "tiny-en", "model to load")
	dryPath := flag.String("dry", "dry.wav", "raw capture output path")
	wetPath := flag.String("wet", "wet.wav", "filtered output path")
	flag.Parse()

	logger := log.New(os.Stderr, "[micfilter] ", log.LstdFlags)

	store, err := models.NewStore(*modelsDir)
	if err != nil {
		logger.Fatalf("models: %v", err)
	}

	settings := config.Defaults()
	settings.ModelPath = *modelPath

	f := filter.Create(1, sampleRate, settings, asr.NewSherpaEngine, store, logger)
	defer f.Destroy()

	mic, err := capture.New(sampleRate)
	if err != nil {
		logger.Fatalf("capture: %v", err)
	}
	defer mic.Close()

	if err := mic.SetDevice(*device); err != nil {
		logger.Fatalf("capture: %v", err)
	}

	dry, err := wavfile.Create(*dryPath, sampleRate, 1)
	if err != nil {
		logger.Fatalf("wavfile: %v", err)
	}
	defer dry.Close()

	wet, err := wavfile.Create(*wetPath, sampleRate, 1)
	if err != nil {
		logger.Fatalf("wavfile: %v", err)
	}
	defer wet.Close()

	if err := mic.Start(); err != nil {
		logger.Fatalf("capture: %v", err)
	}
	defer mic.Stop()

	logger.Println("recording; press Ctrl+C to stop")

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	var timestamp uint64
	for {
		select {
		case <-stopChan:
			logger.Printf("stopped; dry=%s wet=%s", *dryPath, *wetPath)
			return
		case frame := <-mic.Frames():
			dry.WriteInterleaved(frame.Samples)

			pkt := filter.Packet{
				Channels:  [][]float32{frame.Samples},
				Frames:    frame.Frames,
				Timestamp: timestamp,
			}
			timestamp += uint64(frame.Frames)

			out, ok := f.ProcessPacket(pkt)
			if ok && len(out.Channels) > 0 {
				wet.WriteInterleaved(out.Channels[0])
			}
		}
	}
}
