package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cleanstream/internal/asr"
	"cleanstream/internal/config"
	"cleanstream/internal/control"
	"cleanstream/internal/filter"
	"cleanstream/internal/models"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stderr, "[cleanstream] ", log.LstdFlags)

	store, err := models.NewStore(cfg.ModelsDir)
	if err != nil {
		logger.Fatalf("models: %v", err)
	}

	settings := config.Defaults()

	f := filter.Create(1, hostSampleRate, settings, asr.NewSherpaEngine, store, logger)
	defer f.Destroy()

	server := control.NewServer(cfg.GRPCAddr, f, store, logger)

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stopChan
		logger.Println("shutting down")
		server.Stop()
	}()

	if err := server.Start(); err != nil {
		logger.Fatalf("control server: %v", err)
	}
}

// hostSampleRate is the rate this process presents to the control plane
// and expects ProcessPacket callers to deliver. A real host plugin
// negotiates this with its DAW/capture device instead of hardcoding it.
const hostSampleRate = 48000
