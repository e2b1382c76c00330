// Package filter implements the realtime ASR-driven audio rewriting
// pipeline: ring-buffer ingress/egress, the overlapping analysis
// scheduler, detection, rewrite+emit, and the adaptive overlap
// controller.
package filter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"cleanstream/internal/asr"
	"cleanstream/internal/classify"
	"cleanstream/internal/config"
	"cleanstream/internal/models"
	"cleanstream/internal/ring"
)

// Filter is one host plugin instance. It owns two
// independently-mutexed ring-buffer sides and one ASR context slot.
type Filter struct {
	numChannels    int
	hostSampleRate int

	activeMu sync.RWMutex
	active   bool

	settingsMu sync.RWMutex
	settings   config.Settings

	inputMu      sync.Mutex
	inputRings   *ring.ChannelRing
	inputPackets ring.PacketQueue

	outputMu      sync.Mutex
	outputRings   *ring.ChannelRing
	outputPackets ring.PacketQueue
	staging       [][]float32

	asrMgr  *asr.Manager
	matcher *classify.Matcher
	store   *models.Store

	logger *log.Logger

	// worker state; touched only by the worker goroutine.
	overlapMs    int
	firstWindow  bool
	prevScratch  [][]float32
	prevOverlapN int

	workerCancel context.CancelFunc
	workerWG     sync.WaitGroup
}

// Create constructs a Filter instance and loads settings.ModelPath:
// through the model store when one is given (downloading it
// asynchronously if it is missing), otherwise as an already-resolved
// path handed to constructor. Until a model is loaded the filter stays
// in passthrough mode.
func Create(numChannels, hostSampleRate int, settings config.Settings, constructor asr.Constructor, store *models.Store, logger *log.Logger) *Filter {
	if logger == nil {
		logger = log.New(log.Writer(), "[cleanstream] ", log.LstdFlags)
	}

	f := &Filter{
		numChannels:    numChannels,
		hostSampleRate: hostSampleRate,
		active:         true,
		settings:       settings,
		inputRings:     ring.NewChannelRing(numChannels),
		outputRings:    ring.NewChannelRing(numChannels),
		staging:        make([][]float32, numChannels),
		asrMgr:         asr.NewManager(constructor, logger),
		matcher:        classify.NewMatcher(settings.DetectRegex, settings.BeepRegex, logger),
		store:          store,
		logger:         logger,
		overlapMs:      InitialOverlapMs,
		firstWindow:    true,
	}

	f.asrMgr.SetParams(paramsFromSettings(settings))

	if constructor != nil && settings.ModelPath != "" {
		f.reloadModel(settings.ModelPath)
	}

	f.spawnWorker()
	return f
}

func paramsFromSettings(s config.Settings) asr.Params {
	return asr.Params{
		Language:       s.Language,
		InitialPrompt:  s.InitialPrompt,
		Threads:        s.Threads,
		Temperature:    s.Temperature,
		MaxTokens:      s.MaxTokens,
		NoSpeechThold:  s.NoSpeechThold,
		SamplingGreedy: s.GreedySampling,
	}
}

// reloadModel resolves modelPath through the model store and swaps the
// ASR context, triggering an async download if the model isn't present
// yet, mirroring how update() triggers an asynchronous download.
func (f *Filter) reloadModel(modelID string) {
	if f.store == nil {
		// No collaborator configured: treat modelID as an
		// already-resolved path (used by tests and by hosts that
		// resolve models themselves).
		if err := f.asrMgr.Reload(modelID); err != nil {
			f.logger.Printf("filter: reload %s: %v", modelID, err)
		}
		return
	}
	if f.store.Exists(modelID) {
		path, err := f.store.ResolvePath(modelID)
		if err != nil {
			f.logger.Printf("filter: resolve model %s: %v", modelID, err)
			return
		}
		if err := f.asrMgr.Reload(path); err != nil {
			f.logger.Printf("filter: reload model %s: %v", modelID, err)
		}
		return
	}

	f.logger.Printf("filter: model %s missing, downloading", modelID)
	err := f.store.Download(modelID, func(err error) {
		if err != nil {
			f.logger.Printf("filter: download %s failed: %v", modelID, err)
			return
		}
		path, rerr := f.store.ResolvePath(modelID)
		if rerr != nil {
			f.logger.Printf("filter: resolve after download %s: %v", modelID, rerr)
			return
		}
		if rerr := f.asrMgr.Reload(path); rerr != nil {
			f.logger.Printf("filter: reload after download %s: %v", modelID, rerr)
			return
		}
		f.respawnWorkerIfStopped()
	})
	if err != nil {
		f.logger.Printf("filter: start download %s: %v", modelID, err)
	}
}

// Activate and Deactivate toggle whether ProcessPacket runs the pipeline
// or passes audio straight through.
func (f *Filter) Activate() {
	f.activeMu.Lock()
	f.active = true
	f.activeMu.Unlock()
}

func (f *Filter) Deactivate() {
	f.activeMu.Lock()
	f.active = false
	f.activeMu.Unlock()
}

func (f *Filter) isActive() bool {
	f.activeMu.RLock()
	defer f.activeMu.RUnlock()
	return f.active
}

// Update applies a new settings dictionary. A model_path change
// triggers the reload sequence: the old worker is stopped (context
// nulled, joined) before the new one starts.
func (f *Filter) Update(settings config.Settings) {
	f.settingsMu.Lock()
	prevModel := f.settings.ModelPath
	f.settings = settings
	f.settingsMu.Unlock()

	f.matcher.Update(settings.DetectRegex, settings.BeepRegex)
	f.asrMgr.SetParams(paramsFromSettings(settings))

	if settings.ModelPath != "" && settings.ModelPath != prevModel {
		f.stopWorker()
		f.reloadModel(settings.ModelPath)
		f.spawnWorker()
	}
}

func (f *Filter) currentSettings() config.Settings {
	f.settingsMu.RLock()
	defer f.settingsMu.RUnlock()
	return f.settings
}

// ProcessPacket is the ingress/egress stage, invoked synchronously on
// the host audio thread.
func (f *Filter) ProcessPacket(pkt Packet) (Packet, bool) {
	if !f.isActive() || !f.asrMgr.Active() {
		return pkt, true
	}

	f.inputMu.Lock()
	for c := 0; c < f.numChannels && c < len(pkt.Channels); c++ {
		f.inputRings.Channel(c).PushBack(pkt.Channels[c])
	}
	f.inputPackets.PushBack(ring.PacketInfo{Frames: pkt.Frames, Timestamp: pkt.Timestamp})
	f.inputMu.Unlock()

	f.outputMu.Lock()
	defer f.outputMu.Unlock()

	info, ok := f.outputPackets.PopFront()
	if !ok {
		return Packet{}, false
	}

	out := Packet{
		Channels:  make([][]float32, f.numChannels),
		Frames:    info.Frames,
		Timestamp: info.Timestamp,
	}
	for c := 0; c < f.numChannels; c++ {
		out.Channels[c] = f.outputRings.Channel(c).PopFront(int(info.Frames))
	}
	return out, true
}

// Destroy stops the worker and releases all buffers.
func (f *Filter) Destroy() error {
	f.stopWorker()
	f.asrMgr.Close()

	f.inputMu.Lock()
	f.inputRings = ring.NewChannelRing(f.numChannels)
	f.inputPackets = ring.PacketQueue{}
	f.inputMu.Unlock()

	f.outputMu.Lock()
	f.outputRings = ring.NewChannelRing(f.numChannels)
	f.outputPackets = ring.PacketQueue{}
	f.outputMu.Unlock()

	return nil
}

func (f *Filter) respawnWorkerIfStopped() {
	f.workerWG.Wait()
	f.spawnWorker()
}

func (f *Filter) stopWorker() {
	if f.workerCancel != nil {
		f.asrMgr.Discard()
		f.workerCancel()
		f.workerWG.Wait()
		f.workerCancel = nil
	}
}

func (f *Filter) spawnWorker() {
	if !f.asrMgr.Active() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.workerCancel = cancel
	f.firstWindow = true
	f.overlapMs = InitialOverlapMs
	f.workerWG.Add(1)
	go func() {
		defer f.workerWG.Done()
		f.runWorker(ctx)
	}()
}

// Name reports the active engine's identity, for diagnostics.
func (f *Filter) Name() string {
	if !f.asrMgr.Active() {
		return fmt.Sprintf("cleanstream-filter(%dch@%dHz, passthrough)", f.numChannels, f.hostSampleRate)
	}
	return fmt.Sprintf("cleanstream-filter(%dch@%dHz)", f.numChannels, f.hostSampleRate)
}
