// Package capture wraps malgo microphone capture for the diagnostic
// harness: enumerate input devices, start/stop a capture device, and
// stream planar float32 frames out over a channel.
package capture

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// Device describes one enumerated input device.
type Device struct {
	ID   string
	Name string
}

// Frame is one batch of samples delivered by the capture callback.
type Frame struct {
	Samples []float32
	Frames  uint32
}

// Mic manages a single-channel microphone capture device.
type Mic struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	deviceID   *malgo.DeviceID
	sampleRate int

	mu      sync.Mutex
	running bool
	frames  chan Frame
}

// New initializes the underlying audio backend. sampleRate is the host
// rate the filter pipeline expects frames at.
func New(sampleRate int) (*Mic, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init context: %w", err)
	}
	return &Mic{ctx: ctx, sampleRate: sampleRate, frames: make(chan Frame, 1000)}, nil
}

// ListDevices enumerates available capture devices.
func (m *Mic) ListDevices() ([]Device, error) {
	raw, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture: enumerate devices: %w", err)
	}
	devices := make([]Device, 0, len(raw))
	for _, d := range raw {
		devices = append(devices, Device{ID: deviceIDToString(d.ID), Name: d.Name()})
	}
	return devices, nil
}

// SetDevice selects a capture device by its ID string ("" or "default"
// selects the platform default).
func (m *Mic) SetDevice(deviceID string) error {
	if deviceID == "" || deviceID == "default" {
		m.deviceID = nil
		return nil
	}
	id, err := stringToDeviceID(deviceID)
	if err != nil {
		return err
	}
	m.deviceID = id
	return nil
}

// Start begins capturing. Frames arrive on the channel returned by Frames.
func (m *Mic) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("capture: already running")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if m.deviceID != nil {
		deviceConfig.Capture.DeviceID = m.deviceID.Pointer()
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount)
		if len(pInputSamples) != sampleCount*4 {
			return
		}
		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) | uint32(pInputSamples[i*4+1])<<8 | uint32(pInputSamples[i*4+2])<<16 | uint32(pInputSamples[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}
		m.frames <- Frame{Samples: samples, Frames: framecount}
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("capture: init device: %w", err)
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("capture: start device: %w", err)
	}

	m.device = device
	m.running = true
	return nil
}

// Stop halts capture. Safe to call when not running.
func (m *Mic) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.device.Uninit()
	m.device = nil
	m.running = false
	return nil
}

// Frames returns the channel carrying captured audio.
func (m *Mic) Frames() <-chan Frame {
	return m.frames
}

// Close stops capture and releases the audio backend.
func (m *Mic) Close() {
	m.Stop()
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
	}
}

func deviceIDToString(id malgo.DeviceID) string {
	var b strings.Builder
	for _, c := range id[:32] {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func stringToDeviceID(s string) (*malgo.DeviceID, error) {
	if len(s) > 32 {
		return nil, fmt.Errorf("capture: device ID too long")
	}
	var id malgo.DeviceID
	copy(id[:], []byte(s))
	return &id, nil
}
