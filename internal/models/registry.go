// Package models is the model store collaborator: it resolves a
// logical model name to a filesystem path, reports whether a model is
// already downloaded, and drives asynchronous downloads with progress
// callbacks.
package models

// Info describes one downloadable Whisper model exported for sherpa-onnx:
// an encoder/decoder/tokens triple sharing a base filename, matching the
// layout asr.NewSherpaEngine expects (base + "-encoder.onnx" etc).
type Info struct {
	ID      string
	Base    string // base filename, without the -encoder/-decoder/-tokens suffix
	BaseURL string // directory URL the three files are fetched relative to
	// MinBytes is the smallest plausible size for the encoder file; used
	// as a cheap corruption/truncation check.
	MinBytes int64
}

// EncoderURL, DecoderURL, and TokensURL return the three file URLs for an
// Info entry.
func (i Info) EncoderURL() string { return i.BaseURL + "/" + i.Base + "-encoder.onnx" }
func (i Info) DecoderURL() string { return i.BaseURL + "/" + i.Base + "-decoder.onnx" }
func (i Info) TokensURL() string  { return i.BaseURL + "/" + i.Base + "-tokens.txt" }

// Registry lists the whisper-family sherpa-onnx exports the store can
// resolve. Trimmed from a much larger multi-engine catalog (GigaAM,
// diarization, VAD) down to the single model family this filter's ASR
// contract needs.
var Registry = []Info{
	{ID: "tiny-en", Base: "tiny.en", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-tiny.en/resolve/main", MinBytes: 30 << 20},
	{ID: "tiny", Base: "tiny", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-tiny/resolve/main", MinBytes: 30 << 20},
	{ID: "base-en", Base: "base.en", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-base.en/resolve/main", MinBytes: 60 << 20},
	{ID: "base", Base: "base", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-base/resolve/main", MinBytes: 60 << 20},
	{ID: "small-en", Base: "small.en", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-small.en/resolve/main", MinBytes: 200 << 20},
	{ID: "medium", Base: "medium", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-medium/resolve/main", MinBytes: 700 << 20},
	{ID: "large-v3", Base: "large-v3", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-large-v3/resolve/main", MinBytes: 1400 << 20},
	{ID: "large-v3-turbo", Base: "large-v3-turbo", BaseURL: "https://huggingface.co/csukuangfj/sherpa-onnx-whisper-large-v3-turbo/resolve/main", MinBytes: 700 << 20},
}

// ByID looks up a registry entry by its logical ID.
func ByID(id string) (Info, bool) {
	for _, m := range Registry {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}
