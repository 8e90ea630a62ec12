package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

const ttsSampleRate = 16000

// ttsEngine synthesizes deterministic 16-bit mono WAV audio in the
// audio_base64 result shape.
type ttsEngine struct {
	id          string
	footprintMB float64
	loaded      bool
}

func newTTSEngine(id string) Engine { return &ttsEngine{id: id} }

func (e *ttsEngine) Load(path string) error {
	mb, err := artifactFootprintMB(path)
	if err != nil {
		return ErrLoad(e.id, err)
	}
	e.footprintMB = mb
	e.loaded = true
	return nil
}

func (e *ttsEngine) Unload() {
	e.loaded = false
	e.footprintMB = 0
}

func (e *ttsEngine) MemoryFootprintMB() float64 { return e.footprintMB }

func (e *ttsEngine) Infer(ctx context.Context, input any, params map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInfer(e.id, err)
	}
	if !e.loaded {
		return nil, ErrInfer(e.id, errNotLoaded)
	}
	text, ok := input.(string)
	if !ok || text == "" {
		return nil, ErrInfer(e.id, fmt.Errorf("tts input must be a non-empty string"))
	}
	speaker := paramInt(params, "speaker_id", 0)
	speed := paramFloat(params, "speed", 1.0)
	if speed <= 0 {
		speed = 1.0
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64() + uint64(speaker)

	// Rough speech pacing: ~80ms per character, scaled by speed, capped
	// at 10 seconds.
	samples := int(float64(len(text)) * 0.08 * float64(ttsSampleRate) / speed)
	if samples < ttsSampleRate/10 {
		samples = ttsSampleRate / 10
	}
	if samples > 10*ttsSampleRate {
		samples = 10 * ttsSampleRate
	}
	baseFreq := 120.0 + float64(seed%200)

	pcm := make([]int16, samples)
	for i := range pcm {
		t := float64(i) / ttsSampleRate
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*baseFreq*t))
	}
	wav := encodeWAV(pcm, ttsSampleRate)
	return map[string]any{
		"audio_base64": base64.StdEncoding.EncodeToString(wav),
		"format":       "wav",
		"sample_rate":  ttsSampleRate,
	}, nil
}

// encodeWAV wraps 16-bit mono PCM in a RIFF/WAVE container.
func encodeWAV(pcm []int16, sampleRate int) []byte {
	dataLen := len(pcm) * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	_ = binary.Write(&buf, binary.LittleEndian, pcm)
	return buf.Bytes()
}
