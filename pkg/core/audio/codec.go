package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeChunk converts float samples in [-1, 1] to base64-encoded
// little-endian 16-bit PCM, the payload format the realtime endpoint
// expects for media chunks. Out-of-range samples are clamped rather
// than wrapped.
func EncodeChunk(samples []float32) string {
	return base64.StdEncoding.EncodeToString(FloatToS16(samples))
}

// DecodeChunk converts a base64 payload back to raw little-endian
// 16-bit PCM bytes for playback.
func DecodeChunk(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode audio chunk: %w", err)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("decode audio chunk: odd byte count %d", len(pcm))
	}
	return pcm, nil
}

// PCMToFloat converts little-endian 16-bit PCM bytes to float samples
// in [-1, 1).
func PCMToFloat(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

// FloatToS16 converts float samples to raw little-endian 16-bit PCM
// bytes. The scale mirrors PCMToFloat so a round trip loses no more
// than one quantization step.
func FloatToS16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	return pcm
}
