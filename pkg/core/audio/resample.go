package audio

import "math"

// Downsample reduces the sample rate of a mono float buffer by
// averaging each block of source samples into one output sample.
// Block boundaries are rounded per output sample so non-integral
// ratios stay aligned over long buffers. When the rates match the
// input is returned unchanged.
func Downsample(buf []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(buf) == 0 {
		return buf
	}
	ratio := float64(inRate) / float64(outRate)
	out := make([]float32, int(math.Round(float64(len(buf))/ratio)))

	srcOffset := 0
	for i := range out {
		next := int(math.Round(float64(i+1) * ratio))
		var sum float32
		count := 0
		for j := srcOffset; j < next && j < len(buf); j++ {
			sum += buf[j]
			count++
		}
		if count > 0 {
			out[i] = sum / float32(count)
		}
		srcOffset = next
	}
	return out
}
