package speech

import "encoding/binary"

// DecodePCM16 converts raw little-endian signed 16-bit PCM into a Clip.
// The synthesis model returns mono audio at SampleRate; a trailing odd
// byte is ignored.
func DecodePCM16(data []byte) Clip {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float32(v) / 32768
	}
	return Clip{Samples: samples, SampleRate: SampleRate, Channels: 1}
}
