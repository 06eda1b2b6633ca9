package audio

import (
	"bytes"
	"encoding/binary"
)

// WrapWAV wraps raw 16-bit 16kHz mono PCM in a WAV container. Callers
// stream raw PCM fragments; the annotation service and the recording store
// both expect a playable file.
func WrapWAV(rawAudio []byte) []byte {
	var buf bytes.Buffer

	const sampleRate = 16000
	const channels = 1
	const bitsPerSample = 16
	const byteRate = sampleRate * channels * bitsPerSample / 8
	const blockAlign = channels * bitsPerSample / 8

	dataSize := len(rawAudio)
	fileSize := 36 + dataSize

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))            // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))             // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(channels))      // number of channels
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))    // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))      // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))    // block align
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample)) // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(rawAudio)

	return buf.Bytes()
}
