package audio

import (
	"encoding/binary"
	"fmt"
)

// bitsPerSample is fixed at 16 for the signed little-endian PCM this module
// works with end to end.
const bitsPerSample = 16

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container. The returned byte slice is suitable for direct inclusion
// in a multipart form upload or for writing to disk as-is.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                      // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                       // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))        // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))      // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))        // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))      // block align
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample)) // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// WAVInfo describes the format of a decoded WAV file.
type WAVInfo struct {
	SampleRate int
	Channels   int
}

// DecodeWAV parses a RIFF/WAV container holding 16-bit PCM and returns the
// raw PCM payload together with its format. Only uncompressed 16-bit PCM is
// supported; anything else returns an error. Chunks other than "fmt " and
// "data" (LIST, cue, etc.) are skipped.
func DecodeWAV(data []byte) ([]byte, WAVInfo, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, WAVInfo{}, fmt.Errorf("audio: not a RIFF/WAVE file")
	}

	var (
		info    WAVInfo
		pcm     []byte
		haveFmt bool
	)

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, WAVInfo{}, fmt.Errorf("audio: truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, WAVInfo{}, fmt.Errorf("audio: fmt chunk too small (%d bytes)", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, WAVInfo{}, fmt.Errorf("audio: unsupported WAV format code %d (want PCM)", format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bits != bitsPerSample {
				return nil, WAVInfo{}, fmt.Errorf("audio: unsupported bit depth %d (want %d)", bits, bitsPerSample)
			}
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned: a chunk with an odd size is followed by a pad byte.
		off = body + size + size%2
	}

	if !haveFmt {
		return nil, WAVInfo{}, fmt.Errorf("audio: missing fmt chunk")
	}
	if pcm == nil {
		return nil, WAVInfo{}, fmt.Errorf("audio: missing data chunk")
	}
	return pcm, info, nil
}

// StereoToMono downmixes interleaved 16-bit stereo PCM to mono by averaging
// each L+R pair.
func StereoToMono(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := 0; i+3 < len(pcm); i += 4 {
		l := int16(binary.LittleEndian.Uint16(pcm[i:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i+2:]))
		m := int16((int32(l) + int32(r)) / 2)
		binary.LittleEndian.PutUint16(out[i/2:], uint16(m))
	}
	return out
}
