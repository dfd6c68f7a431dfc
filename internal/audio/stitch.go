// Package audio stitches per-turn synthesis output into one track.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Stitch concatenates segments in the given order. WAV segments are merged at
// the PCM frame level so the result is one well-formed file; MP3 streams are
// concatenated directly, which players treat as one continuous track. gap
// inserts silence between WAV segments; zero means none.
func Stitch(segments [][]byte, format string, gap time.Duration) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to stitch")
	}

	switch format {
	case "wav":
		return stitchWAV(segments, gap)
	case "mp3":
		var out bytes.Buffer
		for _, seg := range segments {
			out.Write(seg)
		}
		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

type wavParams struct {
	channels   int
	sampleRate int
	width      int // bytes per sample
}

func stitchWAV(segments [][]byte, gap time.Duration) ([]byte, error) {
	var (
		pcm    bytes.Buffer
		params wavParams
	)

	for i, seg := range segments {
		data, p, err := parseWAV(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if i == 0 {
			params = p
		} else if p != params {
			return nil, fmt.Errorf("segment %d: format mismatch (%+v vs %+v)", i, p, params)
		}

		if i > 0 && gap > 0 {
			frames := int(float64(params.sampleRate) * gap.Seconds())
			pcm.Write(make([]byte, frames*params.width*params.channels))
		}
		pcm.Write(data)
	}

	return pcmToWAV(pcm.Bytes(), params), nil
}

// parseWAV walks the RIFF chunk list and returns the PCM payload and format.
func parseWAV(b []byte) ([]byte, wavParams, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, wavParams{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		params  wavParams
		data    []byte
		haveFmt bool
	)

	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if off+size > len(b) {
			size = len(b) - off
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, wavParams{}, fmt.Errorf("short fmt chunk")
			}
			params.channels = int(binary.LittleEndian.Uint16(b[off+2 : off+4]))
			params.sampleRate = int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
			params.width = int(binary.LittleEndian.Uint16(b[off+14:off+16])) / 8
			haveFmt = true
		case "data":
			data = b[off : off+size]
		}

		// chunks are word aligned
		if size%2 == 1 {
			size++
		}
		off += size
	}

	if !haveFmt || data == nil {
		return nil, wavParams{}, fmt.Errorf("missing fmt or data chunk")
	}
	return data, params, nil
}

// pcmToWAV wraps raw PCM in a canonical 44-byte WAV header.
func pcmToWAV(pcm []byte, p wavParams) []byte {
	var buf bytes.Buffer

	byteRate := p.sampleRate * p.channels * p.width
	blockAlign := p.channels * p.width

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(p.channels))
	binary.Write(&buf, binary.LittleEndian, uint32(p.sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(p.width*8))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}

// WAV builds a single WAV file from raw PCM; exported for tests and for
// providers that return bare PCM.
func WAV(pcm []byte, sampleRate, channels, width int) []byte {
	return pcmToWAV(pcm, wavParams{channels: channels, sampleRate: sampleRate, width: width})
}
