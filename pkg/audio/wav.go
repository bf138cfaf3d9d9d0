package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrUnsupportedFormat is returned for audio the engine cannot play
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format describes interleaved PCM samples
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is used for synthesized tones
var DefaultFormat = Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitDepth)
}

const wavPCM = 1

// LoadWAV reads a WAV file from disk
func LoadWAV(path string) (Sound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sound{}, fmt.Errorf("read sound %s: %w", path, err)
	}
	s, err := ParseWAV(data)
	if err != nil {
		return Sound{}, fmt.Errorf("parse sound %s: %w", path, err)
	}
	s.Name = filepath.Base(path)
	return s, nil
}

// ParseWAV decodes a RIFF/WAVE container holding 16-bit PCM
func ParseWAV(data []byte) (Sound, error) {
	r := bytes.NewReader(data)

	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Sound{}, fmt.Errorf("%w: short header", ErrUnsupportedFormat)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Sound{}, fmt.Errorf("%w: not a WAVE file", ErrUnsupportedFormat)
	}

	var (
		format  Format
		haveFmt bool
	)
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return Sound{}, fmt.Errorf("%w: no data chunk", ErrUnsupportedFormat)
			}
			return Sound{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			if chunk.Size < 16 {
				return Sound{}, fmt.Errorf("%w: fmt chunk too small", ErrUnsupportedFormat)
			}
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return Sound{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
			}
			if fmtChunk.AudioFormat != wavPCM {
				return Sound{}, fmt.Errorf("%w: compression code %d", ErrUnsupportedFormat, fmtChunk.AudioFormat)
			}
			format = Format{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			if format.BitDepth != 16 {
				return Sound{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, format.BitDepth)
			}
			// Skip any extra format bytes
			if extra := int64(chunk.Size) - 16 + int64(chunk.Size%2); extra > 0 {
				if _, err := r.Seek(extra, io.SeekCurrent); err != nil {
					return Sound{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
				}
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return Sound{}, fmt.Errorf("%w: data before fmt", ErrUnsupportedFormat)
			}
			size := int(chunk.Size)
			if size > r.Len() {
				size = r.Len()
			}
			pcm := make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return Sound{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
			}
			return Sound{Format: format, PCM: pcm}, nil

		default:
			// Chunks are word aligned
			skip := int64(chunk.Size) + int64(chunk.Size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Sound{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
			}
		}
	}
}

// EncodeWAV wraps s in a minimal RIFF/WAVE container
func EncodeWAV(s Sound) []byte {
	var buf bytes.Buffer
	blockAlign := s.Format.Channels * s.Format.BitDepth / 8

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(s.PCM)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(s.Format.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(s.Format.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(s.Format.SampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(s.Format.BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(s.PCM)))
	buf.Write(s.PCM)

	return buf.Bytes()
}
