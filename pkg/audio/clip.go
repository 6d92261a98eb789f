package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/afero"
)

// Format describes PCM sample data
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Clip is little-endian PCM audio ready for playback
type Clip struct {
	Format Format
	PCM    []byte
}

// Duration returns the playing time of the clip
func (c Clip) Duration() time.Duration {
	frame := c.Format.Channels * c.Format.BitDepth / 8
	if frame == 0 || c.Format.SampleRate == 0 {
		return 0
	}
	frames := len(c.PCM) / frame
	return time.Duration(frames) * time.Second / time.Duration(c.Format.SampleRate)
}

var DefaultFormat = Format{SampleRate: 44100, Channels: 1, BitDepth: 16}

// Beep generates a two-tone chime followed by silence, used when no sound file is configured
func Beep() Clip {
	return Tone(DefaultFormat, []float64{880, 660}, 250*time.Millisecond, 700*time.Millisecond)
}

// Tone renders each frequency for step, then appends rest of silence.
// Only 16-bit formats are rendered.
func Tone(format Format, freqs []float64, step, rest time.Duration) Clip {
	perStep := int(float64(format.SampleRate) * step.Seconds())
	silence := int(float64(format.SampleRate) * rest.Seconds())
	frame := format.Channels * 2

	buf := make([]byte, 0, (perStep*len(freqs)+silence)*frame)
	for _, f := range freqs {
		for i := 0; i < perStep; i++ {
			// Short linear fade at both ends avoids clicks
			env := math.Min(1, math.Min(float64(i), float64(perStep-i))/200)
			v := int16(0.4 * env * math.MaxInt16 * math.Sin(2*math.Pi*f*float64(i)/float64(format.SampleRate)))
			for ch := 0; ch < format.Channels; ch++ {
				buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
			}
		}
	}
	buf = append(buf, make([]byte, silence*frame)...)
	return Clip{Format: format, PCM: buf}
}

// LoadClip reads a WAV file from fs. An empty path returns Beep.
func LoadClip(fs afero.Fs, path string) (Clip, error) {
	if path == "" {
		return Beep(), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Clip{}, fmt.Errorf("read sound file: %w", err)
	}
	clip, err := ParseWAV(data)
	if err != nil {
		return Clip{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return clip, nil
}

// ParseWAV extracts the format and sample data of a PCM WAV file
func ParseWAV(data []byte) (Clip, error) {
	r := bytes.NewReader(data)

	var header struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Clip{}, fmt.Errorf("read header: %w", err)
	}
	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return Clip{}, errors.New("not a RIFF/WAVE file")
	}

	var format Format
	haveFormat := false
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return Clip{}, errors.New("no data chunk")
			}
			return Clip{}, fmt.Errorf("read chunk: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if chunk.Size < 16 {
				return Clip{}, fmt.Errorf("fmt chunk too short: %d", chunk.Size)
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return Clip{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if fmtChunk.AudioFormat != 1 {
				return Clip{}, fmt.Errorf("unsupported audio format %d", fmtChunk.AudioFormat)
			}
			format = Format{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}
			haveFormat = true
			if _, err := r.Seek(int64(chunk.Size-16), io.SeekCurrent); err != nil {
				return Clip{}, err
			}

		case "data":
			if !haveFormat {
				return Clip{}, errors.New("data chunk before fmt chunk")
			}
			size := int(chunk.Size)
			if size > r.Len() {
				size = r.Len()
			}
			pcm := make([]byte, size)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return Clip{}, fmt.Errorf("read samples: %w", err)
			}
			return Clip{Format: format, PCM: pcm}, nil

		default:
			// Chunks are padded to even sizes
			skip := int64(chunk.Size) + int64(chunk.Size%2)
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Clip{}, err
			}
		}
	}
}
