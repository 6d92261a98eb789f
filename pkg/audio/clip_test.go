package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func wavBytes(t *testing.T, format Format, pcm []byte, extra bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	buf.WriteString("RIFF")
	w(uint32(0))
	buf.WriteString("WAVE")
	if extra {
		buf.WriteString("LIST")
		w(uint32(3))
		buf.Write([]byte{1, 2, 3, 0})
	}
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(format.Channels))
	w(uint32(format.SampleRate))
	w(uint32(format.SampleRate * format.Channels * format.BitDepth / 8))
	w(uint16(format.Channels * format.BitDepth / 8))
	w(uint16(format.BitDepth))
	buf.WriteString("data")
	w(uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func TestParseWAV(t *testing.T) {
	format := Format{SampleRate: 8000, Channels: 2, BitDepth: 16}
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	clip, err := ParseWAV(wavBytes(t, format, pcm, true))
	if err != nil {
		t.Fatal(err)
	}
	if clip.Format != format {
		t.Fatalf("format = %+v", clip.Format)
	}
	if !bytes.Equal(clip.PCM, pcm) {
		t.Fatalf("pcm = %v", clip.PCM)
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	if _, err := ParseWAV([]byte("not audio at all")); err == nil {
		t.Fatal("expected error")
	}
	if _, err := ParseWAV(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestTone(t *testing.T) {
	clip := Tone(DefaultFormat, []float64{440, 880}, 100*time.Millisecond, 50*time.Millisecond)
	if got := clip.Duration(); got != 250*time.Millisecond {
		t.Fatalf("duration = %v", got)
	}
	if len(clip.PCM)%2 != 0 {
		t.Fatal("16-bit samples must be whole")
	}
}

func TestLoadClip(t *testing.T) {
	fs := afero.NewMemMapFs()
	format := Format{SampleRate: 22050, Channels: 1, BitDepth: 16}
	if err := afero.WriteFile(fs, "/sounds/chime.wav", wavBytes(t, format, []byte{0, 1, 0, 2}, false), 0o644); err != nil {
		t.Fatal(err)
	}

	clip, err := LoadClip(fs, "/sounds/chime.wav")
	if err != nil || clip.Format != format || len(clip.PCM) != 4 {
		t.Fatalf("clip = %+v, err = %v", clip, err)
	}

	if _, err := LoadClip(fs, "/sounds/missing.wav"); err == nil {
		t.Fatal("expected error for missing file")
	}

	beep, err := LoadClip(fs, "")
	if err != nil || beep.Format != DefaultFormat || len(beep.PCM) == 0 {
		t.Fatalf("empty path must produce the built-in beep")
	}
}
