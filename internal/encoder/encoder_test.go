package encoder

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"wav", FormatWAV, false},
		{"flac", FormatFLAC, false},
		{"mp3", FormatMP3, false},
		{"", FormatWAV, false},
		{"ogg", "", true},
	}

	for _, c := range cases {
		got, err := ParseFormat(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtensions(t *testing.T) {
	if FormatWAV.Extension() != "wav" || FormatFLAC.Extension() != "flac" || FormatMP3.Extension() != "mp3" {
		t.Fatal("format extension mismatch")
	}
}

func TestNewCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.wav")

	enc, err := New(path, 1, 48000, FormatWAV, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

// Every format must produce a well-formed (possibly empty) file when
// finalized without any audio written.
func TestFinalizeWithoutAudio(t *testing.T) {
	for _, format := range []Format{FormatWAV, FormatFLAC, FormatMP3} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty."+format.Extension())

			enc, err := New(path, 2, 48000, format, false)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := enc.Finalize(); err != nil {
				t.Fatalf("finalize failed: %v", err)
			}

			switch format {
			case FormatWAV:
				f, err := os.Open(path)
				if err != nil {
					t.Fatalf("open: %v", err)
				}
				defer f.Close()
				dec := wav.NewDecoder(f)
				dec.ReadInfo()
				if !dec.IsValidFile() {
					t.Fatal("empty WAV file is not well-formed")
				}
			case FormatFLAC:
				stream, err := flac.ParseFile(path)
				if err != nil {
					t.Fatalf("empty FLAC file is not well-formed: %v", err)
				}
				stream.Close()
			case FormatMP3:
				// MP3 has no parseable container header to validate;
				// the file just has to exist and not be garbage-length.
				if _, err := os.Stat(path); err != nil {
					t.Fatalf("stat: %v", err)
				}
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	enc, err := New(path, 1, 48000, FormatWAV, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	input := []float32{0, 0.25, 0.5, -0.5, 1.0, -1.0, 2.0, -2.0}
	for _, s := range input {
		if err := enc.WriteSample(s); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(buf.Data) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(buf.Data))
	}

	// Out-of-range input must have been clamped before scaling.
	if buf.Data[6] != 32767 || buf.Data[7] != -32767 {
		t.Fatalf("expected clamped extremes, got %d and %d", buf.Data[6], buf.Data[7])
	}
	if got := buf.Data[2]; got < 16300 || got > 16450 {
		t.Fatalf("expected ~0.5 scaled to ~16383, got %d", got)
	}
}

func TestFLACRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.flac")

	enc, err := New(path, 1, 48000, FormatFLAC, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	const n = 9000 // spans multiple FLAC blocks
	for i := 0; i < n; i++ {
		if err := enc.WriteSample(float32(i%100) / 200); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	stream, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer stream.Close()

	if stream.Info.SampleRate != 48000 {
		t.Errorf("sample rate = %d, want 48000", stream.Info.SampleRate)
	}
	if stream.Info.NChannels != 1 {
		t.Errorf("channels = %d, want 1", stream.Info.NChannels)
	}
	if stream.Info.NSamples != n {
		t.Errorf("samples = %d, want %d", stream.Info.NSamples, n)
	}
}

func TestMP3ProducesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.mp3")

	enc, err := New(path, 2, 44100, FormatMP3, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// One second of a quiet ramp, stereo interleaved.
	for i := 0; i < 44100*2; i++ {
		if err := enc.WriteSample(float32(i%441) / 1000); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("MP3 output is empty")
	}
	// MP3 frame sync: 11 set bits at every frame start.
	if data[0] != 0xFF || data[1]&0xE0 != 0xE0 {
		t.Fatalf("missing MP3 frame sync, got % X", data[:2])
	}
}

// The lossy path must reproduce the signal within the codec's expected
// quantization error. Frame alignment shifts by the codec delay, so the
// decoded signal is compared by level (peak and RMS) rather than
// sample-for-sample.
func TestMP3RoundTripLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sine.mp3")

	enc, err := New(path, 1, 44100, FormatMP3, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// One second of a 440 Hz sine at half amplitude.
	const amp = 0.5
	for i := 0; i < 44100; i++ {
		s := float32(amp * math.Sin(2*math.Pi*440*float64(i)/44100))
		if err := enc.WriteSample(s); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := enc.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate() != 44100 {
		t.Fatalf("sample rate = %d, want 44100", dec.SampleRate())
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("read PCM: %v", err)
	}

	// The decoder emits interleaved 16-bit stereo; the left channel
	// carries the mono signal.
	var sumSq float64
	var maxAbs float64
	n := 0
	for i := 0; i+3 < len(raw); i += 4 {
		s := float64(int16(binary.LittleEndian.Uint16(raw[i:]))) / 32767
		sumSq += s * s
		if a := math.Abs(s); a > maxAbs {
			maxAbs = a
		}
		n++
	}
	if n < 44100/2 {
		t.Fatalf("decoded only %d samples", n)
	}

	if maxAbs < 0.4 || maxAbs > 0.6 {
		t.Errorf("decoded peak = %f, want ~%f", maxAbs, amp)
	}
	// A sine's RMS is amp/sqrt(2) ~ 0.354; the codec delay's leading
	// silence dilutes it slightly.
	if rms := math.Sqrt(sumSq / float64(n)); rms < 0.25 || rms > 0.45 {
		t.Errorf("decoded RMS = %f, want ~0.35", rms)
	}
}

func TestUseAfterFinalize(t *testing.T) {
	for _, format := range []Format{FormatWAV, FormatFLAC, FormatMP3} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x."+format.Extension())

			enc, err := New(path, 1, 48000, format, false)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if err := enc.Finalize(); err != nil {
				t.Fatalf("finalize failed: %v", err)
			}

			if err := enc.WriteSample(0.5); !errors.Is(err, ErrFinalized) {
				t.Errorf("WriteSample after finalize: expected ErrFinalized, got %v", err)
			}
			if err := enc.Finalize(); !errors.Is(err, ErrFinalized) {
				t.Errorf("second Finalize: expected ErrFinalized, got %v", err)
			}
		})
	}
}

func TestClampToInt16(t *testing.T) {
	cases := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{1.5, 32767},
		{-1.5, -32767},
		{0.5, 16383},
	}
	for _, c := range cases {
		if got := clampToInt16(c.in); got != c.want {
			t.Errorf("clampToInt16(%f) = %d, want %d", c.in, got, c.want)
		}
	}
}
