// Package chime plays the four threshold-alert tones. The engine must be
// unlocked once before anything can sound; until then every Play is a no-op.
package chime

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Key names one of the four alert chimes, matching the threshold colors.
type Key string

const (
	Green  Key = "green"
	Cyan   Key = "cyan"
	Orange Key = "orange"
	Red    Key = "red"
)

// tonePairs are the two-tone frequencies per chime: short, easy to tell
// apart, higher pairs for the sell zone.
var tonePairs = map[Key][2]float64{
	Green:  {880, 1320},
	Cyan:   {740, 1110},
	Orange: {440, 660},
	Red:    {330, 495},
}

// Sink receives a chime that should be emitted somewhere audible.
type Sink interface {
	Emit(key Key) error
}

// Engine fans a chime out to its sinks, gated behind an explicit Unlock.
// Unlock failure is non-fatal: the engine simply stays silent.
type Engine struct {
	log   *slog.Logger
	sinks []Sink

	mu       sync.Mutex
	unlocked bool
}

// NewEngine creates a locked engine with the given sinks.
func NewEngine(log *slog.Logger, sinks ...Sink) *Engine {
	return &Engine{log: log, sinks: sinks}
}

// Unlock prepares every sink for playback and opens the play gate. It must
// be called from a deliberate user action before the first Play. Returns the
// first preparation error; the engine stays locked on failure.
func (e *Engine) Unlock() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unlocked {
		return nil
	}
	for _, s := range e.sinks {
		if p, ok := s.(interface{ Prepare() error }); ok {
			if err := p.Prepare(); err != nil {
				return fmt.Errorf("preparing chime sink: %w", err)
			}
		}
	}
	e.unlocked = true
	return nil
}

// Unlocked reports whether the engine can play.
func (e *Engine) Unlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocked
}

// Play emits the chime on every sink. Silently does nothing while locked;
// sink errors are logged, never propagated.
func (e *Engine) Play(key Key) {
	e.mu.Lock()
	unlocked := e.unlocked
	e.mu.Unlock()
	if !unlocked {
		return
	}
	for _, s := range e.sinks {
		if err := s.Emit(key); err != nil {
			e.log.Warn("chime sink failed", "key", key, "error", err)
		}
	}
}

// SpeakerSink synthesizes the chime WAVs once, writes them under a cache
// directory, and shells out to a player binary (afplay, aplay, paplay...).
type SpeakerSink struct {
	player string
	dir    string

	mu    sync.Mutex
	files map[Key]string
}

// NewSpeakerSink creates a speaker sink using the given player command and
// cache directory. Nothing touches the filesystem until Prepare.
func NewSpeakerSink(player, dir string) *SpeakerSink {
	return &SpeakerSink{player: player, dir: dir, files: make(map[Key]string)}
}

// Prepare resolves the player binary and writes the four chime WAV files.
// This is the platform permission step: if no player exists, unlock fails
// and sound stays off.
func (s *SpeakerSink) Prepare() error {
	if _, err := exec.LookPath(s.player); err != nil {
		return fmt.Errorf("resolving audio player %q: %w", s.player, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, pair := range tonePairs {
		path := filepath.Join(s.dir, fmt.Sprintf("chime-%s.wav", key))
		if err := os.WriteFile(path, synthChimeWAV(pair[0], pair[1], 44100), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		s.files[key] = path
	}
	return nil
}

// Emit plays the chime file without waiting for the player to finish.
func (s *SpeakerSink) Emit(key Key) error {
	s.mu.Lock()
	path, ok := s.files[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no chime file for %q", key)
	}
	cmd := exec.Command(s.player, path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// synthChimeWAV renders a two-tone chime (f1 then f2, overlapping briefly)
// as a 16-bit mono PCM WAV with a fast attack and quick decay.
func synthChimeWAV(f1, f2 float64, sampleRate int) []byte {
	const (
		totalSec  = 0.18
		t2Start   = 0.08
		t1Stop    = 0.10
		amplitude = 6000.0
	)
	n := int(totalSec * float64(sampleRate))
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)

		// Envelope: exponential-ish ramp up over 10ms, decay to the end.
		env := 1.0
		if t < 0.01 {
			env = t / 0.01
		} else {
			env = 1.0 - (t-0.01)/(totalSec-0.01)
		}

		val := 0.0
		if t < t1Stop {
			val += math.Sin(2 * math.Pi * f1 * t)
		}
		if t >= t2Start {
			val += math.Sin(2 * math.Pi * f2 * (t - t2Start))
		}
		val *= amplitude * env
		if val > 32767 {
			val = 32767
		}
		if val < -32768 {
			val = -32768
		}
		samples[i] = int16(val)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	dataSize := len(samples) * 2
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		_ = binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}
