package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-utau/internal/config"
	"github.com/cwbudde/algo-utau/internal/smfread"
	"github.com/cwbudde/algo-utau/internal/wavio"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/preset"
	"github.com/cwbudde/algo-utau/synth"
)

func main() {
	midiPath := flag.String("midi", "", "Standard MIDI file to render (optional)")
	note := flag.Int("note", 60, "MIDI note rendered when no -midi is given")
	velocity := flag.Int("velocity", 100, "MIDI velocity (0-127) of the single note")
	duration := flag.Float64("duration", 1.5, "Single note length in seconds")
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	voicebankDir := flag.String("voicebank", "", "Voicebank directory override")
	lyricsPath := flag.String("lyrics", "", "Lyric text file override")
	lyricSource := flag.String("lyric-source", "", "Lyric source override: param|file|sysex")
	sampleRate := flag.Int("sample-rate", 44100, "Render sample rate in Hz")
	blockSize := flag.Int("block", 256, "Frames per processing block")
	tail := flag.Float64("tail", 1.0, "Maximum seconds rendered after the last event")
	holdBlocks := flag.Int("silence-hold-blocks", 8, "Silent blocks after the last event that end the render")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	logger := config.NewLogger(*logLevel)

	params := synth.NewDefaultParams()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
		params = p
	}
	if *voicebankDir != "" {
		params.Voicebank = *voicebankDir
	}
	if *lyricsPath != "" {
		params.LyricFile = *lyricsPath
		params.LyricSource = lyric.SourceFile
	}
	if *lyricSource != "" {
		s, err := lyric.ParseSource(*lyricSource)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		params.LyricSource = s
	}
	if params.Voicebank == "" {
		fmt.Fprintln(os.Stderr, "Error: no voicebank (use -voicebank or a preset)")
		os.Exit(1)
	}
	if *blockSize < 1 {
		*blockSize = 1
	}

	song, err := loadSong(*midiPath, *note, *velocity, *duration, *sampleRate, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *midiPath, err)
		os.Exit(1)
	}

	engine := synth.NewEngine(*sampleRate, params, synth.WithLogger(logger))
	left, right := render(engine, song, *blockSize, int64(*tail*float64(*sampleRate)), *holdBlocks)

	if err := wavio.WriteStereo(*output, left, right, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	stats := engine.Stats()
	logger.Info("render finished",
		"output", *output,
		"frames", len(left),
		"notes", stats.NotesStarted,
		"dropped", stats.NotesDropped,
		"unresolved", stats.NotesUnresolved)
	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(left))
}

// loadSong reads path, or builds a single note when path is empty.
func loadSong(path string, note, velocity int, seconds float64, sampleRate int, logger *slog.Logger) (*smfread.Song, error) {
	if path != "" {
		return smfread.ReadFile(path, sampleRate, logger)
	}
	off := int64(seconds * float64(sampleRate))
	if off < 1 {
		off = 1
	}
	return &smfread.Song{
		Events: []smfread.TimedEvent{
			{Frame: 0, Event: synth.NoteOn(0, note, float32(velocity)/127)},
			{Frame: off, Event: synth.NoteOff(0, note)},
		},
		Frames: off,
	}, nil
}

// render drives the engine block by block the way a host would, until the
// song has ended and the output stays silent or the tail runs out.
func render(engine *synth.Engine, song *smfread.Song, blockSize int, tailFrames int64, holdBlocks int) ([]float32, []float32) {
	cursor := smfread.NewCursor(song)
	left := make([]float32, 0, song.Frames+tailFrames)
	right := make([]float32, 0, song.Frames+tailFrames)
	blockL := make([]float32, blockSize)
	blockR := make([]float32, blockSize)
	events := make([]synth.Event, 0, 64)
	transport := synth.Transport{Playing: true}

	maxFrames := song.Frames + tailFrames
	silent := 0
	var pos int64
	for pos < maxFrames {
		n := blockSize
		if rem := maxFrames - pos; rem < int64(n) {
			n = int(rem)
		}
		clear(blockL[:n])
		clear(blockR[:n])
		events = cursor.Next(pos, n, events[:0])
		amp := engine.Process(blockL[:n], blockR[:n], events, transport)
		left = append(left, blockL[:n]...)
		right = append(right, blockR[:n]...)
		pos += int64(n)

		if pos > song.Frames && cursor.Done() {
			if amp == 0 {
				silent++
				if silent >= holdBlocks {
					break
				}
			} else {
				silent = 0
			}
		}
	}
	return left, right
}
