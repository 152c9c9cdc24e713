package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/synth"
)

var errQuit = errors.New("quit")

const consoleHelp = `commands:
  on <note> [velocity 0-127]   start a note
  off <note>                   release a note
  bend <-1..1>                 pitch bend
  lyric <text>                 send a SysEx lyric
  param <name> <value>         set gain|instant_cutoff|crossfade_ms|bend_range|vowel|consonant
  load <dir>                   load a voicebank
  unload [dir]                 unload the voicebank
  lyrics <path>                load a lyric file
  source <0|1|2|param|file|sysex>
  stats                        print engine counters
  quit`

// console reads commands line by line and routes them to the engine.
// Voicebanks are prepared on the console goroutine so ledger errors are
// reported at the prompt.
type console struct {
	ctx    context.Context
	engine *synth.Engine
	notes  *noteQueue
	out    io.Writer
}

func (c *console) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		err := c.exec(sc.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
	return sc.Err()
}

func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	ctrl := c.engine.Controller()
	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "stats":
		s := c.engine.Stats()
		fmt.Fprintf(c.out, "blocks=%d voices=%d started=%d dropped=%d unresolved=%d amplitude=%.4f\n",
			s.Blocks, s.ActiveVoices, s.NotesStarted, s.NotesDropped, s.NotesUnresolved, c.engine.Amplitude())
		return nil
	case "load":
		if len(args) != 1 {
			return errors.New("usage: load <dir>")
		}
		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		bank, err := ctrl.PreloadVoicebank(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "loaded %s: %d samples\n", bank.Dir, bank.Samples.Len())
		if err := bank.Err(); err != nil {
			fmt.Fprintf(c.out, "warning: %v\n", err)
		}
		return nil
	case "unload":
		return ctrl.UnloadVoicebank(strings.Join(args, " "))
	case "lyrics":
		if len(args) != 1 {
			return errors.New("usage: lyrics <path>")
		}
		return ctrl.LoadLyricFile(args[0])
	case "source":
		if len(args) != 1 {
			return errors.New("usage: source <0|1|2>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			s, perr := lyric.ParseSource(args[0])
			if perr != nil {
				return perr
			}
			n = int(s)
		}
		return ctrl.SetLyricSource(n)
	}

	ev, err := parseEvent(cmd, args)
	if err != nil {
		return err
	}
	if !c.notes.push(ev) {
		return errors.New("note queue full")
	}
	return nil
}

// parseEvent builds a note-side event from a console command.
func parseEvent(cmd string, args []string) (synth.Event, error) {
	switch cmd {
	case "on":
		if len(args) < 1 || len(args) > 2 {
			return synth.Event{}, errors.New("usage: on <note> [velocity]")
		}
		note, err := parseNote(args[0])
		if err != nil {
			return synth.Event{}, err
		}
		vel := 100
		if len(args) == 2 {
			if vel, err = strconv.Atoi(args[1]); err != nil || vel < 0 || vel > 127 {
				return synth.Event{}, fmt.Errorf("bad velocity %q", args[1])
			}
		}
		return synth.NoteOn(0, note, float32(vel)/127), nil
	case "off":
		if len(args) != 1 {
			return synth.Event{}, errors.New("usage: off <note>")
		}
		note, err := parseNote(args[0])
		if err != nil {
			return synth.Event{}, err
		}
		return synth.NoteOff(0, note), nil
	case "bend":
		if len(args) != 1 {
			return synth.Event{}, errors.New("usage: bend <-1..1>")
		}
		v, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return synth.Event{}, fmt.Errorf("bad bend %q", args[0])
		}
		return synth.Event{Kind: synth.EventPitchBend, Bend: float32(v)}, nil
	case "lyric":
		if len(args) != 1 {
			return synth.Event{}, errors.New("usage: lyric <text>")
		}
		f, err := lyric.EncodeFrame(args[0])
		if err != nil {
			return synth.Event{}, err
		}
		b := f.Bytes()
		return synth.Event{Kind: synth.EventSysEx, Data: b[:]}, nil
	case "param":
		if len(args) != 2 {
			return synth.Event{}, errors.New("usage: param <name> <value>")
		}
		id, ok := synth.ParseParamID(args[0])
		if !ok {
			return synth.Event{}, fmt.Errorf("unknown parameter %q", args[0])
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return synth.Event{}, fmt.Errorf("bad value %q", args[1])
		}
		return synth.Event{Kind: synth.EventParam, Param: id, Value: v}, nil
	}
	return synth.Event{}, fmt.Errorf("unknown command %q (try help)", cmd)
}

func parseNote(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 127 {
		return 0, fmt.Errorf("bad note %q", s)
	}
	return n, nil
}
