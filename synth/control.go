package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-utau/internal/spsc"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/voicebank"
)

// DefaultControlCapacity is the number of control messages that may be
// queued between two blocks.
const DefaultControlCapacity = 10

// ErrChannelFull is returned when the control queue has no room. The
// message is dropped; the audio side is unaffected.
var ErrChannelFull = errors.New("synth: control channel full")

// MessageKind discriminates Message.
type MessageKind int

const (
	MsgLoadVoicebank MessageKind = iota
	MsgUnloadVoicebank
	MsgLoadLyricFile
	MsgSetLyricSource
	MsgInstallVoicebank
)

func (k MessageKind) String() string {
	switch k {
	case MsgLoadVoicebank:
		return "load_voicebank"
	case MsgUnloadVoicebank:
		return "unload_voicebank"
	case MsgLoadLyricFile:
		return "load_lyric_file"
	case MsgSetLyricSource:
		return "set_lyric_source"
	case MsgInstallVoicebank:
		return "install_voicebank"
	}
	return "unknown"
}

// Message is a control command applied by the engine at the start of the
// next block.
type Message struct {
	Kind   MessageKind
	Path   string
	Source lyric.Source
	Bank   *voicebank.Bank // MsgInstallVoicebank
}

// Controller is the control-side handle of an engine. Its methods may be
// called from any goroutine; they never wait on the audio side.
type Controller struct {
	mu         sync.Mutex
	ring       *spsc.Ring[Message]
	sampleRate int
	logger     *slog.Logger
	dropped    atomic.Uint64
}

func newController(ring *spsc.Ring[Message], sampleRate int, logger *slog.Logger) *Controller {
	return &Controller{ring: ring, sampleRate: sampleRate, logger: logger}
}

// Send queues m.
func (c *Controller) Send(m Message) error {
	c.mu.Lock()
	ok := c.ring.Push(m)
	c.mu.Unlock()
	if !ok {
		c.dropped.Add(1)
		c.logger.Warn("control message dropped", "kind", m.Kind.String(), "path", m.Path)
		return fmt.Errorf("%w: %s", ErrChannelFull, m.Kind)
	}
	return nil
}

// LoadVoicebank asks the audio side to load the voicebank directory at path,
// replacing the current one. Loading happens on the audio goroutine.
func (c *Controller) LoadVoicebank(path string) error {
	return c.Send(Message{Kind: MsgLoadVoicebank, Path: path})
}

// UnloadVoicebank removes the voicebank loaded from path. An empty path
// removes whatever is loaded.
func (c *Controller) UnloadVoicebank(path string) error {
	return c.Send(Message{Kind: MsgUnloadVoicebank, Path: path})
}

// LoadLyricFile replaces the file lyric producer's token list.
func (c *Controller) LoadLyricFile(path string) error {
	return c.Send(Message{Kind: MsgLoadLyricFile, Path: path})
}

// SetLyricSource selects the active lyric producer: 0 param, 1 file,
// 2 SysEx.
func (c *Controller) SetLyricSource(source int) error {
	s, err := lyric.SourceFromInt(source)
	if err != nil {
		return err
	}
	return c.Send(Message{Kind: MsgSetLyricSource, Source: s})
}

// PreloadVoicebank loads and prepares the voicebank at path on the calling
// goroutine and hands the finished bank to the audio side. Ledger errors
// are returned directly. The context is only consulted before loading
// starts; a started load runs to completion.
func (c *Controller) PreloadVoicebank(ctx context.Context, path string) (*voicebank.Bank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bank, err := voicebank.LoadBank(path, c.sampleRate, c.logger)
	if err != nil {
		return nil, err
	}
	if err := c.Send(Message{Kind: MsgInstallVoicebank, Path: path, Bank: bank}); err != nil {
		return bank, err
	}
	return bank, nil
}

// Dropped returns the number of messages rejected because the queue was full.
func (c *Controller) Dropped() uint64 { return c.dropped.Load() }

// Pending returns the number of queued messages.
func (c *Controller) Pending() int { return c.ring.Len() }
