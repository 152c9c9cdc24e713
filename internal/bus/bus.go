// Package bus exposes the engine controls and note input on NATS subjects.
//
// Subjects, relative to the configured prefix:
//
//	<prefix>.control.load_voicebank    payload: directory
//	<prefix>.control.unload_voicebank  payload: directory, empty for any
//	<prefix>.control.load_lyric_file   payload: path
//	<prefix>.control.lyric_source      payload: 0|1|2 or param|file|sysex
//	<prefix>.note                      payload: JSON Note
//
// Requests with a reply subject are answered with "ok" or the error text.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cwbudde/algo-utau/internal/config"
	"github.com/cwbudde/algo-utau/lyric"
	"github.com/cwbudde/algo-utau/synth"
)

// ErrUnknownSubject is returned for subjects outside the served set.
var ErrUnknownSubject = errors.New("bus: unknown subject")

// ErrEventsFull is returned when the note queue rejects an event.
var ErrEventsFull = errors.New("bus: event queue full")

// Control is the subset of synth.Controller driven by the bus.
type Control interface {
	LoadVoicebank(path string) error
	UnloadVoicebank(path string) error
	LoadLyricFile(path string) error
	SetLyricSource(source int) error
}

// Note is the JSON payload of a note subject.
type Note struct {
	Kind     string  `json:"kind"` // on, off, bend, lyric
	Note     int     `json:"note"`
	Velocity float32 `json:"velocity"`
	Bend     float32 `json:"bend"`
	Lyric    string  `json:"lyric"`
}

// Event converts n to an engine event at timing 0.
func (n Note) Event() (synth.Event, error) {
	switch strings.ToLower(n.Kind) {
	case "on":
		return synth.NoteOn(0, n.Note, n.Velocity), nil
	case "off":
		return synth.NoteOff(0, n.Note), nil
	case "bend":
		return synth.Event{Kind: synth.EventPitchBend, Bend: n.Bend}, nil
	case "lyric":
		if n.Lyric == "" {
			return synth.Event{}, errors.New("bus: empty lyric")
		}
		f, err := lyric.EncodeFrame(n.Lyric)
		if err != nil {
			return synth.Event{}, err
		}
		b := f.Bytes()
		return synth.Event{Kind: synth.EventSysEx, Data: b[:]}, nil
	}
	return synth.Event{}, fmt.Errorf("bus: unknown note kind %q", n.Kind)
}

// Dispatcher maps subjects to control calls and note events.
type Dispatcher struct {
	prefix  string
	control Control
	events  func(synth.Event) bool
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. events receives note events and
// reports false when it has no room.
func NewDispatcher(prefix string, control Control, events func(synth.Event) bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		prefix:  strings.TrimSuffix(prefix, "."),
		control: control,
		events:  events,
		logger:  logger,
	}
}

// Subjects lists the subjects served.
func (d *Dispatcher) Subjects() []string {
	return []string{d.prefix + ".control.*", d.prefix + ".note"}
}

// Handle applies one message.
func (d *Dispatcher) Handle(subject string, data []byte) error {
	rest, ok := strings.CutPrefix(subject, d.prefix+".")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}
	payload := strings.TrimSpace(string(data))
	switch rest {
	case "control.load_voicebank":
		if payload == "" {
			return errors.New("bus: load_voicebank needs a directory")
		}
		return d.control.LoadVoicebank(payload)
	case "control.unload_voicebank":
		return d.control.UnloadVoicebank(payload)
	case "control.load_lyric_file":
		if payload == "" {
			return errors.New("bus: load_lyric_file needs a path")
		}
		return d.control.LoadLyricFile(payload)
	case "control.lyric_source":
		n, err := strconv.Atoi(payload)
		if err != nil {
			s, perr := lyric.ParseSource(payload)
			if perr != nil {
				return perr
			}
			n = int(s)
		}
		return d.control.SetLyricSource(n)
	case "note":
		var n Note
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("bus: decode note: %w", err)
		}
		ev, err := n.Event()
		if err != nil {
			return err
		}
		if !d.events(ev) {
			return ErrEventsFull
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
}

func (d *Dispatcher) handleMsg(msg *nats.Msg) {
	err := d.Handle(msg.Subject, msg.Data)
	if err != nil {
		d.logger.Warn("bus message rejected", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
	}
	if msg.Reply == "" {
		return
	}
	reply := []byte("ok")
	if err != nil {
		reply = []byte(err.Error())
	}
	if rerr := msg.Respond(reply); rerr != nil {
		d.logger.Warn("bus reply failed", slog.String("error", rerr.Error()))
	}
}

// Client is a NATS connection serving a Dispatcher.
type Client struct {
	conn *nats.Conn
	subs []*nats.Subscription
	log  *slog.Logger
}

// Connect dials the configured servers and subscribes d.
func Connect(ctx context.Context, cfg config.BusConfig, d *Dispatcher, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options := []nats.Option{
		nats.Name("utau-live"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	c := &Client{conn: conn, log: log}
	for _, subject := range d.Subjects() {
		sub, err := conn.Subscribe(subject, d.handleMsg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	log.Info("connected to NATS", slog.String("servers", url), slog.String("prefix", d.prefix))
	return c, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	for _, sub := range c.subs {
		_ = sub.Drain()
	}
	_ = c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}
