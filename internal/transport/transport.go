// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rtaudio/internal/analysis"
	"rtaudio/pkg/meter"
	"rtaudio/pkg/param"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried in the "type" field.
const (
	TypeLevel   = "level"
	TypeBands   = "bands"
	TypeParams  = "params"
	TypeError   = "error"
	TypeSet     = "set"
	TypeGet     = "get"
	TypeMessage = "message"
)

// ErrUnknownCommand is returned for a command type nobody handles.
var ErrUnknownCommand = errors.New("unknown command")

// LevelMessage is the JSON form of a meter reading.
type LevelMessage struct {
	Type   string  `json:"type"`
	PeakDB float32 `json:"peak_db"`
	RMSDB  float32 `json:"rms_db"`
}

// NewLevelMessage wraps a meter reading.
func NewLevelMessage(l meter.Level) LevelMessage {
	return LevelMessage{Type: TypeLevel, PeakDB: l.PeakDB, RMSDB: l.RMSDB}
}

// BandsMessage is the JSON form of a spectrum reading, in dBFS per band.
type BandsMessage struct {
	Type  string             `json:"type"`
	Bands map[string]float32 `json:"bands"`
}

// NewBandsMessage wraps a spectrum reading.
func NewBandsMessage(b analysis.Bands) any {
	return BandsMessage{Type: TypeBands, Bands: b.Map()}
}

// ParamsMessage reports the current parameter values.
type ParamsMessage struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params"`
}

// ErrorMessage reports a rejected command back to its sender.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Command is a request from a remote client.
//
//	{"type":"set","name":"gain","value":"0.5"}
//	{"type":"get"}
//	{"type":"message","name":"mute","value":"true"}
type Command struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// CommandHandler executes a command. A non-nil reply is sent back to the
// client that issued it.
type CommandHandler func(Command) (reply any, err error)

// ParamHandler serves "set" and "get" commands from set. Other command types
// go to next, or fail with ErrUnknownCommand when next is nil.
func ParamHandler(set *param.Set, next CommandHandler) CommandHandler {
	return func(cmd Command) (any, error) {
		switch cmd.Type {
		case TypeSet:
			if err := set.SetString(cmd.Name, cmd.Value); err != nil {
				return nil, err
			}
			return ParamsMessage{Type: TypeParams, Params: set.Snapshot()}, nil
		case TypeGet:
			return ParamsMessage{Type: TypeParams, Params: set.Snapshot()}, nil
		}
		if next != nil {
			return next(cmd)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// Pump sends a LevelMessage to t every interval while latest holds a reading
// newer than the last one sent. It returns when ctx is done.
func Pump(ctx context.Context, latest *meter.Latest, interval time.Duration, t Transport) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seen uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := latest.Count(); n != seen {
				seen = n
				if err := t.Send(NewLevelMessage(latest.Load())); err != nil {
					return fmt.Errorf("transport: send level: %w", err)
				}
			}
		}
	}
}

// Relay sends the newest value received from ch to t at most once per
// interval, wrapped by wrap. Older values are coalesced. It returns when ctx
// is done or ch is closed.
func Relay[T any](ctx context.Context, ch <-chan T, interval time.Duration, wrap func(T) any, t Transport) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		latest T
		fresh  bool
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			latest, fresh = v, true
		case <-ticker.C:
			if !fresh {
				continue
			}
			fresh = false
			if err := t.Send(wrap(latest)); err != nil {
				return fmt.Errorf("transport: relay: %w", err)
			}
		}
	}
}
