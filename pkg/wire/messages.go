package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type is the "type" discriminator carried by every frame.
type Type string

// Inbound frame types.
const (
	TypeJoin      Type = "join"
	TypeMove      Type = "move"
	TypeReconnect Type = "reconnect"
)

// Outbound frame types.
const (
	TypeWaiting              Type = "waiting"
	TypeCountdownTick        Type = "countdownTick"
	TypeMatchStarted         Type = "matchStarted"
	TypeMatchResumed         Type = "matchResumed"
	TypeBoardUpdated         Type = "boardUpdated"
	TypeMatchEnded           Type = "matchEnded"
	TypeOpponentDisconnected Type = "opponentDisconnected"
	TypeOpponentReconnected  Type = "opponentReconnected"
	TypeRejected             Type = "rejected"
)

// MaxNameLength bounds participant names in bytes.
const MaxNameLength = 32

var ErrMalformed = errors.New("malformed frame")

// Command is a decoded inbound frame.
type Command struct {
	Type    Type   `json:"type"`
	Name    string `json:"name,omitempty"`
	Column  *int   `json:"column,omitempty"`
	MatchID string `json:"matchId,omitempty"`
}

// DecodeCommand parses and validates an inbound frame. Names are trimmed.
func DecodeCommand(raw []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(raw, &c); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c.Name = strings.TrimSpace(c.Name)
	c.MatchID = strings.TrimSpace(c.MatchID)
	switch c.Type {
	case TypeJoin:
		if c.Name == "" {
			return Command{}, fmt.Errorf("%w: join requires name", ErrMalformed)
		}
	case TypeMove:
		if c.Column == nil {
			return Command{}, fmt.Errorf("%w: move requires column", ErrMalformed)
		}
	case TypeReconnect:
		if c.Name == "" && c.MatchID == "" {
			return Command{}, fmt.Errorf("%w: reconnect requires name or matchId", ErrMalformed)
		}
	default:
		return Command{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, c.Type)
	}
	return c, nil
}

// PeekType returns the discriminator of any frame without decoding the rest.
func PeekType(raw []byte) (Type, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return head.Type, nil
}

func Join(name string) Command { return Command{Type: TypeJoin, Name: name} }

func Move(column int) Command { return Command{Type: TypeMove, Column: &column} }

func Reconnect(name, matchID string) Command {
	return Command{Type: TypeReconnect, Name: name, MatchID: matchID}
}

// Message is any outbound frame.
type Message interface {
	Kind() Type
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Waiting struct {
	Type    Type `json:"type"`
	Seconds int  `json:"seconds"`
}

func (Waiting) Kind() Type { return TypeWaiting }

type CountdownTick struct {
	Type    Type `json:"type"`
	Seconds int  `json:"seconds"`
}

func (CountdownTick) Kind() Type { return TypeCountdownTick }

// MatchState is the full snapshot sent on start and on resume.
type MatchState struct {
	Type             Type      `json:"type"`
	MatchID          string    `json:"matchId"`
	Board            [][]int   `json:"board"`
	Turn             int       `json:"turn"`
	YourSide         int       `json:"yourSide"`
	OpponentName     string    `json:"opponentName"`
	OpponentScripted bool      `json:"opponentScripted"`
	Moves            int       `json:"moves"`
	LastMove         *Position `json:"lastMove,omitempty"`
}

func (m MatchState) Kind() Type { return m.Type }

type BoardUpdated struct {
	Type     Type     `json:"type"`
	Board    [][]int  `json:"board"`
	Turn     int      `json:"turn"`
	LastMove Position `json:"lastMove"`
	Side     int      `json:"side"`
}

func (BoardUpdated) Kind() Type { return TypeBoardUpdated }

// MatchEnded carries the winning side and its display name; both are null
// for a draw or an abandoned match.
type MatchEnded struct {
	Type       Type    `json:"type"`
	Board      [][]int `json:"board"`
	WinnerSide *int    `json:"winnerSide"`
	Winner     *string `json:"winner"`
	Draw       bool    `json:"draw"`
	Reason     string  `json:"reason"`
}

func (MatchEnded) Kind() Type { return TypeMatchEnded }

type OpponentDisconnected struct {
	Type    Type `json:"type"`
	Seconds int  `json:"seconds"`
}

func (OpponentDisconnected) Kind() Type { return TypeOpponentDisconnected }

type OpponentReconnected struct {
	Type Type `json:"type"`
}

func (OpponentReconnected) Kind() Type { return TypeOpponentReconnected }

type Rejected struct {
	Type    Type   `json:"type"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
}

func (Rejected) Kind() Type { return TypeRejected }

func NewWaiting(seconds int) Waiting { return Waiting{Type: TypeWaiting, Seconds: seconds} }

func NewCountdownTick(seconds int) CountdownTick {
	return CountdownTick{Type: TypeCountdownTick, Seconds: seconds}
}

func NewOpponentDisconnected(seconds int) OpponentDisconnected {
	return OpponentDisconnected{Type: TypeOpponentDisconnected, Seconds: seconds}
}

func NewOpponentReconnected() OpponentReconnected {
	return OpponentReconnected{Type: TypeOpponentReconnected}
}

func NewRejected(reason Reason, message string) Rejected {
	return Rejected{Type: TypeRejected, Reason: reason, Message: message}
}
