// Package domain contains the core entities shared across the replay and
// backtest layers: raw book messages, reconstructed snapshots, strategy
// orders, trades, and execution records.
package domain

import (
	"fmt"
	"time"
)

// Side indicates the book side an order rests on.
type Side uint8

const (
	Bid Side = iota
	Ask
)

// String returns the single-letter wire code ("B" or "S").
func (s Side) String() string {
	if s == Bid {
		return "B"
	}
	return "S"
}

// Opposite returns the other book side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// ParseSide decodes the single-letter wire code used by the message feed.
func ParseSide(code string) (Side, error) {
	switch code {
	case "B":
		return Bid, nil
	case "S":
		return Ask, nil
	default:
		return 0, fmt.Errorf("unknown side %q", code)
	}
}

// MsgKind is the message type of a raw book message.
type MsgKind uint8

const (
	MsgAdd MsgKind = iota
	MsgDelete
	MsgExecute
)

// String returns the single-letter wire code ("A", "D" or "E").
func (k MsgKind) String() string {
	switch k {
	case MsgAdd:
		return "A"
	case MsgDelete:
		return "D"
	default:
		return "E"
	}
}

// ParseMsgKind decodes the single-letter wire code used by the message feed.
func ParseMsgKind(code string) (MsgKind, error) {
	switch code {
	case "A":
		return MsgAdd, nil
	case "D":
		return MsgDelete, nil
	case "E":
		return MsgExecute, nil
	default:
		return 0, fmt.Errorf("unknown message type %q", code)
	}
}

// Message is one raw order-book event as read from the input stream.
// Immutable once parsed. Prices are fixed-point ticks, quantities are lots.
type Message struct {
	SeqTime time.Time // exchange sequencing time, drives replay order
	NetTime time.Time // time the message became visible on the wire
	Kind    MsgKind
	Asset   string
	Side    Side
	Price   int64
	Qty     int64
	OrderID uint64
}
