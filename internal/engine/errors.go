package engine

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by the tx.* issuer methods. The tx class is
// declared for wire completeness but this engine never enters transaction
// mode.
var ErrNotImplemented = errors.New("engine: method not implemented")

// ErrNotConnected is returned by any issuer call attempted after the
// connection has been marked closed, by issuer calls on a channel that is
// not Open, by ChannelOpen on an id that already has a channel record, and
// by ReceiveMethod for an inbound method on a channel that is neither Open
// nor Closing.
var ErrNotConnected = errors.New("engine: not connected")

// InvalidChannelError is returned when an operation names a channel id that
// has no Channel record, either never registered or already removed.
type InvalidChannelError struct {
	ChannelID ShortUInt
}

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("engine: invalid channel %d", e.ChannelID)
}

// InvalidMethodError is returned when ReceiveMethod is given a Method value
// it has no handler for.
type InvalidMethodError struct {
	Method Method
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("engine: invalid or unexpected method %T", e.Method)
}

// UnexpectedAnswerError is returned when a channel's awaiting FIFO is
// either empty or holds a different Answer variant than the one the
// inbound reply requires, or when channel.open_ok or channel.close_ok
// arrives while the channel is not Opening or Closing respectively
// (Want is then nil). This is unrecoverable: the
// channel transitions to an error state and must be closed.
type UnexpectedAnswerError struct {
	ChannelID ShortUInt
	Got       Method
	Want      Answer
}

func (e *UnexpectedAnswerError) Error() string {
	if e.Want == nil {
		return fmt.Sprintf("engine: channel %d received %T but nothing was awaited", e.ChannelID, e.Got)
	}
	return fmt.Sprintf("engine: channel %d received %T but awaited %T", e.ChannelID, e.Got, e.Want)
}
