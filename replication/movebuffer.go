package replication

import (
	"errors"

	"github.com/automoto/kartsync/shared/messages"
)

var ErrMoveOutOfOrder = errors.New("replication: move timestamp is older than the last buffered move")

// MoveBuffer holds the moves a controller has predicted but the server has
// not yet acknowledged, oldest first. Timestamps never decrease.
type MoveBuffer struct {
	moves []messages.Move
	limit int
}

// NewMoveBuffer creates an empty buffer. When limit is positive the oldest
// move is dropped once the buffer holds limit moves.
func NewMoveBuffer(limit int) *MoveBuffer {
	return &MoveBuffer{limit: limit}
}

// Append adds a move to the back of the buffer.
func (b *MoveBuffer) Append(m messages.Move) error {
	if last, ok := b.Last(); ok && m.Timestamp < last.Timestamp {
		return ErrMoveOutOfOrder
	}
	if b.limit > 0 && len(b.moves) >= b.limit {
		b.moves = append(b.moves[:0], b.moves[1:]...)
	}
	b.moves = append(b.moves, m)
	return nil
}

// Prune drops every move the server has acknowledged, that is every move
// with a timestamp at or before ack's. It returns the number removed.
func (b *MoveBuffer) Prune(ack messages.Move) int {
	n := 0
	for n < len(b.moves) && b.moves[n].Timestamp <= ack.Timestamp {
		n++
	}
	if n > 0 {
		b.moves = append(b.moves[:0], b.moves[n:]...)
	}
	return n
}

// Moves returns a copy of the buffered moves, oldest first.
func (b *MoveBuffer) Moves() []messages.Move {
	out := make([]messages.Move, len(b.moves))
	copy(out, b.moves)
	return out
}

// Last returns the newest buffered move.
func (b *MoveBuffer) Last() (messages.Move, bool) {
	if len(b.moves) == 0 {
		return messages.Move{}, false
	}
	return b.moves[len(b.moves)-1], true
}

func (b *MoveBuffer) Len() int {
	return len(b.moves)
}
