package core

import "github.com/automoto/kartsync/shared/messages"

// command is queued by router callbacks and applied by the game loop.
type command interface {
	isCommand()
}

type joinCommand struct {
	peer Peer
	req  messages.JoinRequest
}

type moveCommand struct {
	peer Peer
	move messages.Move
}

type leaveCommand struct {
	peer Peer
}

func (joinCommand) isCommand()  {}
func (moveCommand) isCommand()  {}
func (leaveCommand) isCommand() {}
