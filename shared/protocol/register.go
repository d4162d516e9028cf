// Package protocol wires the kartsync wire messages onto the necs router.
// Client and server both call into it so that every message type is known
// to the router's serializer on both ends.
package protocol

import (
	"github.com/automoto/kartsync/shared/messages"
	"github.com/leap-fish/necs/router"
)

// ServerHandlers are the callbacks a server registers. Nil handlers are
// skipped.
type ServerHandlers struct {
	OnConnect    func(c *router.NetworkClient)
	OnDisconnect func(c *router.NetworkClient, err error)
	OnError      func(c *router.NetworkClient, err error)
	OnJoin       func(c *router.NetworkClient, msg messages.JoinRequest)
	OnMove       func(c *router.NetworkClient, msg messages.Move)
	// OnUnexpected receives server-bound copies of client-bound messages.
	OnUnexpected func(c *router.NetworkClient, msg any)
}

// ClientHandlers are the callbacks a client registers. Nil handlers are
// skipped.
type ClientHandlers struct {
	OnConnect      func(c *router.NetworkClient)
	OnDisconnect   func(c *router.NetworkClient, err error)
	OnError        func(c *router.NetworkClient, err error)
	OnJoinAccepted func(c *router.NetworkClient, msg messages.JoinAccepted)
	OnJoinRejected func(c *router.NetworkClient, msg messages.JoinRejected)
	OnState        func(c *router.NetworkClient, msg messages.StateUpdate)
	OnDespawn      func(c *router.NetworkClient, msg messages.KartDespawned)
	OnUnexpected   func(c *router.NetworkClient, msg any)
}

// RouteServer registers h on the router.
func RouteServer(h ServerHandlers) {
	routeLifecycle(h.OnConnect, h.OnDisconnect, h.OnError)

	on(h.OnJoin)
	on(h.OnMove)

	on(unexpected[messages.JoinAccepted](h.OnUnexpected))
	on(unexpected[messages.JoinRejected](h.OnUnexpected))
	on(unexpected[messages.StateUpdate](h.OnUnexpected))
	on(unexpected[messages.KartDespawned](h.OnUnexpected))
}

// RouteClient registers h on the router.
func RouteClient(h ClientHandlers) {
	routeLifecycle(h.OnConnect, h.OnDisconnect, h.OnError)

	on(h.OnJoinAccepted)
	on(h.OnJoinRejected)
	on(h.OnState)
	on(h.OnDespawn)

	on(unexpected[messages.JoinRequest](h.OnUnexpected))
	on(unexpected[messages.Move](h.OnUnexpected))
}

// Reset drops every registered handler.
func Reset() {
	router.ResetRouter()
}

func routeLifecycle(onConnect func(*router.NetworkClient), onDisconnect, onError func(*router.NetworkClient, error)) {
	if onConnect != nil {
		router.OnConnect(onConnect)
	}
	if onDisconnect != nil {
		router.OnDisconnect(onDisconnect)
	}
	if onError != nil {
		router.OnError(onError)
	}
}

func on[T any](fn func(*router.NetworkClient, T)) {
	if fn == nil {
		// Still register the type so it can be serialized
		fn = func(*router.NetworkClient, T) {}
	}
	router.On(fn)
}

func unexpected[T any](fn func(*router.NetworkClient, any)) func(*router.NetworkClient, T) {
	if fn == nil {
		return nil
	}
	return func(c *router.NetworkClient, msg T) {
		fn(c, msg)
	}
}
