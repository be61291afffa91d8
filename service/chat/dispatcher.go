package chat

import (
	"fmt"

	"SaChat/logger"
)

type Handler interface {
	Type() EventType
	Handle(ctx *ChatContext, f *Frame, sess *Session) error
}

type ChatContext struct {
	S *Server
}

type Dispatcher struct {
	handlers map[EventType]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *ChatContext, f *Frame, sess *Session) error {
	h, ok := d.handlers[f.Type]
	if !ok {
		return fmt.Errorf("no handler for type=%s", f.Type)
	}
	return h.Handle(ctx, f, sess)
}

func (d *Dispatcher) GetHandler(t EventType) Handler {
	h, ok := d.handlers[t]
	if !ok {
		logger.Infof("no handler for type=%s", t)
		return nil
	}
	return h
}
