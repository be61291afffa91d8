package handlers

import (
	chat "SaChat/service/chat"
)

// RegisterAll 把全部入站事件处理器挂到网关的 dispatcher 上。
func RegisterAll(s *chat.Server) {
	for _, h := range []chat.Handler{
		RegisterHandler{},
		CheckOnlineHandler{},
		SendMessageHandler{},
		LoadMessagesHandler{},
		MarkSeenHandler{},
		TypingHandler{},
		StopTypingHandler{},
	} {
		s.Disp().Register(h)
	}
}
