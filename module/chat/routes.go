package chat

import (
	mid "SaChat/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 挂载 SaChat 的 HTTP 路由；实时入口 /ws 不走鉴权中间件，
// 身份在 socket 协议内用 register 事件绑定。
func RegisterRoutes(r *gin.Engine, api *API, wsHandler gin.HandlerFunc, secret []byte) {
	auth := mid.RouteOpt{IsAuth: true, Secret: secret}

	mid.POST(r, "/sachat/send-message", api.HandlerSendMessage, auth)
	mid.POST(r, "/sachat/mark-seen", api.HandlerMarkSeen, auth)
	mid.GET(r, "/sachat/messages", api.HandlerMessages, auth)

	mid.POST(r, "/sachat/add-contact", api.HandlerAddContact, auth)
	mid.GET(r, "/sachat/get-contacts", api.HandlerGetContacts, auth)
	mid.GET(r, "/sachat/chat-contacts", api.HandlerChatContacts, auth)

	mid.GET(r, "/sachat/ids", api.HandlerGetSaChatIDs, auth)
	mid.POST(r, "/sachat/ids", api.HandlerClaimSaChatID, auth)

	r.GET("/ws", wsHandler)
}
