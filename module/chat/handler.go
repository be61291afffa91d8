package chat

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"

	midsec "SaChat/middleware/security"
	"SaChat/module/chat/store"
	"SaChat/module/user"
	chatsvc "SaChat/service/chat"
	"SaChat/tools/errs"

	"github.com/gin-gonic/gin"
)

// API SaChat 的 HTTP 入口：发消息/已读/历史走协调器，联系人与 id 走存储。
type API struct {
	Delivery *chatsvc.Delivery
	Presence *chatsvc.PresenceRegistry
	Contacts store.ContactStore
	Dir      user.Directory
}

func NewAPI(d *chatsvc.Delivery, p *chatsvc.PresenceRegistry, c store.ContactStore, dir user.Directory) *API {
	return &API{Delivery: d, Presence: p, Contacts: c, Dir: dir}
}

// abortErr 业务错误码 -> HTTP 状态
func abortErr(c *gin.Context, err error) {
	ce := errs.CodeOf(err)
	if ce == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	status := http.StatusInternalServerError
	switch ce.Code {
	case errs.CodeMalformedInput:
		status = http.StatusBadRequest
	case errs.CodeRecipientNotFound, errs.CodeSeenNotUpdated:
		status = http.StatusNotFound
	case errs.CodeIDTaken:
		status = http.StatusConflict
	case errs.CodeUnauthorized, errs.CodeTokenExpired:
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": ce.Msg})
}

// HandlerSendMessage POST /sachat/send-message {to, message}
func (a *API) HandlerSendMessage(c *gin.Context) {
	var req struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing recipient or message text"})
		return
	}

	msg, err := a.Delivery.Send(c.Request.Context(), midsec.UserID(c), req.To, req.Message)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messageData": msg})
}

// HandlerMarkSeen POST /sachat/mark-seen {messageId: 1 | [1,2,3]}
func (a *API) HandlerMarkSeen(c *gin.Context) {
	var req struct {
		MessageID json.RawMessage `json:"messageId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.MessageID) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing messageId"})
		return
	}

	// 单个 id 或数组都接受
	var ids []int64
	if err := json.Unmarshal(req.MessageID, &ids); err != nil {
		var single int64
		if err := json.Unmarshal(req.MessageID, &single); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing messageId"})
			return
		}
		ids = []int64{single}
	}

	count, err := a.Delivery.MarkSeen(c.Request.Context(), midsec.UserID(c), ids)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updatedCount": count})
}

// HandlerMessages GET /sachat/messages?with=<phone>
func (a *API) HandlerMessages(c *gin.Context) {
	withPhone := c.Query("with")
	if withPhone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contact phone is required"})
		return
	}
	msgs, err := a.Delivery.History(c.Request.Context(), midsec.UserID(c), withPhone)
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// HandlerAddContact POST /sachat/add-contact {name, phone | sachat_id}
func (a *API) HandlerAddContact(c *gin.Context) {
	var req struct {
		Phone    string `json:"phone"`
		SaChatID string `json:"sachat_id"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.Phone == "" && req.SaChatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone or sachat id required"})
		return
	}

	ctx := c.Request.Context()
	var (
		contactID int64
		found     bool
		err       error
	)
	if req.Phone != "" {
		contactID, found, err = a.Dir.FindUserIDByPhone(ctx, req.Phone)
	} else {
		contactID, found, err = a.Contacts.FindUserIDBySaChatID(ctx, req.SaChatID)
	}
	if err != nil {
		abortErr(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"found": false, "message": "contact not found, they haven't joined SaChat yet"})
		return
	}

	added, err := a.Contacts.AddContact(ctx, midsec.UserID(c), contactID, req.Name)
	if err != nil {
		abortErr(c, err)
		return
	}
	if !added {
		c.JSON(http.StatusBadRequest, gin.H{"error": "this contact is already in your contact list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "contact added"})
}

// HandlerGetContacts GET /sachat/get-contacts
func (a *API) HandlerGetContacts(c *gin.Context) {
	contacts, err := a.Contacts.ListContacts(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "contacts": contacts})
}

// HandlerChatContacts GET /sachat/chat-contacts
// 会话列表；在线标记出自内存注册表，不读库。
func (a *API) HandlerChatContacts(c *gin.Context) {
	summaries, err := a.Contacts.ListChatSummaries(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		abortErr(c, err)
		return
	}
	for i := range summaries {
		summaries[i].IsOnline = a.Presence.IsUserOnline(summaries[i].ContactID)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "contacts": summaries})
}

// HandlerGetSaChatIDs GET /sachat/ids
// 已认领返回现有 id；否则按用户名生成候选。
func (a *API) HandlerGetSaChatIDs(c *gin.Context) {
	ctx := c.Request.Context()
	userID := midsec.UserID(c)

	id, exists, err := a.Contacts.GetSaChatID(ctx, userID)
	if err != nil {
		abortErr(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"exists": true, "sachat_id": id})
		return
	}

	username, ok, err := a.Dir.FindUsernameByUserID(ctx, userID)
	if err != nil {
		abortErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": false, "options": suggestSaChatIDs(username)})
}

// HandlerClaimSaChatID POST /sachat/ids {selectedId}
func (a *API) HandlerClaimSaChatID(c *gin.Context) {
	var req struct {
		SelectedID string `json:"selectedId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.SelectedID) < 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := a.Contacts.ClaimSaChatID(c.Request.Context(), midsec.UserID(c), req.SelectedID); err != nil {
		abortErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// suggestSaChatIDs 基于用户名的候选 id（样式沿用老客户端认得的那几种）。
func suggestSaChatIDs(username string) []string {
	base := strings.ToLower(username)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if len(base) > 6 {
		base = base[:6]
	}
	if base == "" {
		base = "user"
	}

	return []string{
		fmt.Sprintf("%s_%d", base, 1000+rand.Intn(9000)),
		fmt.Sprintf("%s.x%d", base, rand.Intn(99)),
		fmt.Sprintf("mx_%s%d", base, rand.Intn(1000)),
		fmt.Sprintf("%s%d_sc", base, rand.Intn(99)),
		fmt.Sprintf("x%s_id%d", base, rand.Intn(999)),
		fmt.Sprintf("sc_%s_%d", base, 100+rand.Intn(900)),
		fmt.Sprintf("%s_live%d", base, rand.Intn(100)),
	}
}
