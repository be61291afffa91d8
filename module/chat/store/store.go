package store

import (
	"context"

	"SaChat/module/chat/model"
)

// MessageStore is the persistence boundary the delivery coordinator
// writes through. Postgres is the source of truth for message status;
// the presence registry is only a push optimization.
type MessageStore interface {
	// Insert persists a new message with server timestamp and the given
	// initial status (delivery starts at pending).
	Insert(ctx context.Context, senderID, recipientID int64, body string) (*model.Message, error)

	// UpdateStatus advances a message's status. Backward transitions are
	// ignored (no row matches), keeping the status machine monotonic.
	UpdateStatus(ctx context.Context, messageID int64, status model.Status) error

	// UpdateStatusWhereRecipient advances the status of every listed
	// message owned by recipientID and returns the affected rows.
	// Messages not addressed to recipientID are silently excluded.
	UpdateStatusWhereRecipient(ctx context.Context, messageIDs []int64, recipientID int64, status model.Status) ([]model.Message, error)

	// ListConversation returns all messages between two users, either
	// direction, ordered by timestamp ascending.
	ListConversation(ctx context.Context, userA, userB int64) ([]model.Message, error)
}

// ContactStore covers the saved-contact and sachat-id glue around chat.
type ContactStore interface {
	AddContact(ctx context.Context, ownerID, contactID int64, name string) (added bool, err error)
	ListContacts(ctx context.Context, ownerID int64) ([]model.Contact, error)
	ListChatSummaries(ctx context.Context, userID int64) ([]model.ChatSummary, error)

	GetSaChatID(ctx context.Context, userID int64) (string, bool, error)
	FindUserIDBySaChatID(ctx context.Context, sachatID string) (int64, bool, error)
	ClaimSaChatID(ctx context.Context, userID int64, sachatID string) error
}
