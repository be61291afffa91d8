package store

import (
	"context"

	"SaChat/module/chat/model"
	"SaChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PgContactStore struct {
	pool *pgxpool.Pool
}

func NewPgContactStore(pool *pgxpool.Pool) *PgContactStore {
	return &PgContactStore{pool: pool}
}

func (s *PgContactStore) AddContact(ctx context.Context, ownerID, contactID int64, name string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO sachat_contacts (owner_id, contact_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		ownerID, contactID, name)
	if err != nil {
		return false, errs.ErrStoreFailure.WrapMsg("add contact", "err", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgContactStore) ListContacts(ctx context.Context, ownerID int64) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.name, u.phone_number, COALESCE(sc.sachat_id, '')
		FROM sachat_contacts c
		JOIN users u ON c.contact_id = u.id
		LEFT JOIN sachat_users sc ON sc.user_id = u.id
		WHERE c.owner_id = $1
		ORDER BY c.name ASC`,
		ownerID)
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("list contacts", "err", err)
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.Name, &c.Phone, &c.SaChatID); err != nil {
			return nil, errs.ErrStoreFailure.WrapMsg("scan contact", "err", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("iterate contacts", "err", err)
	}
	return out, nil
}

// ListChatSummaries 会话列表：每个对端的最后一条消息与未读数。
// IsOnline 由调用方用在线注册表补齐。
func (s *PgContactStore) ListChatSummaries(ctx context.Context, userID int64) ([]model.ChatSummary, error) {
	rows, err := s.pool.Query(ctx, `
		WITH all_chats AS (
			SELECT
				CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS contact_id,
				MAX(timestamp) AS last_message_time
			FROM sachat_messages
			WHERE sender_id = $1 OR recipient_id = $1
			GROUP BY 1
		),
		last_msgs AS (
			SELECT DISTINCT ON (ac.contact_id) ac.contact_id, m.message_text, m.timestamp, m.sender_id
			FROM all_chats ac
			JOIN sachat_messages m ON (
				(m.sender_id = $1 AND m.recipient_id = ac.contact_id)
				OR (m.sender_id = ac.contact_id AND m.recipient_id = $1)
			) AND m.timestamp = ac.last_message_time
			ORDER BY ac.contact_id, m.id DESC
		),
		unread_counts AS (
			SELECT sender_id AS contact_id, COUNT(*) AS unread_count
			FROM sachat_messages
			WHERE recipient_id = $1 AND status != 'seen'
			GROUP BY sender_id
		)
		SELECT
			ac.contact_id,
			COALESCE(c.name, u.full_name, u.username) AS name,
			u.phone_number,
			lm.message_text,
			lm.timestamp,
			lm.sender_id,
			COALESCE(uc.unread_count, 0)
		FROM all_chats ac
		JOIN users u ON u.id = ac.contact_id
		LEFT JOIN sachat_contacts c ON c.owner_id = $1 AND c.contact_id = ac.contact_id
		JOIN last_msgs lm ON lm.contact_id = ac.contact_id
		LEFT JOIN unread_counts uc ON uc.contact_id = ac.contact_id
		ORDER BY lm.timestamp DESC`,
		userID)
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("list chat summaries", "err", err)
	}
	defer rows.Close()

	var out []model.ChatSummary
	for rows.Next() {
		var cs model.ChatSummary
		if err := rows.Scan(&cs.ContactID, &cs.Name, &cs.Phone, &cs.LastMessage,
			&cs.LastMessageTime, &cs.LastMessageSender, &cs.UnreadCount); err != nil {
			return nil, errs.ErrStoreFailure.WrapMsg("scan chat summary", "err", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("iterate chat summaries", "err", err)
	}
	return out, nil
}

func (s *PgContactStore) GetSaChatID(ctx context.Context, userID int64) (string, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT sachat_id FROM sachat_users WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.ErrStoreFailure.WrapMsg("get sachat id", "err", err)
	}
	return id, id != "", nil
}

func (s *PgContactStore) FindUserIDBySaChatID(ctx context.Context, sachatID string) (int64, bool, error) {
	var userID int64
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM sachat_users WHERE sachat_id = $1`, sachatID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errs.ErrStoreFailure.WrapMsg("find user by sachat id", "err", err)
	}
	return userID, true, nil
}

func (s *PgContactStore) ClaimSaChatID(ctx context.Context, userID int64, sachatID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sachat_users WHERE sachat_id = $1 AND user_id != $2)`,
		sachatID, userID).Scan(&exists)
	if err != nil {
		return errs.ErrStoreFailure.WrapMsg("check sachat id", "err", err)
	}
	if exists {
		return errs.ErrIDTaken.Wrap()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sachat_users (user_id, sachat_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET sachat_id = EXCLUDED.sachat_id`,
		userID, sachatID)
	if err != nil {
		return errs.ErrStoreFailure.WrapMsg("claim sachat id", "err", err)
	}
	return nil
}
