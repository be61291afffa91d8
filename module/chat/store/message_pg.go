package store

import (
	"context"

	"SaChat/module/chat/model"
	"SaChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgMessageStore struct {
	pool *pgxpool.Pool
}

func NewPgMessageStore(pool *pgxpool.Pool) *PgMessageStore {
	return &PgMessageStore{pool: pool}
}

const messageColumns = `id, sender_id, recipient_id, message_text, timestamp, status`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	if err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &m.Timestamp, &m.Status); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PgMessageStore) Insert(ctx context.Context, senderID, recipientID int64, body string) (*model.Message, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sachat_messages (sender_id, recipient_id, message_text, timestamp, status)
		VALUES ($1, $2, $3, NOW(), 'pending')
		RETURNING `+messageColumns,
		senderID, recipientID, body)
	m, err := scanMessage(row)
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("insert message", "err", err)
	}
	return m, nil
}

func (s *PgMessageStore) UpdateStatus(ctx context.Context, messageID int64, status model.Status) error {
	// 守卫：只允许向前推进，并发触发的回退更新会匹配 0 行
	_, err := s.pool.Exec(ctx, `
		UPDATE sachat_messages
		SET status = $2
		WHERE id = $1
		  AND array_position(ARRAY['pending','delivered','seen'], status::text)
		    < array_position(ARRAY['pending','delivered','seen'], $2::text)`,
		messageID, string(status))
	if err != nil {
		return errs.ErrStoreFailure.WrapMsg("update status", "id", messageID, "err", err)
	}
	return nil
}

func (s *PgMessageStore) UpdateStatusWhereRecipient(ctx context.Context, messageIDs []int64, recipientID int64, status model.Status) ([]model.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		UPDATE sachat_messages
		SET status = $3
		WHERE id = ANY($1)
		  AND recipient_id = $2
		  AND array_position(ARRAY['pending','delivered','seen'], status::text)
		    < array_position(ARRAY['pending','delivered','seen'], $3::text)
		RETURNING `+messageColumns,
		messageIDs, recipientID, string(status))
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("update status where recipient", "err", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errs.ErrStoreFailure.WrapMsg("scan updated message", "err", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("iterate updated messages", "err", err)
	}
	return out, nil
}

func (s *PgMessageStore) ListConversation(ctx context.Context, userA, userB int64) ([]model.Message, error) {
	// id 作为同毫秒写入的并列裁决，保证历史排序稳定可重放
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM sachat_messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY timestamp ASC, id ASC`,
		userA, userB)
	if err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("list conversation", "err", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errs.ErrStoreFailure.WrapMsg("scan message", "err", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ErrStoreFailure.WrapMsg("iterate conversation", "err", err)
	}
	return out, nil
}
