package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/chatvault/chatvault/internal/logger"
	"github.com/chatvault/chatvault/models"
)

type conversationRepository struct {
	*DB
	logger *logger.Logger
}

// NewConversationRepository returns the SQLite-backed
// [ConversationRepository].
func NewConversationRepository(db *DB, logger *logger.Logger) ConversationRepository {
	return &conversationRepository{DB: db, logger: logger}
}

func (r *conversationRepository) SaveConversation(ctx context.Context, conv models.Conversation) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Insert("conversations").
		Columns("id", "title", "folder_id", "is_temporary", "created_at", "updated_at").
		Values(conv.ID, conv.Title, conv.FolderID, conv.IsTemporary, conv.CreatedAt, conv.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "conversationRepository.SaveConversation").
			Str("conversation_id", conv.ID).
			Msg("failed to insert conversation")
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}

	return nil
}

func (r *conversationRepository) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	query, args, err := sq.Select("id", "title", "folder_id", "is_temporary", "created_at", "updated_at").
		From("conversations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Conversation{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var conv models.Conversation
	row := r.DB.QueryRowContext(ctx, query, args...)
	if err = row.Scan(&conv.ID, &conv.Title, &conv.FolderID, &conv.IsTemporary, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Conversation{}, ErrConversationNotFound
		}
		return models.Conversation{}, fmt.Errorf("%w: %v", ErrScanningRow, err)
	}

	msgs, err := r.messagesFor(ctx, id)
	if err != nil {
		return models.Conversation{}, err
	}
	conv.Messages = msgs

	return conv, nil
}

func (r *conversationRepository) messagesFor(ctx context.Context, conversationID string) ([]models.Message, error) {
	query, args, err := sq.Select("id", "conversation_id", "role", "ciphertext", "nonce", "created_at").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Body.Ciphertext, &m.Body.Nonce, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
		}
		msgs = append(msgs, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
	}

	return msgs, nil
}

func (r *conversationRepository) MessagesAfter(ctx context.Context, afterID string) ([]models.Message, error) {
	query, args, err := sq.Select("id", "conversation_id", "role", "ciphertext", "nonce", "created_at").
		From("messages").
		Where(sq.Gt{"id": afterID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Body.Ciphertext, &m.Body.Nonce, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
		}
		msgs = append(msgs, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
	}

	return msgs, nil
}

func (r *conversationRepository) ListPersistent(ctx context.Context) ([]models.ConversationSummary, error) {
	// Only persistent conversations belong to the listing index.
	query, args, err := sq.Select(
		"c.id", "c.title", "c.folder_id", "c.updated_at",
		"COUNT(m.id) AS message_count",
	).
		From("conversations c").
		LeftJoin("messages m ON m.conversation_id = c.id").
		Where(sq.Eq{"c.is_temporary": false}).
		GroupBy("c.id", "c.title", "c.folder_id", "c.updated_at").
		OrderBy("c.updated_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var list []models.ConversationSummary
	for rows.Next() {
		var s models.ConversationSummary
		if err = rows.Scan(&s.ID, &s.Title, &s.FolderID, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
		}
		list = append(list, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanningRows, err)
	}

	return list, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, msg models.Message) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	insert, args, err := sq.Insert("messages").
		Columns("id", "conversation_id", "role", "ciphertext", "nonce", "created_at").
		Values(msg.ID, msg.ConversationID, msg.Role, msg.Body.Ciphertext, msg.Body.Nonce, msg.Timestamp).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	if _, err = tx.ExecContext(ctx, insert, args...); err != nil {
		log.Err(err).
			Str("func", "conversationRepository.AppendMessage").
			Str("conversation_id", msg.ConversationID).
			Msg("failed to insert message")
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}

	touch, args, err := sq.Update("conversations").
		Set("updated_at", msg.Timestamp).
		Where(sq.Eq{"id": msg.ConversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := tx.ExecContext(ctx, touch, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *conversationRepository) UpdateTitle(ctx context.Context, id, title string) (bool, error) {
	return r.updateOne(ctx, sq.Update("conversations").Set("title", title).Where(sq.Eq{"id": id}))
}

func (r *conversationRepository) UpdateFolder(ctx context.Context, id string, folderID *string) (bool, error) {
	return r.updateOne(ctx, sq.Update("conversations").Set("folder_id", folderID).Where(sq.Eq{"id": id}))
}

func (r *conversationRepository) SetPersistent(ctx context.Context, id string) (bool, error) {
	return r.updateOne(ctx, sq.Update("conversations").Set("is_temporary", false).Where(sq.Eq{"id": id}))
}

func (r *conversationRepository) updateOne(ctx context.Context, builder sq.UpdateBuilder) (bool, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	return n > 0, nil
}

func (r *conversationRepository) DeleteConversation(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	// Conversation, messages and wrapped key go as one logical unit.
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, builder := range []sq.DeleteBuilder{
		sq.Delete("messages").Where(sq.Eq{"conversation_id": id}),
		sq.Delete("wrapped_keys").Where(sq.Eq{"conversation_id": id}),
	} {
		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
		}
	}

	query, args, err := sq.Delete("conversations").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConversationNotFound
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).
			Str("func", "conversationRepository.DeleteConversation").
			Str("conversation_id", id).
			Msg("failed to commit conversation delete")
		return fmt.Errorf("%w: %v", ErrCommitingTransaction, err)
	}
	return nil
}

func (r *conversationRepository) DeleteAllConversations(ctx context.Context) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"messages", "wrapped_keys", "conversations"} {
		query, args, err := sq.Delete(table).ToSql()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitingTransaction, err)
	}
	return nil
}
