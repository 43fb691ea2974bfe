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

type keyRecordRepository struct {
	*DB
	logger *logger.Logger
}

// NewKeyRecordRepository returns the SQLite-backed [KeyRecordRepository].
func NewKeyRecordRepository(db *DB, logger *logger.Logger) KeyRecordRepository {
	return &keyRecordRepository{DB: db, logger: logger}
}

func (r *keyRecordRepository) GetVaultParams(ctx context.Context) (models.VaultParams, error) {
	query, args, err := sq.Select("salt", "iterations", "verification_hash", "created_at").
		From("vault_params").
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return models.VaultParams{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var params models.VaultParams
	row := r.DB.QueryRowContext(ctx, query, args...)
	if err = row.Scan(&params.Salt, &params.Iterations, &params.VerificationHash, &params.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VaultParams{}, ErrVaultParamsNotFound
		}
		return models.VaultParams{}, fmt.Errorf("%w: %v", ErrScanningRow, err)
	}

	return params, nil
}

func (r *keyRecordRepository) SaveVaultParams(ctx context.Context, params models.VaultParams) error {
	log := logger.FromContext(ctx)

	// Wholesale replacement: the singleton is only ever created at setup or
	// replaced by reset, never partially updated.
	query, args, err := sq.Insert("vault_params").
		Columns("id", "salt", "iterations", "verification_hash", "created_at").
		Values(1, params.Salt, params.Iterations, params.VerificationHash, params.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET salt = excluded.salt, iterations = excluded.iterations, verification_hash = excluded.verification_hash, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "keyRecordRepository.SaveVaultParams").
			Msg("failed to write vault parameters")
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRecordRepository) DeleteVaultParams(ctx context.Context) error {
	query, args, err := sq.Delete("vault_params").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	return nil
}

func (r *keyRecordRepository) GetWrappedKey(ctx context.Context, conversationID string) (models.WrappedKey, error) {
	query, args, err := sq.Select("conversation_id", "wrapped_key", "nonce", "created_at").
		From("wrapped_keys").
		Where(sq.Eq{"conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return models.WrappedKey{}, fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	var key models.WrappedKey
	row := r.DB.QueryRowContext(ctx, query, args...)
	if err = row.Scan(&key.ConversationID, &key.WrappedKey, &key.Nonce, &key.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WrappedKey{}, ErrWrappedKeyNotFound
		}
		return models.WrappedKey{}, fmt.Errorf("%w: %v", ErrScanningRow, err)
	}

	return key, nil
}

func (r *keyRecordRepository) SaveWrappedKey(ctx context.Context, key models.WrappedKey) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Insert("wrapped_keys").
		Columns("conversation_id", "wrapped_key", "nonce", "created_at").
		Values(key.ConversationID, key.WrappedKey, key.Nonce, key.CreatedAt).
		Suffix("ON CONFLICT (conversation_id) DO UPDATE SET wrapped_key = excluded.wrapped_key, nonce = excluded.nonce, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "keyRecordRepository.SaveWrappedKey").
			Str("conversation_id", key.ConversationID).
			Msg("failed to write wrapped key")
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}

	return nil
}

func (r *keyRecordRepository) DeleteWrappedKey(ctx context.Context, conversationID string) error {
	query, args, err := sq.Delete("wrapped_keys").
		Where(sq.Eq{"conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	return nil
}

func (r *keyRecordRepository) DeleteAllWrappedKeys(ctx context.Context) error {
	query, args, err := sq.Delete("wrapped_keys").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrExecutingStatement, err)
	}
	return nil
}
