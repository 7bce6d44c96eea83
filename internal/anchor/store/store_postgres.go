package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"vcanchor/internal/anchor/models"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/platform/tx"
)

// PostgresStore persists anchor batches and their member rows. Create must
// run inside the mint transaction so members and credential updates commit together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.AnchorBatch) error {
	exec := tx.ExecutorFor(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO anchor_batches (id, merkle_root, root_cid, tx_hash, chain_id, anchored_at, member_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.MerkleRoot[:], b.RootCID, b.TxHash, b.ChainID, b.AnchoredAt, b.MemberCount,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	for _, m := range b.Members {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO anchor_batch_members (batch_id, credential_id, leaf_index, digest)
			VALUES ($1, $2, $3, $4)`,
			b.ID, m.CredentialID, m.LeafIndex, m.Digest[:],
		); err != nil {
			return fmt.Errorf("insert batch member %s: %w", m.CredentialID, err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.AnchorBatch, error) {
	batches, err := s.query(ctx, `WHERE b.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return batches[0], nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.BatchFilter) ([]*models.AnchorBatch, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	if filter.ChainID != "" {
		return s.query(ctx, `WHERE b.id IN (
			SELECT id FROM anchor_batches WHERE chain_id = $1 ORDER BY anchored_at DESC, id DESC LIMIT $2)`,
			filter.ChainID, limit)
	}
	return s.query(ctx, `WHERE b.id IN (
		SELECT id FROM anchor_batches ORDER BY anchored_at DESC, id DESC LIMIT $1)`, limit)
}

// query loads batches matching where together with their members, newest first.
func (s *PostgresStore) query(ctx context.Context, where string, args ...any) ([]*models.AnchorBatch, error) {
	rows, err := tx.ExecutorFor(ctx, s.db).QueryContext(ctx, `
		SELECT b.id, b.merkle_root, b.root_cid, b.tx_hash, b.chain_id, b.anchored_at, b.member_count,
			m.credential_id, m.leaf_index, m.digest
		FROM anchor_batches b
		JOIN anchor_batch_members m ON m.batch_id = b.id
		`+where+`
		ORDER BY b.anchored_at DESC, b.id DESC, m.leaf_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []*models.AnchorBatch
	var current *models.AnchorBatch
	for rows.Next() {
		var (
			b            models.AnchorBatch
			root, digest []byte
			m            models.Member
		)
		if err := rows.Scan(&b.ID, &root, &b.RootCID, &b.TxHash, &b.ChainID, &b.AnchoredAt, &b.MemberCount,
			&m.CredentialID, &m.LeafIndex, &digest); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if current == nil || current.ID != b.ID {
			copy(b.MerkleRoot[:], root)
			b.AnchoredAt = b.AnchoredAt.UTC()
			current = &b
			out = append(out, current)
		}
		copy(m.Digest[:], digest)
		current.Members = append(current.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return out, nil
}
