package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vcanchor/internal/credential/models"
	"vcanchor/pkg/platform/sentinel"
	"vcanchor/pkg/platform/tx"
)

const credentialColumns = `
	id, template_id, subject, issued_at, expires_at, revoked_at,
	anchor_status, queue_mode, approved_mode, requested_at,
	mint_attempt_id, mint_leased_at, batch_id, claimed_at, version`

// PostgresStore persists credentials in PostgreSQL. Every method joins the
// transaction carried by ctx, if any.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.Executor {
	return tx.ExecutorFor(ctx, s.db)
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	subject, err := json.Marshal(c.Subject)
	if err != nil {
		return fmt.Errorf("marshal subject: %w", err)
	}
	a := c.Anchoring
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO credentials (id, template_id, subject, issued_at, expires_at, revoked_at,
			anchor_status, queue_mode, approved_mode, requested_at, mint_attempt_id, mint_leased_at,
			batch_id, claimed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)`,
		c.ID, c.TemplateID, subject, c.IssuedAt, c.ExpiresAt, c.RevokedAt,
		string(a.Status()), string(a.QueueMode()), string(a.ApprovedMode()),
		nullTime(a.RequestedAt()), nullString(a.MintAttemptID()), nullTime(a.LeasedAt()),
		nullString(a.BatchID()), c.Claim.ClaimedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	c.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Credential, error) {
	c, err := scanCredential(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return c, nil
}

// Update writes the mutable columns of c when its Version still matches.
func (s *PostgresStore) Update(ctx context.Context, c *models.Credential) error {
	a := c.Anchoring
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credentials SET
			revoked_at = $1, anchor_status = $2, queue_mode = $3, approved_mode = $4,
			requested_at = $5, mint_attempt_id = $6, mint_leased_at = $7, batch_id = $8,
			claimed_at = $9, version = version + 1
		WHERE id = $10 AND version = $11`,
		c.RevokedAt, string(a.Status()), string(a.QueueMode()), string(a.ApprovedMode()),
		nullTime(a.RequestedAt()), nullString(a.MintAttemptID()), nullTime(a.LeasedAt()), nullString(a.BatchID()),
		c.Claim.ClaimedAt, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential rows: %w", err)
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, c.ID); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	c.Version++
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Credential, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("anchor_status = ANY($%d)", len(args)))
	}
	if filter.QueueMode != "" {
		args = append(args, string(filter.QueueMode))
		where = append(where, fmt.Sprintf("queue_mode = $%d", len(args)))
	}
	if filter.ApprovedMode != "" {
		args = append(args, string(filter.ApprovedMode))
		where = append(where, fmt.Sprintf("approved_mode = $%d", len(args)))
	}

	query := `SELECT ` + credentialColumns + ` FROM credentials`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY requested_at NULLS FIRST, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.query(ctx, query, args...)
}

// ClaimForMint leases eligible credentials in one statement. The status
// predicate is re-checked under the row lock, so two concurrent attempts can
// never lease the same credential.
func (s *PostgresStore) ClaimForMint(ctx context.Context, sel models.MintSelection) ([]*models.Credential, error) {
	args := []any{sel.AttemptID, sel.LeasedAt, string(sel.ApprovedMode)}
	where := []string{"anchor_status = 'approved'", "approved_mode = $3"}
	if sel.QueueMode != "" {
		args = append(args, string(sel.QueueMode))
		where = append(where, fmt.Sprintf("queue_mode = $%d", len(args)))
	}
	if len(sel.IDs) > 0 {
		args = append(args, sel.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}

	query := `
		UPDATE credentials SET
			anchor_status = 'minting', mint_attempt_id = $1, mint_leased_at = $2, version = version + 1
		WHERE ` + strings.Join(where, " AND ") + `
		RETURNING ` + credentialColumns
	leased, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim for mint: %w", err)
	}
	sort.Slice(leased, func(i, j int) bool { return leased[i].ID < leased[j].ID })
	return leased, nil
}

func (s *PostgresStore) ReleaseMint(ctx context.Context, attemptID string) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credentials SET
			anchor_status = 'approved', mint_attempt_id = NULL, mint_leased_at = NULL, version = version + 1
		WHERE anchor_status = 'minting' AND mint_attempt_id = $1`, attemptID)
	if err != nil {
		return 0, fmt.Errorf("release mint: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) MarkAnchored(ctx context.Context, attemptID, batchID string) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credentials SET
			anchor_status = 'anchored', batch_id = $2, mint_attempt_id = NULL, mint_leased_at = NULL,
			version = version + 1
		WHERE anchor_status = 'minting' AND mint_attempt_id = $1`, attemptID, batchID)
	if err != nil {
		return 0, fmt.Errorf("mark anchored: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) ReleaseStaleMints(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		UPDATE credentials SET
			anchor_status = 'approved', mint_attempt_id = NULL, mint_leased_at = NULL, version = version + 1
		WHERE anchor_status = 'minting' AND mint_leased_at < $1
		RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("release stale mints: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan released id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate released ids: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *PostgresStore) MarkClaimed(ctx context.Context, id string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credentials SET claimed_at = $2, version = version + 1
		WHERE id = $1 AND claimed_at IS NULL`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("mark claimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark claimed rows: %w", err)
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE credentials SET revoked_at = COALESCE(revoked_at, $2), version = version + 1
		WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Credential, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		c                               models.Credential
		subject                         []byte
		status, queueMode, approvedMode string
		requestedAt, leasedAt           sql.NullTime
		attemptID, batchID              sql.NullString
		expiresAt, revokedAt, claimedAt sql.NullTime
	)
	if err := row.Scan(
		&c.ID, &c.TemplateID, &subject, &c.IssuedAt, &expiresAt, &revokedAt,
		&status, &queueMode, &approvedMode, &requestedAt,
		&attemptID, &leasedAt, &batchID, &claimedAt, &c.Version,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(subject, &c.Subject); err != nil {
		return nil, fmt.Errorf("decode subject: %w", err)
	}
	anchoring, err := models.RestoreAnchorState(
		models.AnchorStatus(status), models.QueueMode(queueMode), models.ApprovedMode(approvedMode),
		timeOrZero(requestedAt), attemptID.String, timeOrZero(leasedAt), batchID.String,
	)
	if err != nil {
		return nil, err
	}
	c.Anchoring = anchoring
	c.IssuedAt = c.IssuedAt.UTC()
	c.ExpiresAt = timePtr(expiresAt)
	c.RevokedAt = timePtr(revokedAt)
	c.Claim.ClaimedAt = timePtr(claimedAt)
	return &c, nil
}

func timeOrZero(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
