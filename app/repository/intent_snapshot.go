package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

var (
	ErrSnapshotNotFound      = errors.New("intent snapshot not found")
	ErrSnapshotAlreadyExists = errors.New("intent snapshot already exists")
)

type IntentSnapshotRepository struct {
	db DBTX
}

func NewIntentSnapshotRepository(db DBTX) *IntentSnapshotRepository {
	return &IntentSnapshotRepository{db: db}
}

func (r *IntentSnapshotRepository) Create(ctx context.Context, snapshot *entity.IntentSnapshot) error {
	query := `
		INSERT INTO intent_snapshots (
			attempt_id, setup_intent_id, customer_id, step, outcome, error_message,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		snapshot.AttemptID,
		nullableString(snapshot.SetupIntentID),
		nullableString(snapshot.CustomerID),
		snapshot.Step,
		snapshot.Outcome,
		nullableStringValue(snapshot.ErrorMessage),
		utc(snapshot.CreatedAt),
		utc(snapshot.UpdatedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSnapshotAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	snapshot.ID = uint64(id)
	return nil
}

func (r *IntentSnapshotRepository) Update(ctx context.Context, snapshot *entity.IntentSnapshot) error {
	query := `
		UPDATE intent_snapshots SET
			setup_intent_id = ?,
			customer_id = ?,
			step = ?,
			outcome = ?,
			error_message = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableString(snapshot.SetupIntentID),
		nullableString(snapshot.CustomerID),
		snapshot.Step,
		snapshot.Outcome,
		nullableStringValue(snapshot.ErrorMessage),
		utc(snapshot.UpdatedAt),
		snapshot.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSnapshotNotFound
	}

	return nil
}

// ListRecent returns the latest attempts first.
func (r *IntentSnapshotRepository) ListRecent(ctx context.Context, limit int) ([]*entity.IntentSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, attempt_id, setup_intent_id, customer_id, step, outcome, error_message,
			created_at, updated_at
		FROM intent_snapshots
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]*entity.IntentSnapshot, 0)
	for rows.Next() {
		item, err := scanIntentSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}

func scanIntentSnapshot(rows *sql.Rows) (*entity.IntentSnapshot, error) {
	var (
		snapshot      entity.IntentSnapshot
		setupIntentID sql.NullString
		customerID    sql.NullString
		errorMessage  sql.NullString
	)

	if err := rows.Scan(
		&snapshot.ID,
		&snapshot.AttemptID,
		&setupIntentID,
		&customerID,
		&snapshot.Step,
		&snapshot.Outcome,
		&errorMessage,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	); err != nil {
		return nil, err
	}

	snapshot.SetupIntentID = setupIntentID.String
	snapshot.CustomerID = customerID.String
	snapshot.ErrorMessage = stringPtrFromNull(errorMessage)
	return &snapshot, nil
}
