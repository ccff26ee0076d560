package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
	"github.com/melnik909-create/wechselmodell/storage"
)

const (
	patternColumns   = `id, family_id, pattern_type, start_date, starting_parent, custom_sequence, is_active, created_at`
	exceptionColumns = `id, family_id, date, original_parent, new_parent, reason, note, status, proposed_by, created_at, responded_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// Store implements storage.Storage on a PostgreSQL database
type Store struct {
	db *sql.DB
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ storage.Storage = (*Store)(nil)

func scanPattern(row rowScanner) (*custody.CustodyPattern, error) {
	var (
		p        custody.CustodyPattern
		sequence []string
		typ      string
		starting string
	)
	if err := row.Scan(&p.ID, &p.FamilyID, &typ, &p.StartDate, &starting, pq.Array(&sequence), &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Type = custody.PatternType(typ)
	p.StartingParent = custody.Parent(starting)
	p.StartDate = dateutil.Day(p.StartDate)
	if len(sequence) > 0 {
		p.CustomSequence = make([]custody.Parent, len(sequence))
		for i, s := range sequence {
			p.CustomSequence[i] = custody.Parent(s)
		}
	}
	return &p, nil
}

func scanException(row rowScanner) (*custody.CustodyException, error) {
	var (
		ex                                      custody.CustodyException
		original, newParent, reason, status, by string
		respondedAt                             sql.NullTime
	)
	if err := row.Scan(&ex.ID, &ex.FamilyID, &ex.Date, &original, &newParent, &reason, &ex.Note, &status, &by, &ex.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	ex.Date = dateutil.Day(ex.Date)
	ex.OriginalParent = custody.Parent(original)
	ex.NewParent = custody.Parent(newParent)
	ex.Reason = custody.Reason(reason)
	ex.Status = custody.Status(status)
	ex.ProposedBy = custody.Parent(by)
	if respondedAt.Valid {
		t := respondedAt.Time
		ex.RespondedAt = &t
	}
	return &ex, nil
}

// Pattern operations

func (s *Store) CreatePattern(ctx context.Context, p *custody.CustodyPattern) error {
	if p == nil || p.ID == uuid.Nil || p.FamilyID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "pattern ID and family ID are required"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE custody_patterns SET is_active = FALSE WHERE family_id = $1 AND is_active`, p.FamilyID); err != nil {
		return translateError(err, "failed to deactivate previous pattern")
	}

	sequence := make([]string, len(p.CustomSequence))
	for i, parent := range p.CustomSequence {
		sequence[i] = string(parent)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `INSERT INTO custody_patterns (` + patternColumns + `)
              VALUES ($1, $2, $3, $4::date, $5, $6, TRUE, $7)`
	_, err = tx.ExecContext(ctx, query,
		p.ID, p.FamilyID, string(p.Type), dateutil.FormatDate(p.StartDate), string(p.StartingParent),
		pq.Array(sequence), p.CreatedAt)
	if err != nil {
		return translateError(err, "failed to create pattern")
	}

	if err := tx.Commit(); err != nil {
		return translateError(err, "failed to commit pattern")
	}
	p.IsActive = true
	p.StartDate = dateutil.Day(p.StartDate)
	return nil
}

func (s *Store) GetActivePattern(ctx context.Context, familyID uuid.UUID) (*custody.CustodyPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM custody_patterns WHERE family_id = $1 AND is_active`
	p, err := scanPattern(s.db.QueryRowContext(ctx, query, familyID))
	if err != nil {
		return nil, translateError(err, "no active pattern for family")
	}
	return p, nil
}

func (s *Store) ListPatterns(ctx context.Context, familyID uuid.UUID) ([]*custody.CustodyPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM custody_patterns WHERE family_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, translateError(err, "failed to list patterns")
	}
	defer rows.Close()

	patterns := make([]*custody.CustodyPattern, 0)
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan pattern")
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate patterns")
	}
	return patterns, nil
}

func (s *Store) ListActiveFamilies(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT family_id FROM custody_patterns WHERE is_active ORDER BY family_id`)
	if err != nil {
		return nil, translateError(err, "failed to list families")
	}
	defer rows.Close()

	families := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, translateError(err, "failed to scan family")
		}
		families = append(families, id)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate families")
	}
	return families, nil
}

// Exception operations

func (s *Store) CreateException(ctx context.Context, ex *custody.CustodyException) error {
	if ex == nil || ex.ID == uuid.Nil || ex.FamilyID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "exception ID and family ID are required"}
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	var respondedAt sql.NullTime
	if ex.RespondedAt != nil {
		respondedAt = sql.NullTime{Time: *ex.RespondedAt, Valid: true}
	}

	query := `INSERT INTO custody_exceptions (` + exceptionColumns + `)
              VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		ex.ID, ex.FamilyID, dateutil.FormatDate(ex.Date), string(ex.OriginalParent), string(ex.NewParent),
		string(ex.Reason), ex.Note, string(ex.Status), string(ex.ProposedBy), ex.CreatedAt, respondedAt)
	if err != nil {
		return translateError(err, "exception conflicts with an existing one")
	}
	ex.Date = dateutil.Day(ex.Date)
	return nil
}

func (s *Store) GetException(ctx context.Context, familyID, exceptionID uuid.UUID) (*custody.CustodyException, error) {
	query := `SELECT ` + exceptionColumns + ` FROM custody_exceptions WHERE family_id = $1 AND id = $2`
	ex, err := scanException(s.db.QueryRowContext(ctx, query, familyID, exceptionID))
	if err != nil {
		return nil, translateError(err, "exception not found")
	}
	return ex, nil
}

func (s *Store) ListExceptions(ctx context.Context, familyID uuid.UUID, filter *storage.ExceptionFilter) ([]*custody.CustodyException, error) {
	var (
		conds = []string{"family_id = $1"}
		args  = []any{familyID}
	)
	if filter != nil {
		if filter.From != nil {
			args = append(args, dateutil.FormatDate(*filter.From))
			conds = append(conds, fmt.Sprintf("date >= $%d::date", len(args)))
		}
		if filter.To != nil {
			args = append(args, dateutil.FormatDate(*filter.To))
			conds = append(conds, fmt.Sprintf("date <= $%d::date", len(args)))
		}
		if len(filter.Statuses) > 0 {
			statuses := make([]string, len(filter.Statuses))
			for i, st := range filter.Statuses {
				statuses[i] = string(st)
			}
			args = append(args, pq.Array(statuses))
			conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
		}
	}

	query := `SELECT ` + exceptionColumns + ` FROM custody_exceptions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date, created_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "failed to list exceptions")
	}
	defer rows.Close()

	exceptions := make([]*custody.CustodyException, 0)
	for rows.Next() {
		ex, err := scanException(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan exception")
		}
		exceptions = append(exceptions, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate exceptions")
	}
	return exceptions, nil
}

func (s *Store) RespondToException(ctx context.Context, familyID, exceptionID uuid.UUID, status custody.Status, respondedAt time.Time) (*custody.CustodyException, error) {
	if status != custody.StatusAccepted && status != custody.StatusRejected {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "response must be accepted or rejected"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `SELECT ` + exceptionColumns + ` FROM custody_exceptions WHERE family_id = $1 AND id = $2 FOR UPDATE`
	current, err := scanException(tx.QueryRowContext(ctx, query, familyID, exceptionID))
	if err != nil {
		return nil, translateError(err, "exception not found")
	}
	if current.Status != custody.StatusProposed {
		return nil, &storage.Error{Type: storage.ErrConflict, Message: "exception was already " + string(current.Status)}
	}

	update := `UPDATE custody_exceptions SET status = $1, responded_at = $2
               WHERE id = $3 RETURNING ` + exceptionColumns
	updated, err := scanException(tx.QueryRowContext(ctx, update, string(status), respondedAt, exceptionID))
	if err != nil {
		// the partial unique index rejects a second accepted exception on the same date
		return nil, translateError(err, "another accepted exception covers this date")
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err, "failed to commit response")
	}
	return updated, nil
}

func (s *Store) DeleteException(ctx context.Context, familyID, exceptionID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custody_exceptions WHERE family_id = $1 AND id = $2`, familyID, exceptionID)
	if err != nil {
		return translateError(err, "failed to delete exception")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translateError(err, "failed to delete exception")
	}
	if n == 0 {
		return &storage.Error{Type: storage.ErrNotFound, Message: "exception not found"}
	}
	return nil
}
