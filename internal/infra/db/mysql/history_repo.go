package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

// HistoryRepository stores analysis events in MySQL.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append insert event; id diisi oleh AUTO_INCREMENT
func (r *HistoryRepository) Append(ctx context.Context, ev *domain.Event) (domain.EventID, error) {
	if ev == nil {
		return 0, goerr.New("event is nil")
	}
	const q = `
INSERT INTO analysis_history
(ip_address, log_input, diagnosis, severity, title, backend, created_at)
VALUES (?,?,?,?,?,?,?)`

	res, err := r.db.ExecContext(ctx, q,
		ev.Identity, ev.InputText, ev.DiagnosisText,
		string(ev.Severity), ev.Title, stringOrDash(ev.Backend), ev.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to insert analysis", goerr.V("identity", ev.Identity))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read insert id")
	}
	ev.ID = domain.EventID(id)
	return ev.ID, nil
}

func (r *HistoryRepository) CountSince(ctx context.Context, identity string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM analysis_history WHERE ip_address=? AND created_at >= ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, identity, since.UTC()).Scan(&n); err != nil {
		return 0, goerr.Wrap(err, "failed to count analyses", goerr.V("identity", identity))
	}
	return n, nil
}

// ListSince newest first
func (r *HistoryRepository) ListSince(ctx context.Context, identity string, since time.Time, limit int) ([]*domain.Event, error) {
	q := `
SELECT id, ip_address, log_input, diagnosis, severity, title, backend, created_at
FROM analysis_history
WHERE ip_address=? AND created_at >= ?
ORDER BY created_at DESC, id DESC`
	args := []any{identity, since.UTC()}
	suffix, extra := limitClause(limit)
	q += suffix
	args = append(args, extra...)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list analyses", goerr.V("identity", identity))
	}
	defer rows.Close()

	out := make([]*domain.Event, 0)
	for rows.Next() {
		var ev domain.Event
		var sev string
		if err := rows.Scan(&ev.ID, &ev.Identity, &ev.InputText, &ev.DiagnosisText, &sev, &ev.Title, &ev.Backend, &ev.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan analysis row")
		}
		ev.Severity = domain.Severity(sev)
		ev.CreatedAt = ev.CreatedAt.UTC()
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate analyses")
	}
	return out, nil
}

func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *HistoryRepository) Close() error {
	return r.db.Close()
}
