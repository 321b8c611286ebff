package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/command-center/helpdesk/internal/domain"
)

// SessionFilter captures session listing parameters.
type SessionFilter struct {
	CustomerID *string
	AgentID    *string
	Statuses   []domain.SessionStatus
	Limit      int
	Offset     int
}

// SessionRepository persists live sessions.
//
// Update keeps the first observed agent (agent_id COALESCE) and treats
// ended_at/duration_seconds as exactly-once columns, mirroring the ticket
// repository's check-and-set discipline.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO sessions (customer_id, ticket_id, type, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, started_at`
	return r.pool.QueryRow(ctx, query,
		session.CustomerID,
		session.TicketID,
		session.Type,
		session.Status,
	).Scan(&session.ID, &session.StartedAt)
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `
        SELECT id, customer_id, agent_id, ticket_id, type, status, started_at, ended_at, duration_seconds
        FROM sessions WHERE id=$1`
	return scanSession(r.pool.QueryRow(ctx, query, id))
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) error {
	const query = `
        UPDATE sessions SET
            status=$1,
            agent_id = COALESCE(agent_id, $2),
            ended_at = COALESCE(ended_at, $3),
            duration_seconds = COALESCE(duration_seconds, $4)
        WHERE id=$5
        RETURNING agent_id, ended_at, duration_seconds`
	return r.pool.QueryRow(ctx, query,
		session.Status,
		session.AgentID,
		session.EndedAt,
		session.DurationSeconds,
		session.ID,
	).Scan(&session.AgentID, &session.EndedAt, &session.DurationSeconds)
}

func (r *sessionRepository) List(ctx context.Context, filter SessionFilter) ([]domain.Session, error) {
	query := `
        SELECT id, customer_id, agent_id, ticket_id, type, status, started_at, ended_at, duration_seconds
        FROM sessions WHERE 1=1`
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		query += ` AND customer_id=` + placeholder(len(args))
	}
	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		query += ` AND agent_id=` + placeholder(len(args))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		query += ` AND status = ANY(` + placeholder(len(args)) + `)`
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY started_at DESC LIMIT ` + placeholder(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET ` + placeholder(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.CustomerID,
		&session.AgentID,
		&session.TicketID,
		&session.Type,
		&session.Status,
		&session.StartedAt,
		&session.EndedAt,
		&session.DurationSeconds,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
