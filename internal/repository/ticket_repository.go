package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/command-center/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID *string
	AgentID    *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
//
// Update uses COALESCE on the exactly-once columns (resolved_at,
// response_time_minutes, resolution_time_minutes), so under concurrent
// resolve or assign calls the database is the check-and-set arbiter: the
// first writer's values stick and are returned to every later caller.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (customer_id, agent_id, title, description, status, priority, category, confidence, breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.AgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.Confidence,
		ticket.Breached,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, customer_id, agent_id, title, description, status, priority, category,
               confidence, breached, response_time_minutes, resolution_time_minutes,
               created_at, updated_at, resolved_at
        FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET
            status=$1, priority=$2, agent_id=$3, breached=$4,
            resolved_at = COALESCE(resolved_at, $5),
            response_time_minutes = COALESCE(response_time_minutes, $6),
            resolution_time_minutes = COALESCE(resolution_time_minutes, $7),
            updated_at = NOW()
        WHERE id=$8
        RETURNING resolved_at, response_time_minutes, resolution_time_minutes, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AgentID,
		ticket.Breached,
		ticket.ResolvedAt,
		ticket.ResponseTimeMinutes,
		ticket.ResolutionTimeMinutes,
		ticket.ID,
	).Scan(&ticket.ResolvedAt, &ticket.ResponseTimeMinutes, &ticket.ResolutionTimeMinutes, &ticket.UpdatedAt)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `
        SELECT id, customer_id, agent_id, title, description, status, priority, category,
               confidence, breached, response_time_minutes, resolution_time_minutes,
               created_at, updated_at, resolved_at
        FROM tickets WHERE 1=1`
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
	if len(filter.Priorities) > 0 {
		args = append(args, filter.Priorities)
		query += ` AND priority = ANY(` + placeholder(len(args)) + `)`
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC LIMIT ` + placeholder(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET ` + placeholder(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.AgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Confidence,
		&ticket.Breached,
		&ticket.ResponseTimeMinutes,
		&ticket.ResolutionTimeMinutes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
