package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/command-center/helpdesk/internal/domain"
)

// MessageRepository persists ticket conversation entries. Messages are
// append-only; MarkRead flips the read marker and nothing else.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, ticketID, readerID string) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, sender_id, sender_role, content, type)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		message.TicketID,
		message.SenderID,
		message.SenderRole,
		message.Content,
		message.Type,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_id, sender_role, content, type, read, created_at
        FROM messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}
	return messages, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, ticketID, readerID string) error {
	const query = `UPDATE messages SET read=TRUE WHERE ticket_id=$1 AND sender_id<>$2`
	_, err := r.pool.Exec(ctx, query, ticketID, readerID)
	return err
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var message domain.Message
	if err := row.Scan(
		&message.ID,
		&message.TicketID,
		&message.SenderID,
		&message.SenderRole,
		&message.Content,
		&message.Type,
		&message.Read,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &message, nil
}
