package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardStats aggregates helpdesk metrics for the admin dashboard.
type DashboardStats struct {
	TotalTickets         int64            `json:"total_tickets"`
	OpenTickets          int64            `json:"open_tickets"`
	ResolvedTickets      int64            `json:"resolved_tickets"`
	BreachedTickets      int64            `json:"breached_tickets"`
	TicketsToday         int64            `json:"tickets_today"`
	ResolvedToday        int64            `json:"resolved_today"`
	TicketsThisWeek      int64            `json:"tickets_this_week"`
	ResolvedThisWeek     int64            `json:"resolved_this_week"`
	TicketsThisMonth     int64            `json:"tickets_this_month"`
	ResolvedThisMonth    int64            `json:"resolved_this_month"`
	AvgResponseMinutes   float64          `json:"avg_response_minutes"`
	AvgResolutionMinutes float64          `json:"avg_resolution_minutes"`
	ByPriority           map[string]int64 `json:"by_priority"`
	ByStatus             map[string]int64 `json:"by_status"`
	ByAgent              []AgentStats     `json:"by_agent"`
	ActiveSessions       int64            `json:"active_sessions"`
	WaitingSessions      int64            `json:"waiting_sessions"`
}

// AgentStats aggregates one agent's workload for the dashboard.
type AgentStats struct {
	AgentID              string  `json:"agent_id"`
	Name                 string  `json:"name"`
	AssignedTickets      int64   `json:"assigned_tickets"`
	ResolvedTickets      int64   `json:"resolved_tickets"`
	AvgResolutionMinutes float64 `json:"avg_resolution_minutes"`
}

// AnalyticsRepository runs the aggregate queries backing the dashboard.
type AnalyticsRepository interface {
	DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error)
}

type analyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository instantiates repository.
func NewAnalyticsRepository(pool *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{pool: pool}
}

func (r *analyticsRepository) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := today.AddDate(0, 0, -7)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &DashboardStats{
		ByPriority: make(map[string]int64),
		ByStatus:   make(map[string]int64),
	}

	const totalsQuery = `
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status IN ('open','assigned','in-progress')),
            COUNT(*) FILTER (WHERE status = 'resolved'),
            COUNT(*) FILTER (WHERE breached),
            COUNT(*) FILTER (WHERE created_at >= $1),
            COUNT(*) FILTER (WHERE resolved_at >= $1 AND status = 'resolved'),
            COUNT(*) FILTER (WHERE created_at >= $2),
            COUNT(*) FILTER (WHERE resolved_at >= $2 AND status = 'resolved'),
            COUNT(*) FILTER (WHERE created_at >= $3),
            COUNT(*) FILTER (WHERE resolved_at >= $3 AND status = 'resolved'),
            COALESCE(AVG(response_time_minutes), 0),
            COALESCE(AVG(resolution_time_minutes), 0)
        FROM tickets`
	if err := r.pool.QueryRow(ctx, totalsQuery, today, week, month).Scan(
		&stats.TotalTickets,
		&stats.OpenTickets,
		&stats.ResolvedTickets,
		&stats.BreachedTickets,
		&stats.TicketsToday,
		&stats.ResolvedToday,
		&stats.TicketsThisWeek,
		&stats.ResolvedThisWeek,
		&stats.TicketsThisMonth,
		&stats.ResolvedThisMonth,
		&stats.AvgResponseMinutes,
		&stats.AvgResolutionMinutes,
	); err != nil {
		return nil, err
	}

	const priorityQuery = `SELECT priority, COUNT(*) FROM tickets GROUP BY priority`
	rows, err := r.pool.Query(ctx, priorityQuery)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var priority string
		var count int64
		if err := rows.Scan(&priority, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByPriority[priority] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const statusQuery = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err = r.pool.Query(ctx, statusQuery)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const agentQuery = `
        SELECT t.agent_id, u.name,
               COUNT(*),
               COUNT(*) FILTER (WHERE t.status = 'resolved'),
               COALESCE(AVG(t.resolution_time_minutes), 0)
        FROM tickets t
        JOIN users u ON u.id = t.agent_id
        WHERE t.agent_id IS NOT NULL
        GROUP BY t.agent_id, u.name
        ORDER BY COUNT(*) DESC`
	rows, err = r.pool.Query(ctx, agentQuery)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var agent AgentStats
		if err := rows.Scan(
			&agent.AgentID,
			&agent.Name,
			&agent.AssignedTickets,
			&agent.ResolvedTickets,
			&agent.AvgResolutionMinutes,
		); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByAgent = append(stats.ByAgent, agent)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const sessionsQuery = `
        SELECT
            COUNT(*) FILTER (WHERE status = 'active'),
            COUNT(*) FILTER (WHERE status = 'waiting')
        FROM sessions`
	if err := r.pool.QueryRow(ctx, sessionsQuery).Scan(&stats.ActiveSessions, &stats.WaitingSessions); err != nil {
		return nil, err
	}

	return stats, nil
}
