package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"k8s.io/klog/v2"
)

var (
	ErrUnavailable     = errors.New("DATABASE_UNAVAILABLE: Feedback storage is not configured")
	ErrFeedbackInvalid = errors.New("FEEDBACK_INVALID: Name and message are required")
)

const (
	maxNameLength    = 100
	maxEmailLength   = 254
	maxMessageLength = 2000
)

// Feedback is a message left through the contact form. It never references
// game state.
type Feedback struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Validate trims the submission and checks the required fields.
func (f *Feedback) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)

	if f.Name == "" || f.Message == "" {
		return ErrFeedbackInvalid
	}
	if len(f.Name) > maxNameLength || len(f.Email) > maxEmailLength || len(f.Message) > maxMessageLength {
		return fmt.Errorf("%w: field too long", ErrFeedbackInvalid)
	}
	return nil
}

// Service is the storage boundary used by the HTTP layer.
type Service interface {
	Health() map[string]string
	CreateFeedback(ctx context.Context, f Feedback) (Feedback, error)
	ListFeedback(ctx context.Context, limit int) ([]Feedback, error)
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS feedback_created_at_idx ON feedback (created_at DESC);
`

// New connects to postgres and applies the schema.
func New(ctx context.Context, databaseURL string) (Service, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	klog.Infof("Database schema applied successfully")
	return &service{pool: pool}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		klog.Errorf("Database health check failed: %v", err)
		return stats
	}

	stat := s.pool.Stat()
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["total_connections"] = strconv.Itoa(int(stat.TotalConns()))
	stats["idle_connections"] = strconv.Itoa(int(stat.IdleConns()))
	stats["acquired_connections"] = strconv.Itoa(int(stat.AcquiredConns()))
	stats["max_connections"] = strconv.Itoa(int(stat.MaxConns()))

	if stat.AcquiredConns() >= stat.MaxConns() {
		stats["message"] = "The database pool is exhausted."
	}

	return stats
}

func (s *service) CreateFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	if err := f.Validate(); err != nil {
		return Feedback{}, err
	}

	query := `
		INSERT INTO feedback (name, email, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := s.pool.QueryRow(ctx, query, f.Name, f.Email, f.Message).Scan(&f.ID, &f.CreatedAt); err != nil {
		return Feedback{}, fmt.Errorf("failed to save feedback: %w", err)
	}

	return f, nil
}

// ListFeedback returns the newest entries first.
func (s *service) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	query := `
		SELECT id, name, email, message, created_at FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}

	feedback, err := pgx.CollectRows(rows, pgx.RowToStructByName[Feedback])
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback rows: %w", err)
	}

	return feedback, nil
}

func (s *service) Close() {
	s.pool.Close()
}

// Disabled is used when no database is configured. The game keeps working and
// feedback requests report ErrUnavailable.
func Disabled() Service {
	return disabled{}
}

type disabled struct{}

func (disabled) Health() map[string]string {
	return map[string]string{"status": "disabled", "message": "No database configured"}
}

func (disabled) CreateFeedback(context.Context, Feedback) (Feedback, error) {
	return Feedback{}, ErrUnavailable
}

func (disabled) ListFeedback(context.Context, int) ([]Feedback, error) {
	return nil, ErrUnavailable
}

func (disabled) Close() {}
