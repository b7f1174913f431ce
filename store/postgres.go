package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
)

// Postgres backs the subscriber store with a pgx connection pool. The
// schema splits account identity (users), delivery settings
// (user_settings), and per-tier regex lists (user_facility_regexes).
type Postgres struct {
	pool    *pgxpool.Pool
	service string
	logger  *slog.Logger
}

// NewPostgres connects a pool for the given service name. The service name
// scopes facility regex rows so one database can serve several watchers.
func NewPostgres(ctx context.Context, databaseURL, service string, logger *slog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool, service: service, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const listActiveSQL = `
SELECT u.id, u.email,
       s.pushover_api_token, s.pushover_user_key,
       s.priority_overrides, s.sound_overrides,
       COALESCE(s.last_seen_status, '')
FROM users u
JOIN user_settings s ON s.user_id = u.id AND s.service = $1
WHERE u.is_active AND u.is_verified
  AND s.notifications_enabled
  AND s.pushover_api_token <> '' AND s.pushover_user_key <> ''
ORDER BY u.id`

const listRegexesSQL = `
SELECT user_id, tier, pattern
FROM user_facility_regexes
WHERE service = $1
ORDER BY user_id, tier, sort_order`

// ListActive returns subscribers eligible for fan-out, with their tier
// patterns attached.
func (p *Postgres) ListActive(ctx context.Context) ([]*Subscriber, error) {
	rows, err := p.pool.Query(ctx, listActiveSQL, p.service)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Subscriber)
	var subs []*Subscriber
	for rows.Next() {
		sub := &Subscriber{Enabled: true}
		var priority map[watcher.Status]int
		var sound map[watcher.Status]string
		var lastSeen string
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.APIToken, &sub.UserKey, &priority, &sound, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.PriorityOverrides = priority
		sub.SoundOverrides = sound
		sub.LastSeenStatus = watcher.Status(lastSeen)
		byID[sub.ID] = sub
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	if err := p.attachPatterns(ctx, byID); err != nil {
		return nil, err
	}
	return subs, nil
}

func (p *Postgres) attachPatterns(ctx context.Context, byID map[string]*Subscriber) error {
	if len(byID) == 0 {
		return nil
	}
	rows, err := p.pool.Query(ctx, listRegexesSQL, p.service)
	if err != nil {
		return fmt.Errorf("query facility regexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, tier, pattern string
		if err := rows.Scan(&userID, &tier, &pattern); err != nil {
			return fmt.Errorf("scan facility regex: %w", err)
		}
		sub, ok := byID[userID]
		if !ok {
			continue
		}
		switch tier {
		case "main":
			sub.Patterns.Main = append(sub.Patterns.Main, pattern)
		case "support_above":
			sub.Patterns.SupportAbove = append(sub.Patterns.SupportAbove, pattern)
		case "support_below":
			sub.Patterns.SupportBelow = append(sub.Patterns.SupportBelow, pattern)
		default:
			p.logger.Warn("unknown regex tier", "user_id", userID, "tier", tier)
		}
	}
	return rows.Err()
}

// SetLastSeenStatus records the status a subscriber was just notified
// about. The conditional update keeps concurrent watcher processes from
// ping-ponging the row: whichever writes first wins and the other becomes
// a no-op.
func (p *Postgres) SetLastSeenStatus(ctx context.Context, id string, status watcher.Status) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE user_settings
		 SET last_seen_status = $1, updated_at = now()
		 WHERE user_id = $2 AND service = $3
		   AND last_seen_status IS DISTINCT FROM $1`,
		string(status), id, p.service)
	if err != nil {
		return fmt.Errorf("update last seen status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		p.logger.Debug("last seen status already current", "user_id", id, "status", status)
	}
	return nil
}

// GetByEmail looks up a single subscriber for the settings API.
func (p *Postgres) GetByEmail(ctx context.Context, email string) (*Subscriber, error) {
	sub := &Subscriber{}
	var priority map[watcher.Status]int
	var sound map[watcher.Status]string
	var lastSeen string
	err := p.pool.QueryRow(ctx,
		`SELECT u.id, u.email, s.pushover_api_token, s.pushover_user_key,
		        s.notifications_enabled, s.priority_overrides, s.sound_overrides,
		        COALESCE(s.last_seen_status, '')
		 FROM users u
		 JOIN user_settings s ON s.user_id = u.id AND s.service = $2
		 WHERE u.email = $1`,
		email, p.service).Scan(&sub.ID, &sub.Email, &sub.APIToken, &sub.UserKey,
		&sub.Enabled, &priority, &sound, &lastSeen)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscriber by email: %w", err)
	}
	sub.PriorityOverrides = priority
	sub.SoundOverrides = sound
	sub.LastSeenStatus = watcher.Status(lastSeen)

	byID := map[string]*Subscriber{sub.ID: sub}
	if err := p.attachPatterns(ctx, byID); err != nil {
		return nil, err
	}
	return sub, nil
}
