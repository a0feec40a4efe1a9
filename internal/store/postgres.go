package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"fleetsim/internal/model"
)

// Postgres persists through database/sql over the pgx driver. Documents that
// the API round-trips whole (scenario bodies, run reports, order outcomes)
// live in jsonb columns; fields the queries filter on get their own columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate creates the schema if it is missing. Dev helper; production
// deployments run the same statements through their own migration tooling.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenarios (
			id uuid PRIMARY KEY,
			name text NOT NULL,
			doc jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id uuid PRIMARY KEY,
			scenario_id uuid NOT NULL,
			mode text NOT NULL,
			seed bigint NOT NULL,
			status text NOT NULL,
			report jsonb,
			orders jsonb,
			error text,
			created_at timestamptz NOT NULL DEFAULT now(),
			completed_at timestamptz
		)`,
		`CREATE INDEX IF NOT EXISTS runs_scenario_idx ON runs (scenario_id)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id uuid PRIMARY KEY,
			url text NOT NULL,
			events jsonb NOT NULL,
			secret text NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id uuid PRIMARY KEY,
			subscription_id uuid NOT NULL,
			event_type text NOT NULL,
			url text NOT NULL,
			secret text NOT NULL DEFAULT '',
			payload bytea NOT NULL,
			status text NOT NULL DEFAULT 'pending',
			attempts int NOT NULL DEFAULT 0,
			next_attempt_at timestamptz NOT NULL DEFAULT now(),
			last_error text,
			response_code int,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, name, doc, created_at) VALUES ($1,$2,$3,$4)`,
		sc.ID, sc.Name, doc, sc.CreatedAt)
	return err
}

func (p *Postgres) GetScenario(ctx context.Context, id string) (model.Scenario, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM scenarios WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scenario{}, ErrNotFound
	}
	if err != nil {
		return model.Scenario{}, err
	}
	var sc model.Scenario
	if err := json.Unmarshal(doc, &sc); err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

func (p *Postgres) ListScenarios(ctx context.Context, cursor string, limit int) ([]model.Scenario, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT doc FROM scenarios WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT doc FROM scenarios ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Scenario{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, "", err
		}
		var sc model.Scenario
		if err := json.Unmarshal(doc, &sc); err != nil {
			return nil, "", err
		}
		out = append(out, sc)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteScenario(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM scenarios WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, r *model.Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	report, orders, err := runDocs(r)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario_id, mode, seed, status, report, orders, error, created_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.ScenarioID, r.Mode, r.Seed, r.Status, report, orders, nullIfEmpty(r.Error), r.CreatedAt, r.CompletedAt)
	return err
}

func (p *Postgres) UpdateRun(ctx context.Context, r *model.Run) error {
	report, orders, err := runDocs(r)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE runs SET mode=$2, seed=$3, status=$4, report=$5, orders=$6, error=$7, completed_at=$8 WHERE id=$1`,
		r.ID, r.Mode, r.Seed, r.Status, report, orders, nullIfEmpty(r.Error), r.CompletedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id::text, scenario_id::text, mode, seed, status, report, orders, error, created_at, completed_at
		 FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, scenarioID, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text, scenario_id::text, mode, seed, status, report, orders, error, created_at, completed_at FROM runs`
	args := []any{}
	where := ""
	if scenarioID != "" {
		args = append(args, scenarioID)
		where = fmt.Sprintf(" WHERE scenario_id=$%d", len(args))
	}
	if cursor != "" {
		args = append(args, cursor)
		if where == "" {
			where = fmt.Sprintf(" WHERE id::text > $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND id::text > $%d", len(args))
		}
	}
	args = append(args, limit)
	q += where + fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, err := json.Marshal(s.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, events, s.Secret)
	return s, err
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, events, secret FROM subscriptions WHERE events @> to_jsonb($1::text) OR events @> '"*"'`,
		eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, events, secret FROM subscriptions WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, url, events, secret FROM subscriptions ORDER BY id LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, s)
	}
	var next string
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		id, subscriptionID, eventType, url, secret, payload)
	return id, err
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, subscription_id::text, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries
		 WHERE status IN ('pending','retry') AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, response_code=$2, last_error=NULL WHERE id=$1`,
			id, responseCode)
		return err
	}
	next := time.Now().Add(time.Minute)
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='retry', attempts=attempts+1, next_attempt_at=$2, last_error=$3, response_code=$4 WHERE id=$1`,
		id, next, lastError, responseCode)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', last_error=$2, response_code=$3 WHERE id=$1`,
		id, lastError, responseCode)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var (
		r           model.Run
		report      []byte
		orders      []byte
		errText     sql.NullString
		completedAt sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.ScenarioID, &r.Mode, &r.Seed, &r.Status, &report, &orders, &errText, &r.CreatedAt, &completedAt); err != nil {
		return model.Run{}, err
	}
	if len(report) > 0 {
		var rep model.RunReport
		if err := json.Unmarshal(report, &rep); err != nil {
			return model.Run{}, err
		}
		r.Report = &rep
	}
	if len(orders) > 0 {
		if err := json.Unmarshal(orders, &r.Orders); err != nil {
			return model.Run{}, err
		}
	}
	r.Error = errText.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return r, nil
}

func scanSubscription(rows *sql.Rows) (model.Subscription, error) {
	var (
		s      model.Subscription
		events []byte
	)
	if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
		return model.Subscription{}, err
	}
	if err := json.Unmarshal(events, &s.Events); err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func runDocs(r *model.Run) (report, orders any, err error) {
	if r.Report != nil {
		if report, err = json.Marshal(r.Report); err != nil {
			return nil, nil, err
		}
	}
	if len(r.Orders) > 0 {
		if orders, err = json.Marshal(r.Orders); err != nil {
			return nil, nil, err
		}
	}
	return report, orders, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
