package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paylens/reconciliation-service/internal/models"
)

// schema mirrors the conceptual layout: unique business keys on merchants
// and on each order/payment reference, FK from orders/payments to merchants.
const schema = `
CREATE TABLE IF NOT EXISTS merchants (
	id            BIGSERIAL PRIMARY KEY,
	merchant_id   VARCHAR(50)  NOT NULL UNIQUE,
	merchant_name VARCHAR(100) NOT NULL,
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id                BIGSERIAL PRIMARY KEY,
	merchant_id       BIGINT       NOT NULL REFERENCES merchants(id),
	merchant_order_id VARCHAR(100) NOT NULL UNIQUE,
	amount            NUMERIC(10,2) NOT NULL,
	currency          CHAR(3)      NOT NULL,
	description       VARCHAR(255),
	order_date        DATE         NOT NULL,
	status            VARCHAR(16)  NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_orders_merchant ON orders(merchant_id);
CREATE INDEX IF NOT EXISTS idx_orders_status   ON orders(status);

CREATE TABLE IF NOT EXISTS payments (
	id                BIGSERIAL PRIMARY KEY,
	merchant_id       BIGINT       NOT NULL REFERENCES merchants(id),
	merchant_order_id VARCHAR(100) NOT NULL UNIQUE,
	amount            NUMERIC(10,2) NOT NULL,
	currency          CHAR(3)      NOT NULL,
	description       VARCHAR(255),
	payment_date      DATE         NOT NULL,
	status            VARCHAR(16)  NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_payments_merchant ON payments(merchant_id);
CREATE INDEX IF NOT EXISTS idx_payments_status   ON payments(status);
`

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return translate(err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// translate maps pgx errors onto the store sentinels. SQLSTATE class 23
// covers integrity violations; 23505 specifically is a unique violation.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConflict)
		case strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConstraint)
		}
	}
	return fmt.Errorf("%v: %w", err, ErrTransient)
}

func (s *Postgres) CreateMerchant(ctx context.Context, m *models.Merchant) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO merchants(merchant_id, merchant_name)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		m.MerchantID, m.MerchantName,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return translate(err)
}

func (s *Postgres) MerchantByBusinessID(ctx context.Context, merchantID string) (*models.Merchant, error) {
	var m models.Merchant
	err := s.pool.QueryRow(ctx,
		`SELECT id, merchant_id, merchant_name, created_at, updated_at
		 FROM merchants WHERE merchant_id = $1`,
		merchantID,
	).Scan(&m.ID, &m.MerchantID, &m.MerchantName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *Postgres) Merchants(ctx context.Context, offset, limit int) ([]models.Merchant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, merchant_id, merchant_name, created_at, updated_at
		 FROM merchants ORDER BY id OFFSET $1 LIMIT $2`,
		offset, listLimit(limit),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Merchant{}
	for rows.Next() {
		var m models.Merchant
		if err := rows.Scan(&m.ID, &m.MerchantID, &m.MerchantName, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, translate(err)
		}
		out = append(out, m)
	}
	return out, translate(rows.Err())
}

func (s *Postgres) CreateOrder(ctx context.Context, o *models.Order) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO orders(merchant_id, merchant_order_id, amount, currency, description, order_date, status)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		 RETURNING id, created_at, updated_at`,
		o.MerchantID, o.MerchantOrderID, o.Amount, o.Currency, o.Description, o.OrderDate.Time, o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return translate(err)
}

func (s *Postgres) OrderByReference(ctx context.Context, merchantOrderID string) (*models.Order, error) {
	row := s.pool.QueryRow(ctx,
		orderSelect+` WHERE merchant_order_id = $1`, merchantOrderID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	return o, nil
}

const orderSelect = `SELECT id, merchant_id, merchant_order_id, amount, currency,
	COALESCE(description, ''), order_date, status, created_at, updated_at FROM orders`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var orderDate time.Time
	err := row.Scan(&o.ID, &o.MerchantID, &o.MerchantOrderID, &o.Amount, &o.Currency,
		&o.Description, &orderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	o.Currency = strings.TrimSpace(o.Currency)
	o.OrderDate = models.Date{Time: orderDate.UTC()}
	return &o, nil
}

func (s *Postgres) Orders(ctx context.Context, f ListFilter) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx,
		orderSelect+` WHERE ($1 = '' OR status = $1) ORDER BY id OFFSET $2 LIMIT $3`,
		string(f.Status), f.Offset, listLimit(f.Limit),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, translate(rows.Err())
}

func (s *Postgres) CreatePayment(ctx context.Context, p *models.Payment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO payments(merchant_id, merchant_order_id, amount, currency, description, payment_date, status)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		 RETURNING id, created_at, updated_at`,
		p.MerchantID, p.MerchantOrderID, p.Amount, p.Currency, p.Description, p.PaymentDate.Time, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

const paymentSelect = `SELECT id, merchant_id, merchant_order_id, amount, currency,
	COALESCE(description, ''), payment_date, status, created_at, updated_at FROM payments`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var payDate time.Time
	err := row.Scan(&p.ID, &p.MerchantID, &p.MerchantOrderID, &p.Amount, &p.Currency,
		&p.Description, &payDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	p.Currency = strings.TrimSpace(p.Currency)
	p.PaymentDate = models.Date{Time: payDate.UTC()}
	return &p, nil
}

func (s *Postgres) PaymentByReference(ctx context.Context, merchantOrderID string) (*models.Payment, error) {
	row := s.pool.QueryRow(ctx,
		paymentSelect+` WHERE merchant_order_id = $1`, merchantOrderID)
	p, err := scanPayment(row)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Postgres) Payments(ctx context.Context, f ListFilter) ([]models.Payment, error) {
	rows, err := s.pool.Query(ctx,
		paymentSelect+` WHERE ($1 = '' OR status = $1) ORDER BY id OFFSET $2 LIMIT $3`,
		string(f.Status), f.Offset, listLimit(f.Limit),
	)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, translate(rows.Err())
}

// ApplyStatusChanges runs the whole batch in one transaction.
func (s *Postgres) ApplyStatusChanges(ctx context.Context, changes []StatusChange) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return translate(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range changes {
		var table string
		switch c.Kind {
		case KindOrder:
			table = "orders"
		case KindPayment:
			table = "payments"
		default:
			return fmt.Errorf("status batch: unknown entity kind %q: %w", c.Kind, ErrConstraint)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE `+table+` SET status = $2, updated_at = now() WHERE id = $1`,
			c.ID, c.Status,
		)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("status batch: %s %d: %w", c.Kind, c.ID, ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(err)
	}
	return nil
}

// listLimit maps "no cap" onto LIMIT NULL.
func listLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
