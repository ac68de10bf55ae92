package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres stores drafts, favourites and session records.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a Postgres store over db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// --- Drafts ---

// Get returns the draft for (user, document), or nil when there is none.
func (s *Postgres) Get(ctx context.Context, p landing.Principal, documentNumber string) (*landing.ExportPayload, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM export_drafts WHERE user_id = $1 AND document_number = $2`,
		p.UserID, documentNumber,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	var payload landing.ExportPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if payload.Items == nil {
		payload.Items = []landing.ProductLanding{}
	}
	return &payload, nil
}

// Save overwrites the draft. The last writer wins.
func (s *Postgres) Save(ctx context.Context, p landing.Principal, documentNumber string, payload *landing.ExportPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO export_drafts (user_id, document_number, contact_id, payload, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, document_number)
		DO UPDATE SET payload = EXCLUDED.payload, contact_id = EXCLUDED.contact_id, updated_at = now()`,
		p.UserID, documentNumber, p.ContactID, raw,
	)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// --- Favourites ---

func (s *Postgres) ReadFavouriteProducts(ctx context.Context, userID string) ([]landing.Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT product FROM favourite_products WHERE user_id = $1 ORDER BY created_at, product_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("read favourites: %w", err)
	}
	defer rows.Close()

	products := []landing.Product{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan favourite: %w", err)
		}
		var product landing.Product
		if err := json.Unmarshal(raw, &product); err != nil {
			return nil, fmt.Errorf("decode favourite: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read favourites: %w", err)
	}
	return products, nil
}

func (s *Postgres) RemoveInvalidFavouriteProduct(ctx context.Context, userID, productID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM favourite_products WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	); err != nil {
		return fmt.Errorf("remove favourite %s: %w", productID, err)
	}
	return nil
}

// --- Session records ---

func (s *Postgres) ReadAllFor(ctx context.Context, userID, contactID, key string) (json.RawMessage, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM session_records WHERE user_id = $1 AND contact_id = $2 AND key = $3`,
		userID, contactID, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", key, err)
	}
	return raw, nil
}

func (s *Postgres) WriteAllFor(ctx context.Context, userID, contactID, key string, data json.RawMessage) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO session_records (user_id, contact_id, key, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, contact_id, key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		userID, contactID, key, []byte(data),
	)
	if err != nil {
		return fmt.Errorf("write session %s: %w", key, err)
	}
	return nil
}

func (s *Postgres) DeleteAllFor(ctx context.Context, userID, contactID, key string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM session_records WHERE user_id = $1 AND contact_id = $2 AND key = $3`,
		userID, contactID, key,
	); err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

// PurgeSessionsBefore deletes session records last written before cutoff.
func (s *Postgres) PurgeSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM session_records WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
