//go:build integration

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JonMunkholm/catchcert/internal/landing"
)

// setupPostgres starts a disposable postgres container and returns a pool
// with the schema applied.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "catchcert",
			"POSTGRES_PASSWORD": "catchcert",
			"POSTGRES_DB":       "catchcert",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://catchcert:catchcert@%s:%s/catchcert?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return pool
}

func TestPostgres_Drafts(t *testing.T) {
	pool := setupPostgres(t)
	s := NewPostgres(pool)
	ctx := context.Background()
	p := landing.Principal{UserID: "u1", ContactID: "c1"}

	got, err := s.Get(ctx, p, "DOC-1")
	if err != nil || got != nil {
		t.Fatalf("Get on empty = %+v, %v; want nil, nil", got, err)
	}

	payload := &landing.ExportPayload{Items: []landing.ProductLanding{{
		Product:  landing.Product{ID: "DOC-1-p1", CommodityCode: "03021100"},
		Landings: []landing.Landing{{Model: landing.LandingStatus{ID: "DOC-1-0000000001", ExportWeight: 10}}},
	}}}
	if err := s.Save(ctx, p, "DOC-1", payload); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err = s.Get(ctx, p, "DOC-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LandingCount() != 1 || got.Items[0].Product.ID != "DOC-1-p1" {
		t.Errorf("Get = %+v", got)
	}

	// Last writer wins.
	if err := s.Save(ctx, p, "DOC-1", &landing.ExportPayload{Items: []landing.ProductLanding{}}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _ = s.Get(ctx, p, "DOC-1")
	if got.LandingCount() != 0 {
		t.Errorf("after overwrite LandingCount = %d", got.LandingCount())
	}
}

// seedFavourite inserts a favourite directly; favourites are added by
// another service in production.
func seedFavourite(t *testing.T, pool *pgxpool.Pool, userID string, product landing.Product) {
	t.Helper()
	raw, err := json.Marshal(product)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Exec(context.Background(),
		`INSERT INTO favourite_products (user_id, product_id, product) VALUES ($1, $2, $3)`,
		userID, product.ID, raw,
	); err != nil {
		t.Fatalf("seed favourite %s: %v", product.ID, err)
	}
}

func TestPostgres_Favourites(t *testing.T) {
	pool := setupPostgres(t)
	s := NewPostgres(pool)
	ctx := context.Background()

	for _, id := range []string{"P1", "P2"} {
		seedFavourite(t, pool, "u1", landing.Product{ID: id})
	}
	if err := s.RemoveInvalidFavouriteProduct(ctx, "u1", "P1"); err != nil {
		t.Fatalf("RemoveInvalidFavouriteProduct: %v", err)
	}

	favs, err := s.ReadFavouriteProducts(ctx, "u1")
	if err != nil {
		t.Fatalf("ReadFavouriteProducts: %v", err)
	}
	if len(favs) != 1 || favs[0].ID != "P2" {
		t.Errorf("favourites = %+v, want [P2]", favs)
	}

	none, err := s.ReadFavouriteProducts(ctx, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("ReadFavouriteProducts(nobody) = %v, %v; want empty list", none, err)
	}
}

func TestPostgres_SessionsAndPurge(t *testing.T) {
	pool := setupPostgres(t)
	s := NewPostgres(pool)
	ctx := context.Background()

	if err := s.WriteAllFor(ctx, "u1", "c1", "exportPayload", []byte(`[{"documentNumber":"DOC-1"}]`)); err != nil {
		t.Fatalf("WriteAllFor: %v", err)
	}
	got, err := s.ReadAllFor(ctx, "u1", "c1", "exportPayload")
	if err != nil || len(got) == 0 {
		t.Fatalf("ReadAllFor = %s, %v", got, err)
	}

	n, err := s.PurgeSessionsBefore(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeSessionsBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
	if got, _ := s.ReadAllFor(ctx, "u1", "c1", "exportPayload"); got != nil {
		t.Errorf("read after purge = %s", got)
	}
}
