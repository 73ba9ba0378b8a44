package storage

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JobWatch/internal/domain"
)

func TestInsertCompanyQuery(t *testing.T) {
	src := domain.NewSource("Acme", "https://acme.example/careers")

	query, args, err := insertCompany(src).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO companies (name,list_url,"), query)
	assert.Contains(t, query, "$15")
	assert.NotContains(t, query, "$16")
	assert.True(t, strings.HasSuffix(query, "RETURNING id"), query)
	require.Len(t, args, 15)
	assert.Equal(t, "Acme", args[0])
	assert.Equal(t, []string{}, args[4], "nil keyword lists are stored as empty arrays")
}

func TestSelectByNameQuery(t *testing.T) {
	query, args, err := selectCompanies().Where(sq.Eq{"name": "Acme"}).Limit(1).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM companies WHERE name = $1")
	assert.True(t, strings.HasSuffix(query, "LIMIT 1"), query)
	assert.Equal(t, []any{"Acme"}, args)
}

func TestMapDBError(t *testing.T) {
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.ErrorIs(t, mapDBError(dup, "Acme"), domain.ErrSourceExists)

	check := &pgconn.PgError{Code: pgerrcode.CheckViolation, Message: "max_age_days"}
	assert.ErrorIs(t, mapDBError(check, "Acme"), domain.ErrInvalidSource)

	other := errors.New("connection reset")
	err := mapDBError(other, "Acme")
	assert.ErrorIs(t, err, other)
	assert.False(t, errors.Is(err, domain.ErrSourceExists))
}

func TestPostgresRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("JOBWATCH_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("JOBWATCH_TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.Reset(ctx))

	src := domain.NewSource("Acme", "https://acme.example/careers")
	src.RoleKeywords = []string{"engineer", "developer"}
	src.KeepQueryParams = []string{"gh_jid"}
	created, err := repo.Create(ctx, src)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = repo.Create(ctx, src)
	assert.ErrorIs(t, err, domain.ErrSourceExists)

	got, err := repo.GetByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"engineer", "developer"}, got.RoleKeywords)
	assert.Equal(t, []string{"gh_jid"}, got.KeepQueryParams)
	assert.Empty(t, got.AllowedHosts)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), domain.ErrSourceNotFound)

	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}
