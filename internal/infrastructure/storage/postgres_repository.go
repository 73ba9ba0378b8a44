package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

//go:embed schema.sql
var schema string

const companiesTable = "companies"

var companyColumns = []string{
	"id", "name", "list_url", "search_url", "strategy", "role_keywords",
	"max_age_days", "detail_fetch_limit", "job_link_regex", "allowed_hosts",
	"keep_query_params", "include_unknown_age", "trust_listing_dates", "day_first",
	"recipient", "active",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

// PostgresRepository persists source configurations in the companies table.
type PostgresRepository struct {
	db DB
}

var _ ports.SourceStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a pgx pool implementation.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the companies table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// List returns every source ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Source, error) {
	query, args, err := selectCompanies().OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return sources, nil
}

// Get loads a source by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (domain.Source, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByName loads a source by its unique name.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (domain.Source, error) {
	return r.getOne(ctx, sq.Eq{"name": name})
}

// Create inserts a source and returns it with its id. Duplicate names yield domain.ErrSourceExists.
func (r *PostgresRepository) Create(ctx context.Context, src domain.Source) (domain.Source, error) {
	if err := src.Validate(); err != nil {
		return domain.Source{}, err
	}

	query, args, err := insertCompany(src).ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build insert: %w", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&src.ID); err != nil {
		return domain.Source{}, mapDBError(err, src.Name)
	}
	return src, nil
}

// Delete removes a source; a missing id yields domain.ErrSourceNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(companiesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrSourceNotFound, id)
	}
	return nil
}

// Reset removes every source.
func (r *PostgresRepository) Reset(ctx context.Context) error {
	query, args, err := psql.Delete(companiesTable).ToSql()
	if err != nil {
		return fmt.Errorf("build reset: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("reset companies: %w", err)
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where sq.Eq) (domain.Source, error) {
	query, args, err := selectCompanies().Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.Source{}, fmt.Errorf("build get query: %w", err)
	}

	src, err := scanSource(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Source{}, fmt.Errorf("%w: %v", domain.ErrSourceNotFound, where)
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("get company: %w", err)
	}
	return src, nil
}

func selectCompanies() sq.SelectBuilder {
	return psql.Select(companyColumns...).From(companiesTable)
}

func insertCompany(src domain.Source) sq.InsertBuilder {
	return psql.Insert(companiesTable).
		Columns(companyColumns[1:]...).
		Values(
			src.Name, src.ListURL, src.SearchURL, src.Strategy, nonNil(src.RoleKeywords),
			src.MaxAgeDays, src.DetailFetchLimit, src.JobPathPattern, nonNil(src.AllowedHosts),
			nonNil(src.KeepQueryParams), src.IncludeUnknownAge, src.TrustListingDates, src.DayFirst,
			src.Recipient, src.Active,
		).
		Suffix("RETURNING id")
}

func scanSource(row pgx.Row) (domain.Source, error) {
	var src domain.Source
	err := row.Scan(
		&src.ID, &src.Name, &src.ListURL, &src.SearchURL, &src.Strategy, &src.RoleKeywords,
		&src.MaxAgeDays, &src.DetailFetchLimit, &src.JobPathPattern, &src.AllowedHosts,
		&src.KeepQueryParams, &src.IncludeUnknownAge, &src.TrustListingDates, &src.DayFirst,
		&src.Recipient, &src.Active,
	)
	return src, err
}

func mapDBError(err error, name string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrSourceExists, name)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidSource, pgErr.Message)
		}
	}
	return fmt.Errorf("insert company: %w", err)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
