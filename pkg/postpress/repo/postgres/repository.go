// Package postgres provides the PostgreSQL record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpress/postpress/pkg/postpress"
)

// DBTX is an interface that allows us to use either a database connection
// pool or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements postpress.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// handlePostgresError translates driver errors into domain errors
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation
			return fmt.Errorf("field constraint violated: %s", pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return postpress.ErrPostNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const postColumns = "id, heading, description, COALESCE(image, ''), created_at, updated_at"

func scanPost(row pgx.Row) (*postpress.Post, error) {
	var post postpress.Post
	err := row.Scan(&post.ID, &post.Heading, &post.Description, &post.Image, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) CreatePost(ctx context.Context, fields postpress.PostFields) (*postpress.Post, error) {
	query := `
		INSERT INTO posts (id, heading, description, image, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), now(), now())
		RETURNING ` + postColumns

	var image string
	if fields.Image != nil {
		image = *fields.Image
	}
	var heading, description string
	if fields.Heading != nil {
		heading = *fields.Heading
	}
	if fields.Description != nil {
		description = *fields.Description
	}

	post, err := scanPost(r.db.QueryRow(ctx, query, uuid.New(), heading, description, image))
	if err != nil {
		return nil, handlePostgresError("create post", err)
	}
	return post, nil
}

func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (*postpress.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postpress.ErrPostNotFound
		}
		return nil, handlePostgresError("get post", err)
	}
	return post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, id uuid.UUID, fields postpress.PostFields) (*postpress.Post, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Heading != nil {
		addSet("heading", *fields.Heading)
	}
	if fields.Description != nil {
		addSet("description", *fields.Description)
	}
	if fields.Image != nil {
		addSet("image", *fields.Image)
	}

	query := `UPDATE posts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + postColumns

	post, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, postpress.ErrPostNotFound
		}
		return nil, handlePostgresError("update post", err)
	}
	return post, nil
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return postpress.ErrPostNotFound
	}
	return nil
}

// orderClause whitelists sortable columns; anything else falls back to the
// default reverse-chronological order.
func orderClause(sortBy string) string {
	if sortBy == "" {
		sortBy = postpress.DefaultSortBy
	}
	direction := "ASC"
	if strings.HasPrefix(sortBy, "-") {
		direction = "DESC"
		sortBy = strings.TrimPrefix(sortBy, "-")
	}
	switch sortBy {
	case "created_at", "updated_at", "heading":
		return fmt.Sprintf("ORDER BY %s %s", sortBy, direction)
	default:
		return "ORDER BY created_at DESC"
	}
}

func (r *Repository) ListPosts(ctx context.Context, filter postpress.PostFilter) ([]*postpress.Post, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = "WHERE heading ILIKE $1 OR description ILIKE $1"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM posts ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, handlePostgresError("count posts", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM posts %s %s LIMIT $%d OFFSET $%d`,
		postColumns, where, orderClause(filter.SortBy), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, handlePostgresError("list posts", err)
	}
	defer rows.Close()

	var posts []*postpress.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, handlePostgresError("list posts", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, handlePostgresError("list posts", err)
	}

	return posts, total, nil
}
