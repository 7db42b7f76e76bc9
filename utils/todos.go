package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todoapi/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const todoColumns = "id, title, description, completed, created_at, updated_at"

// TodoStore is the only code that reads or writes the todos table.
type TodoStore struct {
	db *pgxpool.Pool
}

func NewTodoStore(db *pgxpool.Pool) *TodoStore {
	return &TodoStore{db: db}
}

// List returns every todo in insertion order. An empty table yields an empty,
// non-nil slice.
func (s *TodoStore) List(ctx context.Context) ([]models.Todo, error) {
	rows, err := s.db.Query(ctx, "SELECT "+todoColumns+" FROM todos ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: list todos: %w", ErrStorage, err)
	}
	todos, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Todo])
	if err != nil {
		return nil, fmt.Errorf("%w: scan todos: %w", ErrStorage, err)
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

func (s *TodoStore) Get(ctx context.Context, id int64) (models.Todo, error) {
	rows, err := s.db.Query(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = $1", id)
	if err != nil {
		return models.Todo{}, fmt.Errorf("%w: get todo %d: %w", ErrStorage, id, err)
	}
	return collectOne(rows, id)
}

// Create validates the title and inserts a new, incomplete todo. created_at
// and updated_at come from the same now() so they are equal.
func (s *TodoStore) Create(ctx context.Context, title string, description *string) (models.Todo, error) {
	if err := ValidateTitle(title); err != nil {
		return models.Todo{}, err
	}

	var todo models.Todo
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`INSERT INTO todos (title, description, completed, created_at, updated_at)
			 VALUES ($1, $2, FALSE, now(), now())
			 RETURNING `+todoColumns,
			title, description)
		if err != nil {
			return fmt.Errorf("%w: insert todo: %w", ErrStorage, err)
		}
		todo, err = collectOne(rows, 0)
		return err
	})
	return todo, err
}

// Update applies only the fields present in the patch and always refreshes
// updated_at.
func (s *TodoStore) Update(ctx context.Context, id int64, patch models.TodoPatch) (models.Todo, error) {
	args := []any{id}
	var sets []string

	if patch.Title != nil {
		if err := ValidateTitleUpdate(*patch.Title); err != nil {
			return models.Todo{}, err
		}
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.HasDescription {
		args = append(args, patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, fmt.Sprintf("completed = $%d", len(args)))
	}
	// never earlier than created_at, even if the server clock steps back
	sets = append(sets, "updated_at = GREATEST(now(), created_at)")

	query := "UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + todoColumns

	var todo models.Todo
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%w: update todo %d: %w", ErrStorage, id, err)
		}
		todo, err = collectOne(rows, id)
		return err
	})
	return todo, err
}

// Delete removes the row permanently.
func (s *TodoStore) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM todos WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("%w: delete todo %d: %w", ErrStorage, id, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil
	})
}

// Ping runs a trivial query against the database.
func (s *TodoStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

// withTx runs fn in a transaction. Any error from fn or from commit rolls the
// transaction back before returning.
func (s *TodoStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStorage, err)
	}
	defer func() {
		// no-op once committed
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStorage, err)
	}
	return nil
}

func collectOne(rows pgx.Rows, id int64) (models.Todo, error) {
	todo, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Todo])
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Todo{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("%w: scan todo: %w", ErrStorage, err)
	}
	return todo, nil
}
