package utils_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"todoapi/migrations"
	"todoapi/models"
	"todoapi/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties the
// todos table. Tests that need PostgreSQL skip when the variable is unset.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := utils.OpenDB(ctx, dsn, 4, 0)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := utils.Migrate(ctx, pool, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE todos RESTART IDENTITY"); err != nil {
		t.Fatalf("truncate todos: %v", err)
	}
	return pool
}

func strPtr(s string) *string { return &s }

func TestMigrateIsIdempotent(t *testing.T) {
	pool := openTestDB(t)

	applied, err := utils.Migrate(context.Background(), pool, migrations.FS)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate() applied %v, want nothing", applied)
	}
}

func TestTodoStoreCreateAndGet(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name        string
		title       string
		description *string
		wantTitle   string
	}{
		{name: "Title only", title: "Buy milk", wantTitle: "Buy milk"},
		{name: "With description", title: "Write report", description: strPtr("Q3 numbers"), wantTitle: "Write report"},
		{name: "Padded title is stored unchanged", title: "  Call mum ", wantTitle: "  Call mum "},
		{name: "Empty description is kept", title: "Read", description: strPtr(""), wantTitle: "Read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := store.Create(ctx, tt.title, tt.description)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			got, err := store.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.SameRecord(created) {
				t.Errorf("Get() id = %d, want %d", got.ID, created.ID)
			}
			if got.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, tt.wantTitle)
			}
			if (got.Description == nil) != (tt.description == nil) ||
				(got.Description != nil && *got.Description != *tt.description) {
				t.Errorf("Description = %v, want %v", got.Description, tt.description)
			}
			if got.Completed {
				t.Error("Completed = true, want false")
			}
			if !got.CreatedAt.Equal(got.UpdatedAt) {
				t.Errorf("CreatedAt %v != UpdatedAt %v", got.CreatedAt, got.UpdatedAt)
			}
		})
	}
}

func TestTodoStoreCreateRejectsBlankTitle(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	for _, title := range []string{"", "   "} {
		if _, err := store.Create(ctx, title, nil); !errors.Is(err, utils.ErrValidation) {
			t.Errorf("Create(%q) error = %v, want ErrValidation", title, err)
		}
	}

	todos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(todos) != 0 {
		t.Errorf("List() = %d todos, want none persisted", len(todos))
	}
}

func TestTodoStoreList(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	todos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if todos == nil || len(todos) != 0 {
		t.Fatalf("List() = %v, want empty non-nil slice", todos)
	}

	for _, title := range []string{"first", "second", "third"} {
		if _, err := store.Create(ctx, title, nil); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	todos, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("List() = %d todos, want 3", len(todos))
	}
	for i := 1; i < len(todos); i++ {
		if todos[i-1].ID >= todos[i].ID {
			t.Errorf("List() not ordered by id: %d before %d", todos[i-1].ID, todos[i].ID)
		}
	}
}

func TestTodoStoreUpdate(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "Buy milk", strPtr("semi-skimmed"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	done := true
	updated, err := store.Update(ctx, created.ID, models.TodoPatch{Completed: &done})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.Completed {
		t.Error("Completed = false, want true")
	}
	if updated.Title != created.Title || *updated.Description != *created.Description {
		t.Errorf("partial update changed other fields: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt changed on update")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("UpdatedAt moved backwards")
	}

	cleared, err := store.Update(ctx, created.ID, models.TodoPatch{Title: strPtr(" Buy oat milk "), HasDescription: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if cleared.Title != " Buy oat milk " || cleared.Description != nil || !cleared.Completed {
		t.Errorf("Update() = %+v", cleared)
	}

	if _, err := store.Update(ctx, created.ID, models.TodoPatch{}); err != nil {
		t.Errorf("empty Update() error = %v", err)
	}

	if _, err := store.Update(ctx, created.ID, models.TodoPatch{Title: strPtr(" ")}); !errors.Is(err, utils.ErrValidation) {
		t.Errorf("Update() blank title error = %v, want ErrValidation", err)
	}
}

func TestTodoStoreMissingID(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()
	done := true

	if _, err := store.Get(ctx, 9999); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, 9999, models.TodoPatch{Completed: &done}); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, 9999); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestTodoStoreDeleteTwice(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	created, err := store.Create(ctx, "Temporary", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, created.ID); !errors.Is(err, utils.ErrNotFound) {
			t.Errorf("repeat Delete() error = %v, want ErrNotFound", err)
		}
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestTodoStorePing(t *testing.T) {
	pool := openTestDB(t)
	store := utils.NewTodoStore(pool)

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	pool.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() on a closed pool should fail")
	}
}

func TestTodoStoreStorageError(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Create(ctx, "never stored", nil); !errors.Is(err, utils.ErrStorage) {
		t.Errorf("Create() with cancelled context error = %v, want ErrStorage", err)
	}
	if _, err := store.List(ctx); !errors.Is(err, utils.ErrStorage) {
		t.Errorf("List() with cancelled context error = %v, want ErrStorage", err)
	}
}

func TestTodoStoreRollsBackFailedWrites(t *testing.T) {
	store := utils.NewTodoStore(openTestDB(t))
	ctx := context.Background()

	// title is VARCHAR(200); 201 characters passes validation but not the column
	long := strings.Repeat("x", 201)

	if _, err := store.Create(ctx, long, nil); !errors.Is(err, utils.ErrStorage) {
		t.Fatalf("Create() oversized title error = %v, want ErrStorage", err)
	}
	todos, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("List() = %v, want nothing persisted by the failed create", todos)
	}

	kept, err := store.Create(ctx, "Buy milk", strPtr("semi-skimmed"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	done := true
	_, err = store.Update(ctx, kept.ID, models.TodoPatch{Title: &long, Completed: &done, HasDescription: true})
	if !errors.Is(err, utils.ErrStorage) {
		t.Fatalf("Update() oversized title error = %v, want ErrStorage", err)
	}

	got, err := store.Get(ctx, kept.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Buy milk" || got.Completed || got.Description == nil || *got.Description != "semi-skimmed" {
		t.Errorf("Get() = %+v, failed update should leave the row untouched", got)
	}
	if !got.UpdatedAt.Equal(kept.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v after a rolled back update", got.UpdatedAt, kept.UpdatedAt)
	}
}
