package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"todoapi/models"
	"todoapi/utils"

	"github.com/charmbracelet/log"
)

// TodoStore is the persistence gateway the handlers depend on.
// *utils.TodoStore implements it.
type TodoStore interface {
	List(ctx context.Context) ([]models.Todo, error)
	Get(ctx context.Context, id int64) (models.Todo, error)
	Create(ctx context.Context, title string, description *string) (models.Todo, error)
	Update(ctx context.Context, id int64, patch models.TodoPatch) (models.Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// ListTodos handles GET /api/todos.
func ListTodos(w http.ResponseWriter, r *http.Request, store TodoStore) {
	todos, err := store.List(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	count := len(todos)
	writeJSON(w, http.StatusOK, models.Response{Success: true, Count: &count, Data: todos})
}

// CreateTodo handles POST /api/todos. The title is checked before the store
// is touched.
func CreateTodo(w http.ResponseWriter, r *http.Request, store TodoStore) {
	fields, err := readObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	rawTitle, ok := fields["title"]
	title, err := optionalString(rawTitle, ok)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if title == nil || strings.TrimSpace(*title) == "" {
		writeError(w, http.StatusBadRequest, utils.MsgTitleRequired)
		return
	}

	rawDesc, ok := fields["description"]
	description, err := optionalString(rawDesc, ok)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	todo, err := store.Create(r.Context(), *title, description)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.Response{Success: true, Data: todo})
}

// GetTodo handles GET /api/todos/{id}.
func GetTodo(w http.ResponseWriter, r *http.Request, store TodoStore) {
	id, ok := todoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, MsgTodoNotFound)
		return
	}
	todo, err := store.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: todo})
}

// UpdateTodo handles PUT /api/todos/{id} as a partial update: only fields in
// the body change.
func UpdateTodo(w http.ResponseWriter, r *http.Request, store TodoStore) {
	id, ok := todoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, MsgTodoNotFound)
		return
	}

	fields, err := readObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	patch, err := parsePatch(fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		writeError(w, http.StatusBadRequest, utils.MsgTitleEmpty)
		return
	}
	if patch.Empty() {
		log.Debug("update with no fields, refreshing updated_at", "request_id", RequestID(r.Context()), "id", id)
	}

	todo, err := store.Update(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: todo})
}

// DeleteTodo handles DELETE /api/todos/{id}.
func DeleteTodo(w http.ResponseWriter, r *http.Request, store TodoStore) {
	id, ok := todoID(r)
	if !ok {
		writeError(w, http.StatusNotFound, MsgTodoNotFound)
		return
	}
	if err := store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Response{Success: true, Message: "Todo deleted successfully"})
}

func parsePatch(fields map[string]json.RawMessage) (models.TodoPatch, error) {
	var patch models.TodoPatch

	if raw, ok := fields["title"]; ok {
		// an explicit null title is an empty title
		title := ""
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &title); err != nil {
				return patch, errInvalidBody
			}
		}
		patch.Title = &title
	}

	if raw, ok := fields["description"]; ok {
		description, err := optionalString(raw, true)
		if err != nil {
			return patch, err
		}
		patch.Description = description
		patch.HasDescription = true
	}

	if raw, ok := fields["completed"]; ok {
		var completed bool
		if isNull(raw) {
			return patch, errInvalidBody
		}
		if err := json.Unmarshal(raw, &completed); err != nil {
			return patch, errInvalidBody
		}
		patch.Completed = &completed
	}

	return patch, nil
}
