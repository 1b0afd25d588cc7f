package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexeygrigorev/my-daily-tasks/models"
	"github.com/alexeygrigorev/my-daily-tasks/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	return NewRouter(NewTodoHandler(services.NewTodoService()))
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		reader = &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(reader).Encode(body))
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var todo models.Todo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&todo))
	return todo
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestCreateTodoEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "Buy milk", "tags": []string{"groceries"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	todo := decodeTodo(t, rec)
	assert.NotEmpty(t, todo.ID)
	assert.Equal(t, "Buy milk", todo.Text)
	assert.False(t, todo.Completed)
	assert.Equal(t, []string{"groceries"}, todo.Tags)
	assert.Nil(t, todo.DueDate)
}

func TestCreateTodoEndpointValidation(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/todos", map[string]interface{}{"text": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, models.CodeValidationError, body.Error)
	require.NotNil(t, body.Details)
	assert.Equal(t, "text", body.Details.Field)
}

func TestCreateTodoEndpointBadDueDate(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "dated", "dueDate": "next tuesday"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, models.CodeValidationError, body.Error)
	require.NotNil(t, body.Details)
	assert.Equal(t, "dueDate", body.Details.Field)
}

func TestCreateTodoEndpointMalformedBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/todos", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.CodeValidationError, decodeErrorBody(t, rec).Error)
}

func TestGetTodosEndpointFilters(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "A", "dueDate": "2025-01-10T00:00:00Z", "tags": []string{"work"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "B", "dueDate": "2025-02-10T00:00:00Z", "tags": []string{"work", "urgent"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "C"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var todos []models.Todo

	rec = doJSON(t, router, http.MethodGet, "/api/todos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&todos))
	require.Len(t, todos, 3)
	assert.Equal(t, "C", todos[0].Text) // newest first

	rec = doJSON(t, router, http.MethodGet, "/api/todos?dueBefore=2025-01-15T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "A", todos[0].Text)

	rec = doJSON(t, router, http.MethodGet, "/api/todos?tags=work,urgent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&todos))
	require.Len(t, todos, 1)
	assert.Equal(t, "B", todos[0].Text)
}

func TestGetTodosEndpointBadDueBefore(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/todos?dueBefore=not-a-date", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, models.CodeValidationError, body.Error)
	require.NotNil(t, body.Details)
	assert.Equal(t, "dueBefore", body.Details.Field)
	assert.Equal(t, "Invalid date format. Expected ISO 8601 format.", body.Details.Reason)
}

func TestGetTodosEndpointEmpty(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/todos", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestUpdateTodoEndpoint(t *testing.T) {
	router := newTestRouter()

	created := decodeTodo(t, doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "original"}))

	rec := doJSON(t, router, http.MethodPatch, "/api/todos/"+created.ID,
		map[string]interface{}{"text": "changed", "completed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeTodo(t, rec)
	assert.Equal(t, "changed", updated.Text)
	assert.True(t, updated.Completed)
	assert.Equal(t, created.ID, updated.ID)
}

func TestUpdateTodoEndpointClearsDueDate(t *testing.T) {
	router := newTestRouter()

	created := decodeTodo(t, doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "dated", "dueDate": "2025-06-01T00:00:00Z"}))
	require.NotNil(t, created.DueDate)

	rec := doJSON(t, router, http.MethodPatch, "/api/todos/"+created.ID,
		map[string]interface{}{"dueDate": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeTodo(t, rec).DueDate)
}

func TestUpdateTodoEndpointRejections(t *testing.T) {
	router := newTestRouter()

	created := decodeTodo(t, doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "target"}))

	rec := doJSON(t, router, http.MethodPatch, "/api/todos/"+created.ID, map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "At least one field must be provided for update", decodeErrorBody(t, rec).Message)

	rec = doJSON(t, router, http.MethodPatch, "/api/todos/"+created.ID,
		map[string]interface{}{"priority": "high"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorBody(t, rec)
	require.NotNil(t, body.Details)
	assert.Equal(t, "priority", body.Details.Field)

	rec = doJSON(t, router, http.MethodPatch, "/api/todos/"+created.ID,
		map[string]interface{}{"completed": "yes"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/api/todos/unknown-id",
		map[string]interface{}{"text": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.CodeNotFound, decodeErrorBody(t, rec).Error)
}

func TestToggleTodoEndpoint(t *testing.T) {
	router := newTestRouter()

	created := decodeTodo(t, doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "toggle"}))

	rec := doJSON(t, router, http.MethodPost, "/api/todos/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeTodo(t, rec).Completed)

	rec = doJSON(t, router, http.MethodPost, "/api/todos/"+created.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeTodo(t, rec).Completed)

	rec = doJSON(t, router, http.MethodPost, "/api/todos/unknown-id/toggle", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Todo not found", decodeErrorBody(t, rec).Message)
}

func TestDeleteTodoEndpoint(t *testing.T) {
	router := newTestRouter()

	created := decodeTodo(t, doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "delete me"}))

	rec := doJSON(t, router, http.MethodDelete, "/api/todos/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doJSON(t, router, http.MethodDelete, "/api/todos/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health models.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.TodosCount)

	doJSON(t, router, http.MethodPost, "/api/todos", map[string]interface{}{"text": "one"})

	rec = doJSON(t, router, http.MethodGet, "/health", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, 1, health.TodosCount)
}

func TestDueDateRoundTrip(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/todos",
		map[string]interface{}{"text": "precise", "dueDate": "2025-04-05T06:07:08.123456789Z"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeTodo(t, rec)

	rec = doJSON(t, router, http.MethodGet, "/api/todos", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var todos []models.Todo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&todos))
	require.Len(t, todos, 1)
	require.NotNil(t, todos[0].DueDate)
	assert.True(t, todos[0].DueDate.Equal(*created.DueDate))
	assert.Equal(t, "2025-04-05T06:07:08.123456789Z", todos[0].DueDate.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"))
}
