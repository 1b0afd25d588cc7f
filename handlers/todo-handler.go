package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexeygrigorev/my-daily-tasks/logging"
	"github.com/alexeygrigorev/my-daily-tasks/models"
	"github.com/alexeygrigorev/my-daily-tasks/services"

	"github.com/gorilla/mux"
)

type TodoHandler struct {
	service *services.TodoService
}

func NewTodoHandler(service *services.TodoService) *TodoHandler {
	return &TodoHandler{service: service}
}

const isoDateReason = "Invalid date format. Expected ISO 8601 format."

// parseISOTime accepts a full RFC 3339 timestamp or a bare date.
func parseISOTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_ERROR, Description: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details *models.ErrorDetails) {
	writeJSON(w, status, models.ErrorResponse{Error: code, Message: message, Details: details})
}

// writeServiceError maps store failures onto the wire error body.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, models.ErrTodoNotFound):
		writeError(w, http.StatusNotFound, models.CodeNotFound, "Todo not found", nil)
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid request",
			&models.ErrorDetails{Field: validationErr.Field, Reason: validationErr.Reason})
	default:
		logging.Logger.Errorf("Event ID: INTERNAL_ERROR, Description: Unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, models.CodeInternalError, "Internal server error", nil)
	}
}

func (h *TodoHandler) GetTodos(w http.ResponseWriter, r *http.Request) {
	filter := &models.TodoFilter{}

	if dueBefore := r.URL.Query().Get("dueBefore"); dueBefore != "" {
		t, err := parseISOTime(dueBefore)
		if err != nil {
			writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid query parameters",
				&models.ErrorDetails{Field: "dueBefore", Reason: isoDateReason})
			return
		}
		filter.DueBefore = &t
	}

	if tags := r.URL.Query().Get("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	todos, err := h.service.GetTodos(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Text    string   `json:"text"`
	DueDate *string  `json:"dueDate"`
	Tags    []string `json:"tags"`
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid request body", nil)
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		t, err := parseISOTime(*req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid request body",
				&models.ErrorDetails{Field: "dueDate", Reason: isoDateReason})
			return
		}
		dueDate = &t
	}

	todo, err := h.service.CreateTodo(req.Text, dueDate, req.Tags)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TODO_CREATED, Description: Created todo %s", todo.ID)
	writeJSON(w, http.StatusCreated, todo)
}

// patchFields is the set of fields a PATCH body may carry; anything else is
// rejected, matching the create/update request contract.
var patchFields = map[string]struct{}{
	"text":      {},
	"completed": {},
	"dueDate":   {},
	"tags":      {},
}

func decodePatch(body map[string]json.RawMessage) (models.TodoPatch, *models.ErrorDetails) {
	var patch models.TodoPatch

	for field := range body {
		if _, ok := patchFields[field]; !ok {
			return patch, &models.ErrorDetails{Field: field, Reason: "unknown field"}
		}
	}

	if raw, ok := body["text"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return patch, &models.ErrorDetails{Field: "text", Reason: "must be a string"}
		}
		patch.Text = &text
	}
	if raw, ok := body["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil {
			return patch, &models.ErrorDetails{Field: "completed", Reason: "must be a boolean"}
		}
		patch.Completed = &completed
	}
	if raw, ok := body["dueDate"]; ok {
		patch.DueDateSet = true
		if string(raw) != "null" {
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				return patch, &models.ErrorDetails{Field: "dueDate", Reason: isoDateReason}
			}
			t, err := parseISOTime(value)
			if err != nil {
				return patch, &models.ErrorDetails{Field: "dueDate", Reason: isoDateReason}
			}
			patch.DueDate = &t
		}
	}
	if raw, ok := body["tags"]; ok {
		var tags []string
		if err := json.Unmarshal(raw, &tags); err != nil {
			return patch, &models.ErrorDetails{Field: "tags", Reason: "must be an array of strings"}
		}
		patch.Tags = &tags
	}

	return patch, nil
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid request body", nil)
		return
	}

	patch, details := decodePatch(body)
	if details != nil {
		writeError(w, http.StatusBadRequest, models.CodeValidationError, "Invalid request body", details)
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, models.CodeValidationError,
			"At least one field must be provided for update", nil)
		return
	}

	todo, err := h.service.UpdateTodo(id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	todo, err := h.service.ToggleTodo(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.service.DeleteTodo(id); err != nil {
		writeServiceError(w, err)
		return
	}

	logging.Logger.Infof("Event ID: TODO_DELETED, Description: Deleted todo %s", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:     "ok",
		TodosCount: h.service.Count(),
	})
}
