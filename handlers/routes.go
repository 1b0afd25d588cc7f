package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every todo route onto a fresh mux router.
func NewRouter(h *TodoHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/todos", h.GetTodos).Methods(http.MethodGet)
	r.HandleFunc("/api/todos", h.CreateTodo).Methods(http.MethodPost)
	r.HandleFunc("/api/todos/{id}", h.UpdateTodo).Methods(http.MethodPatch)
	r.HandleFunc("/api/todos/{id}", h.DeleteTodo).Methods(http.MethodDelete)
	r.HandleFunc("/api/todos/{id}/toggle", h.ToggleTodo).Methods(http.MethodPost)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}
