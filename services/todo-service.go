package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexeygrigorev/my-daily-tasks/models"

	"github.com/google/uuid"
)

// todoRecord pairs a todo with its insertion sequence number so that todos
// created at the same instant keep a stable relative order.
type todoRecord struct {
	todo models.Todo
	seq  uint64
}

type TodoService struct {
	mu    sync.RWMutex
	todos map[string]todoRecord
	seq   uint64
}

func NewTodoService() *TodoService {
	return &TodoService{
		todos: make(map[string]todoRecord),
	}
}

func validateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &models.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if len([]rune(trimmed)) > models.MaxTextLength {
		return "", &models.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("must be at most %d characters", models.MaxTextLength),
		}
	}
	return trimmed, nil
}

// normalizeTags drops empty entries and duplicates, keeping first occurrence
// so display order stays stable.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (s *TodoService) CreateTodo(text string, dueDate *time.Time, tags []string) (*models.Todo, error) {
	trimmed, err := validateText(text)
	if err != nil {
		return nil, err
	}

	todo := models.Todo{
		ID:        uuid.New().String(),
		Text:      trimmed,
		Completed: false,
		DueDate:   dueDate,
		Tags:      normalizeTags(tags),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.todos[todo.ID] = todoRecord{todo: todo, seq: s.seq}

	return &todo, nil
}

// GetTodos returns the matching todos newest first. A nil filter returns
// everything.
func (s *TodoService) GetTodos(filter *models.TodoFilter) ([]models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]todoRecord, 0, len(s.todos))
	for _, rec := range s.todos {
		if filter != nil && !matchesFilter(rec.todo, filter) {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].todo.CreatedAt.Equal(records[j].todo.CreatedAt) {
			return records[i].todo.CreatedAt.After(records[j].todo.CreatedAt)
		}
		return records[i].seq > records[j].seq
	})

	todos := make([]models.Todo, 0, len(records))
	for _, rec := range records {
		todos = append(todos, rec.todo)
	}
	return todos, nil
}

func matchesFilter(todo models.Todo, filter *models.TodoFilter) bool {
	if filter.DueBefore != nil {
		if todo.DueDate == nil || todo.DueDate.After(*filter.DueBefore) {
			return false
		}
	}
	for _, required := range filter.Tags {
		found := false
		for _, tag := range todo.Tags {
			if tag == required {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *TodoService) UpdateTodo(id string, patch models.TodoPatch) (*models.Todo, error) {
	var trimmed string
	if patch.Text != nil {
		var err error
		trimmed, err = validateText(*patch.Text)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.todos[id]
	if !ok {
		return nil, models.ErrTodoNotFound
	}

	if patch.Text != nil {
		rec.todo.Text = trimmed
	}
	if patch.Completed != nil {
		rec.todo.Completed = *patch.Completed
	}
	if patch.DueDateSet {
		rec.todo.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		rec.todo.Tags = normalizeTags(*patch.Tags)
	}

	s.todos[id] = rec
	return &rec.todo, nil
}

func (s *TodoService) ToggleTodo(id string) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.todos[id]
	if !ok {
		return nil, models.ErrTodoNotFound
	}

	rec.todo.Completed = !rec.todo.Completed
	s.todos[id] = rec
	return &rec.todo, nil
}

func (s *TodoService) DeleteTodo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return models.ErrTodoNotFound
	}
	delete(s.todos, id)
	return nil
}

// Count reports how many todos are currently stored.
func (s *TodoService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}
