// Package client is the programmatic caller of the todos API. It owns wire
// conversion in both directions: RFC 3339 strings on the wire, time.Time in
// memory.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alexeygrigorev/my-daily-tasks/logging"
	"github.com/alexeygrigorev/my-daily-tasks/models"

	"github.com/sony/gobreaker"
)

const DefaultBaseURL = "http://localhost:3000"

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient builds a client for the todos API at baseURL. An empty baseURL
// falls back to TODOS_API_URL, then to the local server address.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TODOS_API_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "todos-api-cb",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
	}
}

// APIError is a non-2xx response decoded into the wire error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    *models.ErrorDetails
}

func (e *APIError) Error() string {
	return fmt.Sprintf("todos API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

// Is lets callers match a 404 with errors.Is(err, models.ErrTodoNotFound).
func (e *APIError) Is(target error) bool {
	return target == models.ErrTodoNotFound && e.StatusCode == http.StatusNotFound
}

// do sends one request through the circuit breaker. Only transport failures
// count against the breaker; an HTTP error status is a delivered response.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return nil, fmt.Errorf("error encoding request body: %v", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating request to todos-service: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("error sending request to todos-service: %v", err)
	}

	return resp.(*http.Response), nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: models.CodeInternalError, Message: "request failed"}

	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.Details = body.Details
	}
	return apiErr
}

// GetTodos lists todos, newest first; filter may be nil.
func (c *Client) GetTodos(ctx context.Context, filter *models.TodoFilter) ([]models.Todo, error) {
	path := "/api/todos"
	if filter != nil {
		query := url.Values{}
		if filter.DueBefore != nil {
			query.Set("dueBefore", filter.DueBefore.UTC().Format(time.RFC3339Nano))
		}
		if len(filter.Tags) > 0 {
			query.Set("tags", strings.Join(filter.Tags, ","))
		}
		if encoded := query.Encode(); encoded != "" {
			path += "?" + encoded
		}
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var todos []models.Todo
	if err := json.NewDecoder(resp.Body).Decode(&todos); err != nil {
		return nil, fmt.Errorf("failed to decode todos-service response: %v", err)
	}
	return todos, nil
}

type createTodoPayload struct {
	Text    string     `json:"text"`
	DueDate *time.Time `json:"dueDate,omitempty"`
	Tags    []string   `json:"tags,omitempty"`
}

func (c *Client) CreateTodo(ctx context.Context, text string, dueDate *time.Time, tags []string) (*models.Todo, error) {
	payload := createTodoPayload{Text: text, DueDate: dueDate, Tags: tags}

	resp, err := c.do(ctx, http.MethodPost, "/api/todos", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var todo models.Todo
	if err := json.NewDecoder(resp.Body).Decode(&todo); err != nil {
		return nil, fmt.Errorf("failed to decode todos-service response: %v", err)
	}
	return &todo, nil
}

// UpdateTodo applies a partial update. Fields left nil in the patch are not
// sent; a set-but-nil due date is sent as an explicit null to clear it.
func (c *Client) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	payload := make(map[string]interface{})
	if patch.Text != nil {
		payload["text"] = *patch.Text
	}
	if patch.Completed != nil {
		payload["completed"] = *patch.Completed
	}
	if patch.DueDateSet {
		if patch.DueDate != nil {
			payload["dueDate"] = patch.DueDate.Format(time.RFC3339Nano)
		} else {
			payload["dueDate"] = nil
		}
	}
	if patch.Tags != nil {
		payload["tags"] = *patch.Tags
	}

	resp, err := c.do(ctx, http.MethodPatch, "/api/todos/"+id, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var todo models.Todo
	if err := json.NewDecoder(resp.Body).Decode(&todo); err != nil {
		return nil, fmt.Errorf("failed to decode todos-service response: %v", err)
	}
	return &todo, nil
}

func (c *Client) ToggleTodo(ctx context.Context, id string) (*models.Todo, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/todos/"+id+"/toggle", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var todo models.Todo
	if err := json.NewDecoder(resp.Body).Decode(&todo); err != nil {
		return nil, fmt.Errorf("failed to decode todos-service response: %v", err)
	}
	return &todo, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/todos/"+id, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode todos-service response: %v", err)
	}
	return &health, nil
}
