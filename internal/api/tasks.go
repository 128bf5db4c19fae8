package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/pagination"
)

// TaskFilter narrows ListTasks. Zero fields are not sent.
type TaskFilter struct {
	Status   TaskStatus
	Category string
}

// CreateTaskInput is the new-task form. Budgets are whole currency units.
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Location    string     `json:"location,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	BudgetMin   *int64     `json:"budget_min,omitempty"`
	BudgetMax   *int64     `json:"budget_max,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Validate checks the form before it is sent.
func (in CreateTaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.Validation("title", "Give the task a title.")
	}
	if in.BudgetMin != nil && *in.BudgetMin < 0 {
		return apperrors.Validation("budget_min", "Budget cannot be negative.")
	}
	if in.BudgetMin != nil && in.BudgetMax != nil && *in.BudgetMax < *in.BudgetMin {
		return apperrors.Validation("budget_max", "Maximum budget must be at least the minimum.")
	}
	return nil
}

// UpdateTaskInput patches a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Location    *string `json:"location,omitempty"`
	BudgetMin   *int64  `json:"budget_min,omitempty"`
	BudgetMax   *int64  `json:"budget_max,omitempty"`
}

// ListTasks returns one page of tasks.
func (c *Client) ListTasks(ctx context.Context, page pagination.Request, filter TaskFilter) (pagination.Page[Task], error) {
	extra := url.Values{}
	if filter.Status != "" {
		extra.Set("status", string(filter.Status))
	}
	if filter.Category != "" {
		extra.Set("category", filter.Category)
	}
	return getPage[Task](ctx, c, "list tasks", "/api/tasks", page, extra)
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	seg, err := pathID("task_id", id)
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := c.getObject(ctx, "get task", "/api/tasks/"+seg, nil, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// CreateTask posts a new task.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	if err := in.Validate(); err != nil {
		return Task{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	resp, err := c.do(ctx, "create task", http.MethodPost, "/api/tasks", nil, in)
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := decodeObject("create task", resp, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in UpdateTaskInput) (Task, error) {
	seg, err := pathID("task_id", id)
	if err != nil {
		return Task{}, err
	}
	resp, err := c.do(ctx, "update task", http.MethodPatch, "/api/tasks/"+seg, nil, in)
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := decodeObject("update task", resp, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateTaskStatus moves a task to status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error {
	seg, err := pathID("task_id", id)
	if err != nil {
		return err
	}
	if status == "" {
		return apperrors.Validation("status", "This field is required.")
	}
	_, err = c.do(ctx, "update task status", http.MethodPost, "/api/tasks/"+seg+"/status",
		url.Values{"status": {string(status)}}, nil)
	return err
}

// MarkTaskDone is the tasker's completion signal.
func (c *Client) MarkTaskDone(ctx context.Context, id string) error {
	seg, err := pathID("task_id", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "mark task done", http.MethodPost, "/api/tasks/"+seg+"/mark-done", nil, nil)
	return err
}

// ConfirmTaskReceived is the client's acceptance; it releases escrow.
func (c *Client) ConfirmTaskReceived(ctx context.Context, id string) error {
	seg, err := pathID("task_id", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "confirm task received", http.MethodPost, "/api/tasks/"+seg+"/confirm-received", nil, nil)
	return err
}
