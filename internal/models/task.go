package models

import (
	"errors"
	"fmt"
)

type TaskStatus string

// Kanban pipeline stages, in board order.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "High"
	PriorityMedium TaskPriority = "Medium"
	PriorityLow    TaskPriority = "Low"
)

type Task struct {
	ID       string       `json:"id" firestore:"-"`
	ClientID string       `json:"client_id" firestore:"clientId"`
	Title    string       `json:"title" firestore:"title"`
	Assignee string       `json:"assignee" firestore:"assignee"`
	Status   TaskStatus   `json:"status" firestore:"status"`
	Priority TaskPriority `json:"priority" firestore:"priority"`
	DueDate  string       `json:"due_date" firestore:"dueDate"` // YYYY-MM-DD
	Tags     []string     `json:"tags" firestore:"tags"`
}

func (t *Task) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	switch t.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	return nil
}
