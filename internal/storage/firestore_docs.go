package storage

import (
	"fmt"
	"time"

	"github.com/radiusdt/agency-portal/internal/models"
)

// The users and tasks collections are shared with the web front end, which
// writes createdAt as an ISO-8601 string and task statuses as board column
// labels. The document types below translate at the Firestore boundary.

type clientDoc struct {
	Name        string `firestore:"name"`
	Email       string `firestore:"email"`
	Role        string `firestore:"role"`
	CompanyName string `firestore:"companyName,omitempty"`
	AdAccountID string `firestore:"adAccountId,omitempty"`
	// string from the front end, timestamp from older backend writes
	CreatedAt any `firestore:"createdAt"`
}

func newClientDoc(c *models.ClientAccount) clientDoc {
	d := clientDoc{
		Name:        c.Name,
		Email:       c.Email,
		Role:        string(c.Role),
		CompanyName: c.CompanyName,
		AdAccountID: c.AdAccountID,
	}
	if !c.CreatedAt.IsZero() {
		d.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return d
}

func (d clientDoc) toModel(id string) (*models.ClientAccount, error) {
	createdAt, err := parseCreatedAt(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("client %s: %w", id, err)
	}
	return &models.ClientAccount{
		ID:          id,
		Name:        d.Name,
		Email:       d.Email,
		Role:        models.UserRole(d.Role),
		CompanyName: d.CompanyName,
		AdAccountID: d.AdAccountID,
		CreatedAt:   createdAt,
	}, nil
}

func parseCreatedAt(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid createdAt %q: %w", t, err)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported createdAt type %T", v)
	}
}

var taskStatusLabels = map[models.TaskStatus]string{
	models.TaskStatusTodo:       "A Fazer",
	models.TaskStatusInProgress: "Em Progresso",
	models.TaskStatusReview:     "Revisão",
	models.TaskStatusDone:       "Concluído",
}

// taskStatusToDoc returns the board label stored for status.
func taskStatusToDoc(status models.TaskStatus) string {
	if label, ok := taskStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// taskStatusFromDoc accepts board labels and backend status codes.
func taskStatusFromDoc(raw string) models.TaskStatus {
	for status, label := range taskStatusLabels {
		if raw == label {
			return status
		}
	}
	return models.TaskStatus(raw)
}

type taskDoc struct {
	ClientID string   `firestore:"clientId"`
	Title    string   `firestore:"title"`
	Assignee string   `firestore:"assignee"`
	Status   string   `firestore:"status"`
	Priority string   `firestore:"priority"`
	DueDate  string   `firestore:"dueDate"`
	Tags     []string `firestore:"tags"`
}

func newTaskDoc(t *models.Task) taskDoc {
	return taskDoc{
		ClientID: t.ClientID,
		Title:    t.Title,
		Assignee: t.Assignee,
		Status:   taskStatusToDoc(t.Status),
		Priority: string(t.Priority),
		DueDate:  t.DueDate,
		Tags:     t.Tags,
	}
}

func (d taskDoc) toModel(id string) *models.Task {
	return &models.Task{
		ID:       id,
		ClientID: d.ClientID,
		Title:    d.Title,
		Assignee: d.Assignee,
		Status:   taskStatusFromDoc(d.Status),
		Priority: models.TaskPriority(d.Priority),
		DueDate:  d.DueDate,
		Tags:     d.Tags,
	}
}
