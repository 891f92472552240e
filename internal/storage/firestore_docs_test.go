package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/agency-portal/internal/models"
)

func TestClientDoc_StringCreatedAt(t *testing.T) {
	// Shape written by the web front end.
	d := clientDoc{
		Name:        "Acme",
		Email:       "ops@acme.test",
		Role:        "CLIENT",
		AdAccountID: "act_123",
		CreatedAt:   "2024-03-05T14:30:00.000Z",
	}

	c, err := d.toModel("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.ID)
	assert.Equal(t, models.RoleClient, c.Role)
	assert.Equal(t, "act_123", c.AdAccountID)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), c.CreatedAt)
}

func TestClientDoc_TimestampCreatedAt(t *testing.T) {
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.FixedZone("BRT", -3*3600))
	c, err := clientDoc{Name: "Acme", Role: "CLIENT", CreatedAt: ts}.toModel("u1")
	require.NoError(t, err)
	assert.True(t, ts.Equal(c.CreatedAt))
	assert.Equal(t, time.UTC, c.CreatedAt.Location())
}

func TestClientDoc_MissingCreatedAt(t *testing.T) {
	c, err := clientDoc{Name: "Acme", Role: "CLIENT"}.toModel("u1")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.IsZero())

	c, err = clientDoc{Name: "Acme", Role: "CLIENT", CreatedAt: ""}.toModel("u1")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.IsZero())
}

func TestClientDoc_InvalidCreatedAt(t *testing.T) {
	_, err := clientDoc{Name: "Acme", CreatedAt: "yesterday"}.toModel("u1")
	assert.Error(t, err)

	_, err = clientDoc{Name: "Acme", CreatedAt: int64(1700000000)}.toModel("u1")
	assert.Error(t, err)
}

func TestClientDoc_WritesISOString(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	d := newClientDoc(&models.ClientAccount{ID: "u1", Name: "Acme", Role: models.RoleClient, CreatedAt: created})
	assert.Equal(t, "2024-03-05T14:30:00Z", d.CreatedAt)

	back, err := d.toModel("u1")
	require.NoError(t, err)
	assert.Equal(t, created, back.CreatedAt)

	assert.Nil(t, newClientDoc(&models.ClientAccount{ID: "u2", Name: "New"}).CreatedAt)
}

func TestTaskDoc_StatusLabels(t *testing.T) {
	tests := []struct {
		label  string
		status models.TaskStatus
	}{
		{"A Fazer", models.TaskStatusTodo},
		{"Em Progresso", models.TaskStatusInProgress},
		{"Revisão", models.TaskStatusReview},
		{"Concluído", models.TaskStatusDone},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.label, taskStatusToDoc(tt.status))
			assert.Equal(t, tt.status, taskStatusFromDoc(tt.label))
			// Backend codes written before the mapping still decode.
			assert.Equal(t, tt.status, taskStatusFromDoc(string(tt.status)))
		})
	}
}

func TestTaskDoc_RoundTripsFrontEndDocument(t *testing.T) {
	d := taskDoc{
		ClientID: "c1",
		Title:    "Criativos de maio",
		Assignee: "Ana",
		Status:   "Em Progresso",
		Priority: "High",
		DueDate:  "2024-05-10",
		Tags:     []string{"criativo"},
	}

	task := d.toModel("t1")
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	require.NoError(t, task.Validate())

	assert.Equal(t, d, newTaskDoc(task))
}
