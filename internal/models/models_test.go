package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "TODO", want: StatusTodo},
		{in: "to do", want: StatusTodo},
		{in: "in-progress", want: StatusInProgress},
		{in: "In Progress", want: StatusInProgress},
		{in: "done", want: StatusDone},
		{in: "blocked", want: StatusBlocked},
		{in: "archived", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusLabelAndActive(t *testing.T) {
	assert.Equal(t, "To Do", StatusTodo.Label())
	assert.Equal(t, "In Progress", StatusInProgress.Label())
	assert.Equal(t, "Done", StatusDone.Label())
	assert.Equal(t, "Blocked", StatusBlocked.Label())
	assert.True(t, StatusBlocked.Active())
	assert.False(t, StatusDone.Active())
	assert.False(t, Status("NOPE").Valid())
}

func TestTaskDecode_NestedRelations(t *testing.T) {
	body := `{
		"id": 7,
		"description": "Paint the fence",
		"due_date": null,
		"status": "IN_PROGRESS",
		"notes": null,
		"created_at": "2026-03-01T10:00:00Z",
		"updated_at": "2026-03-02T11:30:00.123456Z",
		"client": {"id": 3, "name": "Acme", "contact_email": null, "phone": "555", "notes": null, "created_at": "2026-01-01T00:00:00Z"},
		"assigned_worker": null
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(body), &task))
	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, "Paint the fence", task.Description.PlainText())
	assert.Equal(t, StatusInProgress, task.Status)
	assert.Equal(t, "Acme", task.ClientName())
	assert.Equal(t, "", task.WorkerName())
	assert.Equal(t, "-", task.DueDateLabel())
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Mar 4, 2026", FormatDate("2026-03-04"))
	assert.Equal(t, "-", FormatDate(""))
	assert.Equal(t, "someday", FormatDate("someday"))
}

func TestTaskPatch_MarshalOnlySetFields(t *testing.T) {
	done := StatusDone
	patch := TaskPatch{
		Status:   &done,
		ClientID: Null[int64](),
		DueDate:  Value("2026-05-01"),
	}

	data, err := json.Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"DONE","client_id":null,"due_date":"2026-05-01"}`, string(data))
	assert.False(t, patch.Empty())
	assert.True(t, TaskPatch{}.Empty())
}

func TestTaskInput_Marshal(t *testing.T) {
	in := TaskInput{
		Description: richtext.FromText("Call Acme"),
		Status:      StatusTodo,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":"Call Acme","due_date":null,"status":"TODO","client_id":null,"assigned_worker_id":null}`, string(data))
}

func TestTaskPatch_Decode(t *testing.T) {
	var patch TaskPatch
	require.NoError(t, json.Unmarshal([]byte(`{"client_id":null,"assigned_worker_id":3,"status":"BLOCKED"}`), &patch))

	assert.True(t, patch.ClientID.Set)
	assert.True(t, patch.ClientID.Null)
	assert.True(t, patch.AssignedWorkerID.Set)
	assert.Equal(t, int64(3), patch.AssignedWorkerID.Value)
	assert.False(t, patch.DueDate.Set)
	require.NotNil(t, patch.Status)
	assert.Equal(t, StatusBlocked, *patch.Status)
}
