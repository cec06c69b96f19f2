// pkg/registry/registry_test.go
package registry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(id, taskType string) Activity {
	return Activity{ID: id, DisplayName: id, Category: "estimate", TaskType: taskType}
}

func with(a Activity, mutate func(*Activity)) Activity {
	mutate(&a)
	return a
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "1.0.0"}
	require.NoError(t, reg.Add(activity("generate-estimate", "generate-estimate"), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T00:00:00Z", loaded.LastUpdated)
	require.Len(t, loaded.Activities, 1)

	a, ok := loaded.Find("generate-estimate")
	require.True(t, ok)
	assert.Equal(t, "estimate", a.Category)
}

func TestAddRejectsDuplicates(t *testing.T) {
	reg := &ActivityRegistry{}
	require.NoError(t, reg.Add(activity("a", "task-a"), time.Now()))

	assert.Error(t, reg.Add(activity("a", "task-b"), time.Now()))
	assert.Error(t, reg.Add(activity("b", "task-a"), time.Now()))
	assert.Len(t, reg.Activities, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		activities []Activity
		wantErr    string
	}{
		{"valid", []Activity{activity("a", "task-a"), activity("b", "task-b")}, ""},
		{"empty", nil, "no activities"},
		{"missing id", []Activity{activity("", "task-a")}, "ID"},
		{"missing category", []Activity{{ID: "a", DisplayName: "A", TaskType: "task-a"}}, "Category"},
		{"duplicate id", []Activity{activity("a", "task-a"), activity("a", "task-b")}, "duplicate activity ID"},
		{"duplicate task type", []Activity{activity("a", "task-a"), activity("b", "task-a")}, "duplicate task type"},
		{"unknown category", []Activity{with(activity("a", "task-a"), func(a *Activity) { a.Category = "franchise" })}, "unknown category"},
		{"unknown status", []Activity{with(activity("a", "task-a"), func(a *Activity) { a.ImplementationStatus = "done" })}, "unknown implementation status"},
		{"bad timeout", []Activity{with(activity("a", "task-a"), func(a *Activity) { a.Timeout = "15 seconds" })}, "invalid timeout"},
		{"negative retries", []Activity{with(activity("a", "task-a"), func(a *Activity) { a.Retries = -1 })}, "negative retries"},
		{"unknown error code", []Activity{with(activity("a", "task-a"), func(a *Activity) { a.ErrorCodes = []string{"PAYMENT_DECLINED"} })}, "unknown error code"},
		{"broken input schema", []Activity{with(activity("a", "task-a"), func(a *Activity) {
			a.InputSchema = map[string]interface{}{"type": 12}
		})}, "input schema"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ActivityRegistry{Activities: tt.activities}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUndeclared(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{activity("a", "task-a")}}
	assert.Equal(t, []string{"task-b", "task-c"}, reg.Undeclared([]string{"task-c", "task-a", "task-b"}))
	assert.Empty(t, reg.Undeclared([]string{"task-a"}))
}

func TestDeclaredRegistryFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())
	assert.Empty(t, reg.Undeclared([]string{
		"generate-estimate",
		"submit-to-expert",
		"respond-to-estimate",
		"update-estimate-status",
		"edit-estimate-item",
		"link-session-identity",
		"publish-session-event",
	}))
}

func TestActivityTimeoutAndRequiredInputs(t *testing.T) {
	a := Activity{
		ID:      "respond-to-estimate",
		Timeout: "15s",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"sessionId", "response"},
		},
	}
	d, err := a.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)
	assert.Equal(t, []string{"sessionId", "response"}, a.RequiredInputs())

	d, err = Activity{}.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Empty(t, Activity{}.RequiredInputs())
}

func TestDeclaredVariableShapes(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", DefaultPath))
	require.NoError(t, err)

	tests := []struct {
		taskType string
		vars     map[string]interface{}
		wantErr  bool
	}{
		{"generate-estimate", map[string]interface{}{"sessionId": "s-1"}, false},
		{"generate-estimate", map[string]interface{}{}, true},
		{"respond-to-estimate", map[string]interface{}{"sessionId": "s-1", "response": "revision", "revisionDetails": "add a day"}, false},
		{"respond-to-estimate", map[string]interface{}{"sessionId": "s-1", "response": "maybe"}, true},
		{"update-estimate-status", map[string]interface{}{"estimateId": "e-1", "action": "send"}, false},
		{"update-estimate-status", map[string]interface{}{"estimateId": "e-1", "action": "archive"}, true},
		{"edit-estimate-item", map[string]interface{}{"estimateId": "e-1", "itemId": "i-1", "operation": "resolve", "catalogId": 101}, false},
		{"edit-estimate-item", map[string]interface{}{"estimateId": "e-1", "itemId": "i-1", "operation": "resolve", "catalogId": "101"}, true},
		{"link-session-identity", map[string]interface{}{"sessionId": "s-1", "accessToken": "tok"}, false},
		{"publish-session-event", map[string]interface{}{"sessionId": "s-1", "eventType": "estimate.generated", "payload": map[string]interface{}{"estimateId": "e-1"}}, false},
		{"publish-session-event", map[string]interface{}{"sessionId": "s-1"}, true},
	}
	for _, tt := range tests {
		a, ok := reg.Find(tt.taskType)
		require.True(t, ok, tt.taskType)
		err := a.CheckInput(tt.vars)
		if tt.wantErr {
			assert.Error(t, err, "%s %v", tt.taskType, tt.vars)
		} else {
			assert.NoError(t, err, "%s %v", tt.taskType, tt.vars)
		}
	}

	gen, _ := reg.Find("generate-estimate")
	assert.NoError(t, gen.CheckOutput(map[string]interface{}{
		"estimateId":       "e-1",
		"generationSource": "placeholder-fallback",
		"hasPlaceholders":  true,
		"itemCount":        3,
		"confidenceScore":  15,
	}))
	assert.Error(t, gen.CheckOutput(map[string]interface{}{"generationSource": "fallback"}))
}
