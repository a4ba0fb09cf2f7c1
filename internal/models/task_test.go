package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
		want []string
	}{
		{"nil", nil, []string{}},
		{"empty", ptr(""), []string{}},
		{"list", ptr(`["work","urgent"]`), []string{"work", "urgent"}},
		{"malformed", ptr(`["work",`), []string{}},
		{"not a list", ptr(`{"a":1}`), []string{}},
		{"json null", ptr(`null`), []string{}},
		{"mixed types", ptr(`["work",1,null,"home"]`), []string{"work", "home"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategories(tt.raw))
		})
	}
}

func TestParseAttachments(t *testing.T) {
	assert.Equal(t, []any{}, ParseAttachments(nil))
	assert.Equal(t, []any{}, ParseAttachments(ptr("nope")))
	assert.Equal(t, []any{}, ParseAttachments(ptr("null")))
	assert.Equal(t,
		[]any{map[string]any{"name": "a.pdf", "path": "/tmp/a.pdf"}},
		ParseAttachments(ptr(`[{"name":"a.pdf","path":"/tmp/a.pdf"}]`)),
	)
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "tasks", Task{}.TableName())
	assert.Equal(t, "milestones", Milestone{}.TableName())
	assert.Equal(t, "status", Status{}.TableName())
	assert.Equal(t, "origin", Origin{}.TableName())
	assert.Equal(t, "users", User{}.TableName())
}
