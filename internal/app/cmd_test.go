package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"no args", nil, CommandRPC},
		{"rpc", []string{"rpc"}, CommandRPC},
		{"user", []string{"user", "add"}, CommandUser},
		{"encrypt", []string{"encrypt", "-in", "a.db"}, CommandEncrypt},
		{"prune", []string{"prune"}, CommandPrune},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"unknown", []string{"serve"}, CommandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.args))
		})
	}
}
