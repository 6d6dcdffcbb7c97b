package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-d", "cache.db"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"sync", "--all", "-x=2"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash token is not a value",
			args:         []string{"-c", "--config=alt.json"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "--config=alt.json"},
		},
		{
			name:         "repeated flag preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/fieldsync.json"}, "/etc/fieldsync.json"},
		{"long with equals", []string{"--config=/tmp/a.json", "sync"}, "/tmp/a.json"},
		{"mixed with subcommand", []string{"import", "-d", "x.db", "-config", "b.json"}, "b.json"},
		{"last wins", []string{"-c", "1.json", "-config", "2.json"}, "2.json"},
		{"absent", []string{"list", "--all"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}

func TestJsonConfigFlags_UsesProcessArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"bin", "-c", "/path/short.json"}
	assert.Equal(t, "/path/short.json", JsonConfigFlags())
}

func TestEnvOr(t *testing.T) {
	t.Setenv("FIELDSYNC_TEST_ENV", "set")
	assert.Equal(t, "set", EnvOr("FIELDSYNC_TEST_ENV", "def"))
	assert.Equal(t, "def", EnvOr("FIELDSYNC_TEST_ENV_MISSING", "def"))
}
