package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-a", ":3000"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-a", ":3000"},
			allowed: []string{"--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "bare flag at end",
			args:    []string{"-s"},
			allowed: []string{"-s"},
			want:    []string{"-s"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-a", ":8080", "-s", "secret", "-other", "x", "-g", ":50051"},
			allowed: []string{"-a", "-s", "-g"},
			want:    []string{"-a", ":8080", "-s", "secret", "-g", ":50051"},
		},
		{
			name:    "empty",
			args:    []string{},
			allowed: []string{"-a"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short", func(t *testing.T) {
		os.Args = []string{"bin", "-a", ":3000", "-c", "/etc/gophauth.json"}
		assert.Equal(t, "/etc/gophauth.json", ConfigFilePath())
	})

	t.Run("long with equals", func(t *testing.T) {
		os.Args = []string{"bin", "--config=/tmp/cfg.json"}
		assert.Equal(t, "/tmp/cfg.json", ConfigFilePath())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"bin", "-s", "secret"}
		assert.Empty(t, ConfigFilePath())
	})

	t.Run("last wins", func(t *testing.T) {
		os.Args = []string{"bin", "-c", "one.json", "-config", "two.json"}
		assert.Equal(t, "two.json", ConfigFilePath())
	})
}
