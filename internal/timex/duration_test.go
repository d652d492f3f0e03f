package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "15m", want: 15 * time.Minute},
		{in: "7d", want: 7 * Day},
		{in: "1d12h", want: 36 * time.Hour},
		{in: " 2h ", want: 2 * time.Hour},
		{in: "", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "1dxx", wantErr: true},
		{in: "-1d", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
		C Duration `json:"c"`
	}

	err := json.Unmarshal([]byte(`{"a":"15m","b":"7d","c":1000000000}`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.A.Duration)
	assert.Equal(t, 7*Day, cfg.B.Duration)
	assert.Equal(t, time.Second, cfg.C.Duration)
}

func TestDuration_UnmarshalJSON_Invalid(t *testing.T) {
	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"later"`), &d))
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2d")))
	assert.Equal(t, 48*time.Hour, d.Duration)

	assert.Error(t, d.UnmarshalText([]byte("later")))
}
