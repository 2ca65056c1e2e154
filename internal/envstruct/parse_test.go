package envstruct_test

import (
	"github.com/myrjola/verdict/internal/envstruct"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

type serverConfig struct {
	Addr    string        `env:"ADDR" envDefault:"localhost:4000"`
	DBURL   string        `env:"DB_URL"`
	Workers int           `env:"WORKERS" envDefault:"4"`
	Debug   bool          `env:"DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
	Ignored string
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    serverConfig
		wantErr error
	}{
		{
			name: "defaults fill unset variables",
			env:  map[string]string{"DB_URL": ":memory:"},
			want: serverConfig{Addr: "localhost:4000", DBURL: ":memory:", Workers: 4, Timeout: time.Minute},
		},
		{
			name: "environment wins over defaults",
			env: map[string]string{
				"ADDR":    "localhost:0",
				"DB_URL":  "./verdict.sqlite",
				"WORKERS": "16",
				"DEBUG":   "true",
				"TIMEOUT": "1m30s",
				"Ignored": "never read",
			},
			want: serverConfig{
				Addr:    "localhost:0",
				DBURL:   "./verdict.sqlite",
				Workers: 16,
				Debug:   true,
				Timeout: 90 * time.Second,
			},
		},
		{
			name: "empty value counts as set",
			env:  map[string]string{"DB_URL": "", "ADDR": ""},
			want: serverConfig{DBURL: "", Workers: 4, Timeout: time.Minute},
		},
		{
			name:    "required variable missing",
			env:     map[string]string{},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name:    "malformed int",
			env:     map[string]string{"DB_URL": "x", "WORKERS": "many"},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "malformed bool",
			env:     map[string]string{"DB_URL": "x", "DEBUG": "sometimes"},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"DB_URL": "x", "TIMEOUT": "soon"},
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got serverConfig
			err := envstruct.Populate(&got, lookup(tt.env))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestPopulate_InvalidTargets(t *testing.T) {
	none := lookup(map[string]string{"ENV_VAR": "a,b"})
	tests := []struct {
		name string
		v    any
	}{
		{name: "nil", v: nil},
		{name: "not pointer", v: struct{}{}},
		{name: "pointer to non-struct", v: new(string)},
		{name: "unsupported field type", v: &struct {
			EnvVar []string `env:"ENV_VAR"`
		}{}},
		{name: "unexported field", v: &struct {
			envVar string `env:"ENV_VAR"` //nolint:unused // rejected before lookup
		}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, envstruct.Populate(tt.v, none), envstruct.ErrInvalidValue)
		})
	}
}

func TestPopulate_CollectsAllErrors(t *testing.T) {
	var cfg struct {
		A string `env:"A"`
		B int    `env:"B"`
	}
	err := envstruct.Populate(&cfg, lookup(map[string]string{"B": "two"}))
	require.ErrorIs(t, err, envstruct.ErrEnvNotSet)
	require.ErrorIs(t, err, envstruct.ErrInvalidValue)
}
