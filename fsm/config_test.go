package fsm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    Config
		wantErr error
	}{
		{
			name: "full",
			yaml: "name: robot\nmaxSteps: 100\ntracing: false\nmetrics: false\n",
			want: Config{Name: "robot", MaxSteps: 100},
		},
		{
			name: "defaults kept",
			yaml: "name: robot\n",
			want: Config{Name: "robot", Tracing: true, Metrics: true},
		},
		{
			name:    "missing name",
			yaml:    "maxSteps: 3\n",
			wantErr: ErrMachineNameRequired,
		},
		{
			name:    "negative max steps",
			yaml:    "name: robot\nmaxSteps: -1\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config, err := LoadConfigFromBytes([]byte(tt.yaml))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, config)
		})
	}
}

func TestLoadConfigFromBytesInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromBytes([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfigFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"machines/robot.yaml": &fstest.MapFile{Data: []byte("name: robot\nmaxSteps: 7\n")},
	}

	config, err := LoadConfigFromFS(fsys, "machines/robot.yaml")
	require.NoError(t, err)
	assert.Equal(t, "robot", config.Name)
	assert.Equal(t, int64(7), config.MaxSteps)

	_, err = LoadConfigFromFS(fsys, "machines/missing.yaml")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: counter\n"), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "counter", config.Name)
	assert.True(t, config.Tracing)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

//nolint:paralleltest // t.Setenv cannot be used with t.Parallel
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FSM_NAME", "from-env")
	t.Setenv("FSM_MAX_STEPS", "25")
	t.Setenv("FSM_METRICS", "false")

	config, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{Name: "from-env", MaxSteps: 25, Tracing: true}, config)
}

//nolint:paralleltest // t.Setenv cannot be used with t.Parallel
func TestLoadConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("FSM_NAME", "from-env")
	t.Setenv("FSM_MAX_STEPS", "many")

	_, err := LoadConfigFromEnv()
	require.Error(t, err)
}

func TestBuilderUsesConfig(t *testing.T) {
	t.Parallel()

	b := NewBuilder[scenarioData]("builder").WithConfig(Config{MaxSteps: 3})
	RegisterFunc(b, startRef, func(context.Context, *scenarioData) Outcome {
		return Continue()
	})

	machine, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "builder", machine.Name())
	assert.Equal(t, int64(3), machine.Config().MaxSteps)
	assert.False(t, machine.Config().Metrics)

	_, err = NewBuilder[scenarioData]("bad").WithMaxSteps(-1).Build()
	require.ErrorIs(t, err, ErrInvalidConfig)
}
