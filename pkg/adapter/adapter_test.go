//nolint:funlen // ok for tests
package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/f1viz-service-go/pkg/model"
)

func sampleRequest(kind model.DatasetKind) model.DataRequest {
	return model.DataRequest{
		Kind:    kind,
		Year:    2023,
		Track:   "Silverstone",
		Session: "Q",
		Step:    10,
	}
}

func stdoutRunner(out string) RunnerFunc {
	return func(_ context.Context, _ string, _ []string, stdout, _ io.Writer) error {
		_, err := io.WriteString(stdout, out)
		return err
	}
}

func TestArgs(t *testing.T) {
	req := sampleRequest(model.KindTrackMap)
	assert.Equal(t,
		[]string{"--year", "2023", "--track", "Silverstone", "--session", "Q"},
		Args(&req))

	req = sampleRequest(model.KindTelemetry)
	assert.Equal(t,
		[]string{"--year", "2023", "--track", "Silverstone", "--session", "Q", "--step", "10"},
		Args(&req))

	req.Driver = "VER"
	assert.Equal(t,
		[]string{
			"--year", "2023", "--track", "Silverstone", "--session", "Q",
			"--step", "10", "--driver", "VER",
		},
		Args(&req))
}

func TestFetchSuccess(t *testing.T) {
	var gotName string
	var gotArgs []string
	a := New(
		WithPython("python3"),
		WithScriptDir("/opt/fastf1"),
		WithRunner(RunnerFunc(func(
			_ context.Context, name string, args []string, stdout, stderr io.Writer,
		) error {
			gotName = name
			gotArgs = args
			_, _ = io.WriteString(stderr, "Loading FastF1 race results")
			_, err := io.WriteString(stdout, `{"title":"Results","data":[{"driver":"VER"}]}`)
			return err
		})))

	res, err := a.Fetch(context.Background(), sampleRequest(model.KindRaceResults))
	require.NoError(t, err)
	assert.Equal(t, "python3", gotName)
	assert.Equal(t, "/opt/fastf1/race_results.py", gotArgs[0])
	doc, ok := res.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Results", doc["title"])
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		req    model.DataRequest
		reason error
	}{
		{
			name: "non zero exit",
			opts: []Option{WithRunner(RunnerFunc(func(
				context.Context, string, []string, io.Writer, io.Writer,
			) error {
				return errors.New("exit status 1")
			}))},
			req:    sampleRequest(model.KindTelemetry),
			reason: ErrExit,
		},
		{
			name:   "invalid json",
			opts:   []Option{WithRunner(stdoutRunner("Traceback (most recent call last)"))},
			req:    sampleRequest(model.KindTelemetry),
			reason: ErrInvalidOutput,
		},
		{
			name:   "empty output",
			opts:   []Option{WithRunner(stdoutRunner("  \n"))},
			req:    sampleRequest(model.KindTelemetry),
			reason: ErrInvalidOutput,
		},
		{
			name: "output too large",
			opts: []Option{
				WithMaxOutput(16),
				WithRunner(stdoutRunner(`{"samples":[` + strings.Repeat(`{"x":1},`, 100) + `]}`)),
			},
			req:    sampleRequest(model.KindTelemetry),
			reason: ErrOutputTooLarge,
		},
		{
			name: "timeout",
			opts: []Option{
				WithTimeout(10 * time.Millisecond),
				WithRunner(RunnerFunc(func(
					ctx context.Context, _ string, _ []string, _, _ io.Writer,
				) error {
					<-ctx.Done()
					return ctx.Err()
				})),
			},
			req:    sampleRequest(model.KindTrackMap),
			reason: ErrTimeout,
		},
		{
			name: "no script",
			opts: []Option{
				WithScript(model.KindPitStrategy, ""),
				WithRunner(stdoutRunner(`{}`)),
			},
			req:    sampleRequest(model.KindPitStrategy),
			reason: ErrNoScript,
		},
		{
			name: "invalid request",
			opts: []Option{WithRunner(stdoutRunner(`{}`))},
			req: func() model.DataRequest {
				r := sampleRequest(model.KindTelemetry)
				r.Step = 0
				return r
			}(),
			reason: ErrInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.opts...)
			res, err := a.Fetch(context.Background(), tt.req)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)
			var af *AdapterFailure
			assert.ErrorAs(t, err, &af)
		})
	}
}

func TestScriptPath(t *testing.T) {
	a := New(WithScriptDir("scripts"), WithScript(model.KindPitStrategy, "/abs/strategy.py"))
	assert.Equal(t, filepath.Join("scripts", "telemetry.py"), a.ScriptPath(model.KindTelemetry))
	assert.Equal(t, "/abs/strategy.py", a.ScriptPath(model.KindPitStrategy))
}

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a posix shell")
	}
	dir := t.TempDir()
	writeScript(t, dir, "race_results.py", `echo "loading $2" >&2
echo '{"year": '"$2"', "data": []}'
`)
	writeScript(t, dir, "telemetry.py", "exit 3\n")
	writeScript(t, dir, "track_map.py", "exec sleep 5\n")

	a := New(WithPython("sh"), WithScriptDir(dir), WithTimeout(300*time.Millisecond))

	res, err := a.Fetch(context.Background(), sampleRequest(model.KindRaceResults))
	require.NoError(t, err)
	assert.EqualValues(t, 2023, res.(map[string]any)["year"])

	_, err = a.Fetch(context.Background(), sampleRequest(model.KindTelemetry))
	assert.ErrorIs(t, err, ErrExit)

	start := time.Now()
	_, err = a.Fetch(context.Background(), sampleRequest(model.KindTrackMap))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCappedBuffer(t *testing.T) {
	called := 0
	b := &cappedBuffer{limit: 4, onOverflow: func() { called++ }}
	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, _ = b.Write([]byte("cdef"))
	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "abcd", string(b.Bytes()))
	assert.True(t, b.overflow)
	assert.Equal(t, 1, called)
}
