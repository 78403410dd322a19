package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/sim"
)

func testResult(t *testing.T, steps int) *sim.Result {
	t.Helper()
	p := dynamo.Params{M1: 20, M2: 20, L1: 100, L2: 100, G: 9.8, Theta1: 90, Theta2: 90, Phi2: 180, TrailLength: 50}
	s := sim.New(p)
	s.AddMetric(&constMetric{})
	res, err := s.RunSteps(context.Background(), steps)
	require.NoError(t, err)
	return res
}

type constMetric struct{}

func (constMetric) Name() string                        { return "energy" }
func (constMetric) Observe(dynamo.State, dynamo.Params) {}
func (constMetric) Value() float64                      { return 1.5 }
func (constMetric) Reset()                              {}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	res := testResult(t, 30)
	runID, err := st.Save("horizontal", res)
	require.NoError(t, err)
	assert.Regexp(t, `^horizontal_[0-9a-f]{8}$`, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)

	assert.Equal(t, "horizontal", meta.Name)
	assert.Equal(t, 30, meta.Steps)
	assert.Equal(t, integrators.FixedDt, meta.Dt)
	assert.InDelta(t, 0.5, meta.Duration(), 1e-9)
	assert.Equal(t, 1.5, meta.Metrics["energy"])
	assert.Equal(t, res.Params, meta.Params.Params(res.Params.RunID))

	samples, err := st.LoadSamples(runID)
	require.NoError(t, err)
	require.Len(t, samples, 31)

	last := samples[30]
	assert.Equal(t, uint64(30), last.Step)
	assert.Equal(t, res.Final.P1, last.P1)
	assert.Equal(t, res.Final.P2, last.P2)
	assert.Equal(t, res.Samples, samples)
}

func TestStoreSaveKeepsNameInsideBaseDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "data")
	st := New(base)
	require.NoError(t, st.Init())

	for _, name := range []string{"../../escape", "a/b", `c\d`, "..", "  "} {
		id, err := st.Save(name, testResult(t, 1))
		require.NoError(t, err, name)
		assert.Equal(t, id, filepath.Base(id), name)
		assert.NotContains(t, id, "/", name)
		assert.NotContains(t, id, `\`, name)

		_, err = os.Stat(filepath.Join(base, id, metadataFile))
		assert.NoError(t, err, name)
	}

	entries, err := os.ReadDir(filepath.Dir(base))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data", entries[0].Name())
}

func TestSafeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"horizontal", "horizontal"},
		{"../../escape", "_.._escape"},
		{"a/b", "a_b"},
		{"..", "run"},
		{"", "run"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeName(tt.in), tt.in)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := st.Save("a", testResult(t, 1))
	require.NoError(t, err)
	second, err := st.Save("b", testResult(t, 1))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(st.baseDir, "stray.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "broken"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreRunNotFound(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("nope")
	assert.ErrorIs(t, err, dynamo.ErrRunNotFound)

	_, err = st.LoadSamples("nope")
	assert.ErrorIs(t, err, dynamo.ErrRunNotFound)
}

func TestLoadSamplesRejectsCorruptRows(t *testing.T) {
	st := New(t.TempDir())
	dir := filepath.Join(st.baseDir, "bad")
	require.NoError(t, os.MkdirAll(dir, 0755))

	data := "step,time,x1,y1,z1,x2,y2,z2\n0,0,1,2,3,4,5,oops\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, positionsFile), []byte(data), 0644))

	_, err := st.LoadSamples("bad")
	assert.Error(t, err)
}

func TestSampleRecord(t *testing.T) {
	rec := SampleRecord(sim.Sample{Step: 3, Time: 0.05, P1: dynamo.Vec3{X: 1}, P2: dynamo.Vec3{Z: -2}})

	assert.Equal(t, []string{"3", "0.05", "1", "0", "0", "0", "0", "-2"}, rec)
	assert.Len(t, Header(), len(rec))
}

func TestSampleRecordIsLossless(t *testing.T) {
	v := dynamo.Vec3{X: 1.0 / 3, Y: -2.718281828459045e-7, Z: 99.99999999999}
	rec := SampleRecord(sim.Sample{Step: 1, Time: integrators.FixedDt, P1: v, P2: v.Scale(-1)})

	got, err := strconv.ParseFloat(rec[2], 64)
	require.NoError(t, err)
	assert.Equal(t, v.X, got)
	got, err = strconv.ParseFloat(rec[4], 64)
	require.NoError(t, err)
	assert.Equal(t, v.Z, got)
	got, err = strconv.ParseFloat(rec[1], 64)
	require.NoError(t, err)
	assert.Equal(t, integrators.FixedDt, got)
}
