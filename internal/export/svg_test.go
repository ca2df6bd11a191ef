package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/lander/internal/mission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records() []mission.Record {
	out := make([]mission.Record, 20)
	for i := range out {
		t := float64(i) * 0.1
		out[i] = mission.Record{
			Step:        i,
			Time:        t,
			Measurement: 100 - t*t,
			Height:      100 - t*t,
			EstHeight:   101 - t*t,
			EstGravity:  5,
			Thrust:      1,
		}
	}
	return out
}

func TestTrajectoryChartHeight(t *testing.T) {
	c, err := TrajectoryChart(records(), Height, 400, 300)
	require.NoError(t, err)
	require.Len(t, c.Series, 3)

	var buf bytes.Buffer
	require.NoError(t, c.WriteSVG(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Equal(t, 3, strings.Count(out, "<path"))
	assert.Contains(t, out, "estimated")
}

func TestTrajectoryChartUnknown(t *testing.T) {
	_, err := TrajectoryChart(records(), "altitude", 400, 300)
	assert.Error(t, err)
}

func TestWriteSVGBreaksOnNaN(t *testing.T) {
	c := &Chart{Width: 200, Height: 100, Series: []Series{{
		Name: "s",
		X:    []float64{0, 1, 2, 3},
		Y:    []float64{1, math.NaN(), 2, 3},
	}}}
	var buf bytes.Buffer
	require.NoError(t, c.WriteSVG(&buf))
	assert.Equal(t, 2, strings.Count(buf.String(), "M"))
}

func TestWriteSVGErrors(t *testing.T) {
	var buf bytes.Buffer
	empty := &Chart{Width: 200, Height: 100, Series: []Series{{Name: "s", X: []float64{0}, Y: []float64{math.NaN()}}}}
	assert.Error(t, empty.WriteSVG(&buf))

	mismatched := &Chart{Width: 200, Height: 100, Series: []Series{{Name: "s", X: []float64{0, 1}, Y: []float64{1}}}}
	assert.Error(t, mismatched.WriteSVG(&buf))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", escape("a <b> & c"))
}
