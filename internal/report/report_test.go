package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafaro/afqn"
)

func TestPrefix(t *testing.T) {
	assert.Equal(t, "Unif", Prefix("Uniform"))
	assert.Equal(t, "norm", Prefix("data/normal-1M.txt"))
	assert.Equal(t, "ab", Prefix("ab"))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "Unif-Outlier-1001-2002.csv", OutlierPath("Unif", 1001, 2002))
	assert.Equal(t, "Unif-Inlier-1001-2002.csv", InlierPath("Unif", 1001, 2002))
	assert.Equal(t, "Unif-ExactOutlier-1001-2002.csv", ExactOutlierPath("Unif", 1001, 2002))
	assert.Equal(t, "Unif-ExactInlier-1001-2002.csv", ExactInlierPath("Unif", 1001, 2002))
	assert.Equal(t, "Quantiles-Unif-1001-2.csv", QuantilesPath("Unif", 1001, 2))
}

func TestResultWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewResultWriter(path)
	require.NoError(t, err)

	v := &afqn.Verdict{
		Sample: afqn.Sample{Seq: 42, Value: 7.5, Median: 5, Alpha: 0.001, Collapses: 1, Bins: 12},
		Qn:     1.25,
		Score:  0.75,
	}
	require.NoError(t, w.Write(v))
	assert.Equal(t, int64(1), w.Count())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "seqNo,item,median,qn,zscore,collapses,bins,alpha", lines[0])
	assert.Equal(t, "42,7.500000,5.000000,1.250000,0.750000,1,12,0.001000", lines[1])
}

func TestExactWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact.csv")
	w, err := NewExactWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(&ExactRow{Seq: 1, Value: 2, ExactKth: 3, Qn: 6.6657}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "seqNo,item,median,kth"))
	assert.Contains(t, lines[1], "6.665700")
}

func TestQuantileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantiles.csv")
	w, err := NewQuantileWriter(path)
	require.NoError(t, err)

	exact := [5]float64{1, 2, 3, 4, 5}
	approx := [5]float64{1, 2.1, 3, 4, 5}
	digest := [5]float64{1, 2, 3, 4, 5.2}
	require.NoError(t, w.Write(55, 10, 2, exact, approx, digest, [5]int{0, 13, 27, 41, 54}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "55,10,2,"))
	assert.Contains(t, lines[1], "0.050000") // relative error of Q1
}
