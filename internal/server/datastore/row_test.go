package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Accessors(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := Row{
		"id":      int64(3),
		"small":   int32(4),
		"bytes":   []byte("12"),
		"name":    "ann",
		"raw":     []byte("raw"),
		"null":    nil,
		"created": ts,
		"textts":  "2024-05-01 10:00:00",
		"bad":     "yesterday",
	}

	n, err := r.Int64("id")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = r.Int64("small")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = r.Int64("bytes")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	_, err = r.Int64("null")
	assert.Error(t, err)

	assert.Equal(t, "ann", r.Text("name"))
	assert.Equal(t, "raw", r.Text("raw"))
	assert.Equal(t, "", r.Text("null"))
	assert.Equal(t, "", r.Text("missing"))

	got, err := r.Time("created")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	got, err = r.Time("textts")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	_, err = r.Time("bad")
	assert.Error(t, err)
}
