package filexfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartGeneratesIDWhenAbsent(t *testing.T) {
	r := New(nil, nil)
	d := r.Start("", "level1.nw")
	assert.NotEmpty(t, d.ID)
	assert.True(t, r.Active(d.ID))
}

func TestLifecycleFinishesAndCallsOnFinish(t *testing.T) {
	var gotFilename string
	var gotContent []byte
	r := New(nil, func(filename string, content []byte) {
		gotFilename = filename
		gotContent = content
	})

	d := r.Start("dl-1", "level1.nw")
	r.SetSize("dl-1", 6)
	r.AppendRaw("dl-1", []byte("abc"))
	r.AppendRaw("dl-1", []byte("def"))
	r.Finish("dl-1")

	assert.Equal(t, "level1.nw", gotFilename)
	assert.Equal(t, []byte("abcdef"), gotContent)
	assert.False(t, r.Active(d.ID))
}

func TestFinishByFilename(t *testing.T) {
	var got string
	r := New(nil, func(filename string, content []byte) { got = filename })
	r.Start("dl-2", "onlinestartlocal.nw")
	r.Finish("onlinestartlocal.nw")
	assert.Equal(t, "onlinestartlocal.nw", got)
}

func TestHandleFileSmallFinishesImmediately(t *testing.T) {
	var got []byte
	r := New(nil, func(filename string, content []byte) { got = content })
	r.HandleFile("small.txt", []byte("hello"))
	assert.Equal(t, []byte("hello"), got)
}

func TestHandleFileLargeStartsSyntheticDownload(t *testing.T) {
	r := New(nil, nil)
	content := make([]byte, largeFileThreshold+1)
	r.HandleFile("bigfile.nw", content)

	id, ok := r.byName["bigfile.nw"]
	require.True(t, ok)
	assert.True(t, r.Active(id))
}

func TestHandleFileAppendsToMatchingActiveDownload(t *testing.T) {
	r := New(nil, nil)
	r.Start("dl-3", "chunked.nw")
	r.HandleFile("chunked.nw", []byte("part1"))
	r.HandleFile("chunked.nw", []byte("part2"))

	d := r.byID["dl-3"]
	assert.Equal(t, []byte("part1part2"), d.Accumulator)
}

func TestIdentifyLevelFile(t *testing.T) {
	payload := append([]byte("onlinestartlocal.nw"), []byte("GLEVNW01\nrest of level data")...)
	got := Identify(payload)
	assert.Equal(t, "onlinestartlocal.nw", got.Filename)
	assert.True(t, got.ContentValid)
}

func TestIdentifyStripsObfuscationPrefix(t *testing.T) {
	// "cuB" plus one garbage byte ('X') precede the real filename, per
	// the obfuscation pattern the heuristic strips.
	payload := append([]byte("cuBXonlinestartlocal.nw"), []byte("GLEVNW01data")...)
	got := Identify(payload)
	assert.Equal(t, "onlinestartlocal.nw", got.Filename)
}

func TestIdentifyUnknownPayloadIsInvalid(t *testing.T) {
	got := Identify([]byte("no extension markers here"))
	assert.False(t, got.ContentValid)
}
