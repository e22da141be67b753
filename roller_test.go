package rollogr_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/agentdiag/rollogr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a mutable fake clock. Mutating it between Write calls is safe
// because each Write blocks until the write loop handled the message.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// logFiles returns the names of the log files in a folder, sorted.
func logFiles(t *testing.T, folder string) []string {
	t.Helper()

	entries, err := os.ReadDir(folder)
	require.Nil(t, err)

	names := []string{}

	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names
}

// Writing fewer messages than MaxLines must produce exactly one file holding
// the messages in call order.
func TestWriteSingleFile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()

	roller, err := rollogr.New(&rollogr.Config{
		Folder:   folder,
		Prefix:   "agent",
		MaxLines: 10,
	})
	require.Nil(t, err)

	for _, msg := range []string{"one\n", "two\n", "three\n"} {
		size, err := roller.Write([]byte(msg))
		assert.Nil(err)
		assert.Equal(len(msg), size)
	}

	assert.Nil(roller.Close())

	files := logFiles(t, folder)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(folder, files[0]))
	require.Nil(t, err)
	assert.Equal("one\ntwo\nthree\n", string(data))
}

// Enough writes must trigger rotations, and retention must cap the folder at
// FileCount files, keeping the most recent ones.
func TestRotationAndRetention(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	clk := newClock()

	roller, err := rollogr.New(&rollogr.Config{
		Folder:    folder,
		Prefix:    "agent",
		MaxLines:  2,
		FileCount: 2,
		Now:       clk.Now,
		ProcessID: 42,
	})
	require.Nil(t, err)

	msgs := []string{"m1\n", "m2\n", "m3\n", "m4\n", "m5\n", "m6\n"}
	for _, msg := range msgs {
		clk.now = clk.now.Add(time.Second)
		_, err := roller.Write([]byte(msg))
		assert.Nil(err)
	}

	assert.Nil(roller.Close())

	files := logFiles(t, folder)
	require.Len(t, files, 2, "retention must cap the folder at FileCount files")
	assert.Equal("agent_42_2025-01-01T00_00_03Z_.log", files[0])
	assert.Equal("agent_42_2025-01-01T00_00_05Z_.log", files[1])

	data, err := os.ReadFile(filepath.Join(folder, files[0]))
	require.Nil(t, err)
	assert.Equal("m3\nm4\n", string(data))

	data, err = os.ReadFile(filepath.Join(folder, files[1]))
	require.Nil(t, err)
	assert.Equal("m5\nm6\n", string(data))
}

// A restart over a partially-filled file must resume appending to it instead
// of starting a new one, until the line threshold is hit.
func TestResumePartialFile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	existing := filepath.Join(folder, "agent_99_2024-12-31T00_00_00Z_.log")
	require.Nil(t, os.WriteFile(existing, []byte("one\ntwo\n"), 0o600))

	roller, err := rollogr.New(&rollogr.Config{
		Folder:   folder,
		Prefix:   "agent",
		MaxLines: 3,
	})
	require.Nil(t, err)

	_, err = roller.Write([]byte("three\n"))
	assert.Nil(err)

	files := logFiles(t, folder)
	require.Len(t, files, 1, "a partially-filled file must be appended to, not replaced")

	data, err := os.ReadFile(existing)
	require.Nil(t, err)
	assert.Equal("one\ntwo\nthree\n", string(data))

	// The adopted line count hit the threshold; the next write rolls over.
	_, err = roller.Write([]byte("four\n"))
	assert.Nil(err)
	assert.Nil(roller.Close())

	files = logFiles(t, folder)
	require.Len(t, files, 2)

	data, err = os.ReadFile(existing)
	require.Nil(t, err)
	assert.Equal("one\ntwo\nthree\n", string(data), "the full file must be left alone")
}

// A restart over a full file must start a new file on the first write, and
// the full file remains on disk.
func TestResumeFullFile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	existing := filepath.Join(folder, "agent_99_2024-12-31T00_00_00Z_.log")
	require.Nil(t, os.WriteFile(existing, []byte("a\nb\nc\n"), 0o600))

	roller, err := rollogr.New(&rollogr.Config{
		Folder:   folder,
		Prefix:   "agent",
		MaxLines: 3,
	})
	require.Nil(t, err)

	_, err = roller.Write([]byte("d\n"))
	assert.Nil(err)
	assert.Nil(roller.Close())

	files := logFiles(t, folder)
	require.Len(t, files, 2)

	data, err := os.ReadFile(existing)
	require.Nil(t, err)
	assert.Equal("a\nb\nc\n", string(data))
}

// Two rotations within the same wall-clock second collide on the file name
// and silently merge into one file. In different seconds they never collide.
// This is the documented limitation, asserted exactly.
func TestSameSecondCollision(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	clk := newClock()

	roller, err := rollogr.New(&rollogr.Config{
		Folder:    folder,
		Prefix:    "agent",
		MaxLines:  1,
		FileCount: 5,
		Now:       clk.Now,
		ProcessID: 7,
	})
	require.Nil(t, err)

	_, err = roller.Write([]byte("a\n"))
	assert.Nil(err)
	_, err = roller.Write([]byte("b\n")) // rotates, same second: merges.
	assert.Nil(err)

	files := logFiles(t, folder)
	require.Len(t, files, 1, "same-second rotation must merge into the first file")

	data, err := os.ReadFile(filepath.Join(folder, files[0]))
	require.Nil(t, err)
	assert.Equal("a\nb\n", string(data))

	clk.now = clk.now.Add(time.Second)
	_, err = roller.Write([]byte("c\n")) // rotates, new second: new file.
	assert.Nil(err)
	assert.Nil(roller.Close())

	files = logFiles(t, folder)
	require.Len(t, files, 2, "rotations in different seconds must not collide")
	assert.NotEqual(files[0], files[1])
}

// A compressed archive left as the newest file must never become the active
// file: appending plain text to it would corrupt it. The first write starts
// a fresh log file and the archive stays byte-identical.
func TestBootstrapSkipsCompressedFile(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	archive := filepath.Join(folder, "agent_99_2024-12-31T00_00_00Z_.log.gz")
	payload := []byte{0x1f, 0x8b, 0x08, 0x00, 0x01, 0x02, 0x03, 0x04}
	require.Nil(t, os.WriteFile(archive, payload, 0o600))

	roller, err := rollogr.New(&rollogr.Config{
		Folder:   folder,
		Prefix:   "agent",
		MaxLines: 5,
	})
	require.Nil(t, err)

	_, err = roller.Write([]byte("fresh\n"))
	assert.Nil(err)
	assert.Nil(roller.Close())

	files := logFiles(t, folder)
	require.Len(t, files, 2, "the write must go to a fresh file, not the archive")

	data, err := os.ReadFile(archive)
	require.Nil(t, err)
	assert.Equal(payload, data, "the archive must stay byte-identical")
}

// Excess files left behind by a previous run are trimmed at construction.
func TestBootstrapRetention(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()

	for i, name := range []string{
		"agent_99_2024-12-31T00_00_01Z_.log",
		"agent_99_2024-12-31T00_00_02Z_.log",
		"agent_99_2024-12-31T00_00_03Z_.log",
		"agent_99_2024-12-31T00_00_04Z_.log",
	} {
		path := filepath.Join(folder, name)
		require.Nil(t, os.WriteFile(path, []byte("x\n"), 0o600))

		when := time.Date(2024, 12, 31, 0, 0, i+1, 0, time.UTC)
		require.Nil(t, os.Chtimes(path, when, when))
	}

	roller, err := rollogr.New(&rollogr.Config{
		Folder:    folder,
		Prefix:    "agent",
		MaxLines:  1,
		FileCount: 2,
	})
	require.Nil(t, err)

	files := logFiles(t, folder)
	require.Len(t, files, 2, "bootstrap must trim the queue to FileCount")
	assert.Equal("agent_99_2024-12-31T00_00_03Z_.log", files[0])
	assert.Equal("agent_99_2024-12-31T00_00_04Z_.log", files[1])

	assert.Nil(roller.Close())
}

// WriteError shares the stream with Write. Close is idempotent.
func TestWriteErrorAndClose(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()

	roller, err := rollogr.New(&rollogr.Config{Folder: folder, Prefix: "agent", MaxLines: 10})
	require.Nil(t, err)

	_, err = roller.Write([]byte("normal\n"))
	assert.Nil(err)
	_, err = roller.WriteError([]byte("broken\n"))
	assert.Nil(err)

	files := logFiles(t, folder)
	require.Len(t, files, 1, "errors and normal messages share one stream")

	data, err := os.ReadFile(filepath.Join(folder, files[0]))
	require.Nil(t, err)
	assert.Equal("normal\nbroken\n", string(data))

	assert.Nil(roller.Close())
	assert.Nil(roller.Close(), "Close must be idempotent")
}

// The post-rotate hook fires once per rotated-out file, with its path.
func TestPostRotateHook(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	clk := newClock()
	rotated := []string{}

	roller, err := rollogr.New(&rollogr.Config{
		Folder:     folder,
		Prefix:     "agent",
		MaxLines:   1,
		FileCount:  5,
		Now:        clk.Now,
		ProcessID:  7,
		PostRotate: func(fileName string) { rotated = append(rotated, fileName) },
	})
	require.Nil(t, err)

	for _, msg := range []string{"a\n", "b\n", "c\n"} {
		clk.now = clk.now.Add(time.Second)
		_, err := roller.Write([]byte(msg))
		assert.Nil(err)
	}

	assert.Nil(roller.Close())
	require.Len(t, rotated, 2)
	assert.Equal(filepath.Join(folder, "agent_7_2025-01-01T00_00_01Z_.log"), rotated[0])
	assert.Equal(filepath.Join(folder, "agent_7_2025-01-01T00_00_02Z_.log"), rotated[1])
}

// A forced Rotate starts a fresh file on the next write.
func TestForcedRotate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	folder := t.TempDir()
	clk := newClock()

	roller, err := rollogr.New(&rollogr.Config{
		Folder:    folder,
		Prefix:    "agent",
		MaxLines:  100,
		Now:       clk.Now,
		ProcessID: 7,
	})
	require.Nil(t, err)

	_, err = roller.Write([]byte("before\n"))
	assert.Nil(err)
	assert.Nil(roller.Rotate())

	clk.now = clk.now.Add(time.Second)
	_, err = roller.Write([]byte("after\n"))
	assert.Nil(err)
	assert.Nil(roller.Close())

	files := logFiles(t, folder)
	require.Len(t, files, 2)
}
