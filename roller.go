package rollogr

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentdiag/rollogr/filer"
)

// These are the default file and directory POSIX modes.
// The folder is created group-writable so a sweeper running under the same
// group may clean it up.
const (
	FileMode os.FileMode = 0o600
	DirMode  os.FileMode = 0o775
)

// Defaults used when Config struct members are omitted.
const (
	DefaultMaxLines  = 5000
	DefaultFileCount = 10
)

// File name extensions this package knows about.
const (
	LogExt = ".log"
	GZext  = ".gz"
)

// Config is the data needed to create a new Roller.
type Config struct {
	Folder     string                // Folder where log files are written. Set this, the default is lousy.
	Prefix     string                // File name prefix for every log file.
	MaxLines   int                   // Write calls per file before rolling over to a new file.
	FileCount  int                   // Maximum number of log files kept on disk.
	FileMode   os.FileMode           // POSIX mode for new log files.
	DirMode    os.FileMode           // POSIX mode for new folders.
	PostRotate func(fileName string) // Optional hook called with each rotated-out file.
	Filer      filer.Filer           // Overridable file system procedures.
	// Mockable clock and identity used in file names. Setting these is very optional.
	Now       func() time.Time
	ProcessID int
}

// Roller is what you get in return for providing a Config. Use this to set log
// output. You must obtain a Roller by calling New().
type Roller struct {
	config      *Config       // incoming configuration.
	log         chan []byte   // incoming log messages passed across go routines.
	resp        chan *resp    // response sent back across go routines.
	signal      chan struct{} // used for Rotate and Close ops.
	queue       []string      // historical file paths, oldest first; the tail is the active file.
	lines       int           // write calls against the active open file.
	File        *os.File      // The active open file. Useful for direct writing.
	filer.Filer               // overridable file system procedures.
	mu          sync.Mutex    // guards closed.
	closed      bool          // set once Close() ran.
}

// resp is used to send responses back across our go routines.
type resp struct {
	size int
	err  error
}

// New takes in your configuration and returns a Roller you can use with
// log.SetOutput(). The provided writer handles rolling over to a new file
// after MaxLines writes and deletes the oldest file once more than FileCount
// files exist. If the newest matching file in Folder is not yet full, it is
// picked up and appended to, so a process restart does not discard a
// partially-filled file.
func New(config *Config) (*Roller, error) {
	roller := &Roller{config: config, Filer: config.Filer}
	if roller.Filer == nil {
		roller.Filer = filer.Default()
	}

	if err := roller.initialize(); err != nil {
		return nil, err
	}

	return roller, nil
}

// initialize runs all the startup routines.
func (r *Roller) initialize() error {
	r.setConfigDefaults()

	err := r.MkdirAll(r.config.Folder, r.config.DirMode)
	if err != nil {
		return fmt.Errorf("making log folder: %w", err)
	}

	if err := r.bootstrapQueue(); err != nil {
		return err
	}

	r.log = make(chan []byte)
	r.resp = make(chan *resp)
	r.signal = make(chan struct{})

	go r.processLogChannel()

	return nil
}

// setConfigDefaults does exactly what it says. Sets missing values.
func (r *Roller) setConfigDefaults() {
	if r.config.Folder == "" {
		r.config.Folder = os.TempDir()
	}

	if r.config.Prefix == "" {
		r.config.Prefix = filepath.Base(os.Args[0])
	}

	if r.config.MaxLines < 1 {
		r.config.MaxLines = DefaultMaxLines
	}

	if r.config.FileCount < 1 {
		r.config.FileCount = DefaultFileCount
	}

	if r.config.FileMode == 0 {
		r.config.FileMode = FileMode
	}

	if r.config.DirMode == 0 {
		r.config.DirMode = DirMode
	}

	if r.config.Now == nil {
		r.config.Now = time.Now
	}

	if r.config.ProcessID == 0 {
		r.config.ProcessID = os.Getpid()
	}
}

// bootstrapQueue lists the log folder and rebuilds the retention queue from
// files left behind by a previous run. If the newest file is not yet full,
// it is reopened for appending and its line count adopted. The queue never
// holds more than FileCount files, so excess leftovers are deleted here.
func (r *Roller) bootstrapQueue() error {
	entries, err := r.ReadDir(r.config.Folder)
	if err != nil {
		return fmt.Errorf("listing log folder: %w", err)
	}

	type fileTime struct {
		path string
		mod  time.Time
	}

	found := []fileTime{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), r.config.Prefix) {
			continue // not our file.
		}

		info, err := entry.Info()
		if err != nil {
			continue // vanished between list and stat.
		}

		found = append(found, fileTime{filepath.Join(r.config.Folder, entry.Name()), info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mod.Before(found[j].mod) })

	for _, file := range found {
		r.queue = append(r.queue, file.path)
	}

	if len(r.queue) == 0 {
		return nil
	}

	newest := r.queue[len(r.queue)-1]
	if strings.HasSuffix(newest, GZext) {
		// A compressed archive counts for retention, but appending plain
		// text to it would corrupt it. The first write starts a fresh file.
		return r.enforceRetention()
	}

	data, err := r.ReadFile(newest)
	if err != nil {
		return fmt.Errorf("reading newest log file: %w", err)
	}

	if lines := countLines(data); lines < r.config.MaxLines {
		r.File, err = r.OpenFile(newest, os.O_WRONLY|os.O_APPEND, r.config.FileMode)
		if err != nil {
			return fmt.Errorf("reopening log file %s: %w", newest, err)
		}

		r.lines = lines
	}

	return r.enforceRetention()
}

// countLines counts newline-terminated lines; a trailing partial line counts as one.
func countLines(data []byte) int {
	lines := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// processLogChannel runs in a go routine and reads the incoming logs channel.
// Received logs are dispatched to the write method. Replies are then sent to the
// response channel. This also handles forced rotation and routine shutdown.
// Everything happens in this one go routine, so log ordering matches call ordering.
func (r *Roller) processLogChannel() {
	for {
		select {
		case b := <-r.log:
			size, err := r.write(b)
			r.resp <- &resp{size, err}
		case _, ok := <-r.signal:
			if !ok {
				r.signal = nil
				r.resp <- &resp{err: r.stop()}

				return
			}

			r.resp <- &resp{err: r.rotate()}
		}
	}
}

// Write appends the message to the active log file, rolling over to a new
// file first when the active file already took MaxLines writes. Each call
// counts as one line regardless of embedded newlines; include your own
// separators. Errors opening a new file or deleting an overflow file are
// returned to the caller: a broken log sink must be visible immediately.
// This satisfies the io.WriteCloser interface, so the Roller works with
// log.SetOutput().
func (r *Roller) Write(b []byte) (int, error) {
	r.log <- b
	resp := <-r.resp

	return resp.size, resp.err
}

// WriteError is a synonym of Write. Errors and normal messages share one
// stream; no severity routing happens at this layer.
func (r *Roller) WriteError(b []byte) (int, error) {
	return r.Write(b)
}

// write sends a message into the log file after everything checks out - from a channel message.
func (r *Roller) write(b []byte) (int, error) {
	if r.File != nil && r.lines >= r.config.MaxLines {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	if r.File == nil {
		if err := r.openNext(); err != nil {
			return 0, err
		}
	}

	size, err := r.File.Write(b)
	if err != nil {
		return size, fmt.Errorf("error writing log msg: %w", err)
	}

	r.lines++

	return size, nil
}

// openNext creates the next log file, pushes it onto the retention queue, and
// deletes the oldest files while the queue holds more than FileCount entries.
//
// File names carry the process id and a wall-clock time stamp at second
// granularity. Two rotations within the same process and the same second
// produce the same name: the second open appends to the first file and the
// two silently merge. With a compressing PostRotate hook the merge also
// races the background compressor, which may delete the reopened file out
// from under us. Disambiguate with Config.Now if either matters to you.
func (r *Roller) openNext() error {
	var err error

	fileName := r.fileName(r.config.Now())

	r.File, err = r.OpenFile(fileName, os.O_WRONLY|os.O_APPEND|os.O_CREATE, r.config.FileMode)
	if err != nil {
		return fmt.Errorf("opening new log file: %w", err)
	}

	r.lines = 0

	if last := len(r.queue) - 1; last < 0 || r.queue[last] != fileName {
		r.queue = append(r.queue, fileName)
	}

	return r.enforceRetention()
}

// fileName generates the name for a new log file. Colons in the time stamp
// are replaced with underscores for file system safety.
func (r *Roller) fileName(now time.Time) string {
	stamp := strings.ReplaceAll(now.Format(time.RFC3339), ":", "_")

	return filepath.Join(r.config.Folder,
		fmt.Sprintf("%s_%d_%s_%s", r.config.Prefix, r.config.ProcessID, stamp, LogExt))
}

// enforceRetention deletes the oldest queued files until the queue fits FileCount.
// A post-rotate compressor may have replaced a file with a .gz sibling; the
// sibling is deleted in its place. A file already gone counts as deleted.
func (r *Roller) enforceRetention() error {
	for len(r.queue) > r.config.FileCount {
		oldest := r.queue[0]

		err := r.Remove(oldest)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing old log file: %w", err)
		}

		if os.IsNotExist(err) {
			if err := r.Remove(oldest + GZext); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing old log file: %w", err)
			}
		}

		r.queue = r.queue[1:]
	}

	return nil
}

// Rotate forces the log to roll over to a new file on the next write.
func (r *Roller) Rotate() error {
	r.signal <- struct{}{}

	return (<-r.resp).err
}

// rotate closes the active file and dispatches the post-rotate hook - from a channel message.
// The hook blocks the write loop; run anything slow in a go routine.
func (r *Roller) rotate() error {
	if r.File == nil {
		return nil
	}

	fileName := r.File.Name()

	if err := r.close(); err != nil {
		return err
	}

	if r.config.PostRotate != nil {
		r.config.PostRotate(fileName)
	}

	return nil
}

// Close stops the go routine and closes the active log file session and all
// channels. Close is idempotent. If another Write() is sent after Close, a
// panic will ensue.
func (r *Roller) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	defer close(r.resp)
	close(r.signal)

	return (<-r.resp).err
}

// close closes the active log file - from a channel message.
func (r *Roller) close() error {
	if r.File == nil {
		return nil
	}

	err := r.File.Close()
	r.File = nil
	r.lines = 0

	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}

	return nil
}

// stop closes everything down.
func (r *Roller) stop() error {
	if r.log != nil {
		close(r.log)
	}

	r.log = nil

	return r.close()
}

// Our interface must satify an io.WriteCloser.
var _ io.WriteCloser = (*Roller)(nil)
