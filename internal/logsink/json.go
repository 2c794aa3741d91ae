package logsink

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON appends one JSON object per line to a file.
type JSON struct {
	mu   sync.Mutex
	path string
}

func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

func encodeJSON(e Entry) (string, error) {
	line := `{}`
	set := func(path string, v any) {
		if line == "" {
			return
		}
		var err error
		if line, err = sjson.Set(line, path, v); err != nil {
			line = ""
		}
	}
	set("time", e.Time.UTC().Format(time.RFC3339Nano))
	set("level", string(e.Level))
	set("source", e.Source)
	set("message", e.Message)
	if e.Job != "" {
		set("transfer.job", e.Job)
		set("transfer.from", e.From)
		set("transfer.to", e.To)
		set("transfer.bytes", e.Bytes)
		set("transfer.elapsedMs", e.Elapsed.Milliseconds())
		set("transfer.outcome", e.Outcome)
	}
	if line == "" {
		return "", errors.Errorf("encoding entry %q", e.Message)
	}
	return line, nil
}

func decodeJSON(line []byte) (Entry, error) {
	if !gjson.ValidBytes(line) {
		return Entry{}, errors.NotValidf("log line %q", line)
	}
	r := gjson.ParseBytes(line)
	ts, err := time.Parse(time.RFC3339Nano, r.Get("time").String())
	if err != nil {
		return Entry{}, errors.NotValidf("log time %q", r.Get("time").String())
	}
	e := Entry{
		Time:    ts,
		Level:   Level(r.Get("level").String()),
		Source:  r.Get("source").String(),
		Message: r.Get("message").String(),
	}
	if t := r.Get("transfer"); t.Exists() {
		e.Job = t.Get("job").String()
		e.From = t.Get("from").String()
		e.To = t.Get("to").String()
		e.Bytes = t.Get("bytes").Int()
		e.Elapsed = time.Duration(t.Get("elapsedMs").Int()) * time.Millisecond
		e.Outcome = t.Get("outcome").String()
	}
	return e, nil
}

func (j *JSON) WriteEntry(e Entry) error {
	line, err := encodeJSON(e)
	if err != nil {
		return errors.Trace(err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	return appendLine(j.path, []byte(line))
}

// ReadEntries skips lines that do not decode.
func (j *JSON) ReadEntries(f Filter) ([]Entry, error) {
	j.mu.Lock()
	data, err := os.ReadFile(j.path)
	j.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "reading %s", j.path)
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := decodeJSON(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Annotatef(err, "scanning %s", j.path)
	}
	return filterSorted(entries, f), nil
}

func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Trace(err)
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Annotatef(err, "opening %s", path)
	}
	if _, err := fh.Write(append(line, '\n')); err != nil {
		_ = fh.Close()
		return errors.Annotatef(err, "writing %s", path)
	}
	return fh.Close()
}
