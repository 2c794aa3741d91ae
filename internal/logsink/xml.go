package logsink

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
)

// XML appends one <entry> element per line to a file. The file is a stream
// of elements rather than a single document so writes stay append-only.
type XML struct {
	mu   sync.Mutex
	path string
}

func NewXML(path string) *XML {
	return &XML{path: path}
}

type xmlTransfer struct {
	Job       string `xml:"job,attr"`
	From      string `xml:"from"`
	To        string `xml:"to"`
	Bytes     int64  `xml:"bytes"`
	ElapsedMs int64  `xml:"elapsedMs"`
	Outcome   string `xml:"outcome"`
}

type xmlEntry struct {
	XMLName  xml.Name     `xml:"entry"`
	Time     string       `xml:"time,attr"`
	Level    string       `xml:"level,attr"`
	Source   string       `xml:"source,attr"`
	Message  string       `xml:"message"`
	Transfer *xmlTransfer `xml:"transfer,omitempty"`
}

func (x *XML) WriteEntry(e Entry) error {
	xe := xmlEntry{
		Time:    e.Time.UTC().Format(time.RFC3339Nano),
		Level:   string(e.Level),
		Source:  e.Source,
		Message: e.Message,
	}
	if e.Job != "" {
		xe.Transfer = &xmlTransfer{
			Job:       e.Job,
			From:      e.From,
			To:        e.To,
			Bytes:     e.Bytes,
			ElapsedMs: e.Elapsed.Milliseconds(),
			Outcome:   e.Outcome,
		}
	}
	data, err := xml.Marshal(xe)
	if err != nil {
		return errors.Annotate(err, "encoding entry")
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	return appendLine(x.path, data)
}

// ReadEntries skips lines that do not decode, such as one torn by a crash
// mid-write.
func (x *XML) ReadEntries(f Filter) ([]Entry, error) {
	x.mu.Lock()
	data, err := os.ReadFile(x.path)
	x.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "reading %s", x.path)
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := decodeXML(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Annotatef(err, "scanning %s", x.path)
	}
	return filterSorted(entries, f), nil
}

func decodeXML(line []byte) (Entry, error) {
	var xe xmlEntry
	if err := xml.Unmarshal(line, &xe); err != nil {
		return Entry{}, errors.Trace(err)
	}
	ts, err := time.Parse(time.RFC3339Nano, xe.Time)
	if err != nil {
		return Entry{}, errors.Trace(err)
	}
	e := Entry{
		Time:    ts,
		Level:   Level(xe.Level),
		Source:  xe.Source,
		Message: xe.Message,
	}
	if t := xe.Transfer; t != nil {
		e.Job, e.From, e.To = t.Job, t.From, t.To
		e.Bytes = t.Bytes
		e.Elapsed = time.Duration(t.ElapsedMs) * time.Millisecond
		e.Outcome = t.Outcome
	}
	return e, nil
}
