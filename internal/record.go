package internal

import (
	"bytes"
	"io"
)

// Record is a catalog record fetched for harvesting. The body is the JSON
// document exactly as the catalog served it.
type Record struct {
	Identifier string
	body       []byte
}

func NewRecord(identifier string, body []byte) *Record {
	return &Record{
		Identifier: identifier,
		body:       body,
	}
}

// Key is the object name the record is stored under.
func (r *Record) Key() string {
	return r.Identifier + ".json"
}

func (r *Record) Len() int {
	return len(r.body)
}

func (r *Record) Reader() io.Reader {
	return bytes.NewReader(r.body)
}
