package storage

import "fmt"

// Record is the single structured item persisted by a RecordStore.
type Record struct {
	ID      uint32 `json:"id" yaml:"id" codec:"id"`
	Title   string `json:"title" yaml:"title" codec:"title"`
	Content string `json:"content" yaml:"content" codec:"content"`
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id: %d, title: %q, content: %q}", r.ID, r.Title, r.Content)
}

// recordDocument is the on-disk shape. Pointer fields let a decoded document
// tell a missing key apart from an empty value.
type recordDocument struct {
	ID      *uint32 `json:"id" yaml:"id" codec:"id" validate:"required"`
	Title   *string `json:"title" yaml:"title" codec:"title" validate:"required"`
	Content *string `json:"content" yaml:"content" codec:"content" validate:"required"`
}

func (d recordDocument) record() Record {
	return Record{ID: *d.ID, Title: *d.Title, Content: *d.Content}
}
