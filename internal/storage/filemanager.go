package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/renameio"
	"github.com/ugorji/go/codec"
	"gopkg.in/yaml.v3"

	apperrors "p2p-discovery/go-client/internal/errors"
	"p2p-discovery/go-client/internal/metrics"
)

// DefaultRecordPath is the record file used when no path is configured,
// relative to the working directory.
const DefaultRecordPath = "record.json"

var validate = validator.New()

// RecordStore writes and reads one Record at a fixed path.
// It is meant for single-shot sequential use and does no locking.
type RecordStore struct {
	path   string
	format format
}

func NewRecordStore(path string) *RecordStore {
	if path == "" {
		path = DefaultRecordPath
	}
	return &RecordStore{path: path, format: formatFor(path)}
}

// Path returns the file the store reads and writes.
func (s *RecordStore) Path() string {
	return s.path
}

// Save overwrites the record file with r. The file is replaced atomically.
func (s *RecordStore) Save(r Record) (err error) {
	defer func() { observe("save", err) }()

	data, err := s.format.marshal(r)
	if err != nil {
		return apperrors.WrapParseError(err, "save", "encode record").WithContext("path", s.path)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.WrapIOError(err, "save", "create record directory").WithContext("path", s.path)
		}
	}

	if err := renameio.WriteFile(s.path, data, 0644); err != nil {
		return apperrors.WrapIOError(err, "save", "write record file").WithContext("path", s.path)
	}
	return nil
}

// Load reads the record file back. A missing file yields an error matching
// os.ErrNotExist; malformed content or a missing key yields a parse error.
func (s *RecordStore) Load() (r Record, err error) {
	defer func() { observe("load", err) }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, apperrors.WrapIOError(err, "load", "read record file").WithContext("path", s.path)
	}

	var doc recordDocument
	if err := s.format.unmarshal(data, &doc); err != nil {
		return Record{}, apperrors.WrapParseError(err, "load", "decode record").WithContext("path", s.path)
	}
	if err := validate.Struct(doc); err != nil {
		return Record{}, apperrors.WrapParseError(err, "load", "record is missing fields").WithContext("path", s.path)
	}

	return doc.record(), nil
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RecordOperationsTotal.WithLabelValues(op, result).Inc()
}

// format is the key-value encoding of a record file.
type format struct {
	marshal   func(Record) ([]byte, error)
	unmarshal func([]byte, *recordDocument) error
}

var (
	jsonFormat = format{
		marshal: func(r Record) ([]byte, error) {
			return json.MarshalIndent(r, "", "  ")
		},
		unmarshal: func(b []byte, d *recordDocument) error {
			return json.Unmarshal(b, d)
		},
	}
	yamlFormat = format{
		marshal: func(r Record) ([]byte, error) {
			return yaml.Marshal(r)
		},
		unmarshal: func(b []byte, d *recordDocument) error {
			return yaml.Unmarshal(b, d)
		},
	}
	msgpackFormat = format{
		marshal: func(r Record) ([]byte, error) {
			var (
				mh  codec.MsgpackHandle
				out []byte
			)
			err := codec.NewEncoderBytes(&out, &mh).Encode(r)
			return out, err
		},
		unmarshal: func(b []byte, d *recordDocument) error {
			var mh codec.MsgpackHandle
			return codec.NewDecoderBytes(b, &mh).Decode(d)
		},
	}
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlFormat
	case ".msgpack", ".mp":
		return msgpackFormat
	default:
		return jsonFormat
	}
}
