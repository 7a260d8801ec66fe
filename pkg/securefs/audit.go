package securefs

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Audit event tags.
const (
	EventFileCopy          = "FILE_COPY"
	EventSymlinkCreate     = "SYMLINK_CREATE"
	EventFileEncrypt       = "FILE_ENCRYPT"
	EventFileDecrypt       = "FILE_DECRYPT"
	EventPermissionWarning = "PERMISSION_WARNING"
)

// AuditSink receives structured audit records. Implementations must not
// block for long and must never panic the caller: emission is
// fire-and-forget and can never fail the primary operation.
type AuditSink interface {
	Record(event string, fields map[string]any)
}

// NoopSink discards all records. It is the default when no sink is
// configured, so call sites never nil-check.
type NoopSink struct{}

func (NoopSink) Record(string, map[string]any) {}

// LogSink forwards audit records to a charmbracelet logger as keyvals.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Record(event string, fields map[string]any) {
	if s.Logger == nil {
		return
	}
	kv := make([]any, 0, len(fields)*2)
	for k, val := range fields {
		kv = append(kv, k, val)
	}
	s.Logger.Info(event, kv...)
}

// WriterSink appends one JSON line per record to a writer. Writes are
// serialized; marshal or write failures are swallowed, matching the
// fire-and-forget contract.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps w in a line-oriented JSON audit sink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Record(event string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+1)
	for k, val := range fields {
		entry[k] = val
	}
	entry["event"] = event

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(data)
}

// auditFields assembles the common record shape: event timestamp (ISO-8601),
// process identifier, and the CopyResult fields.
func auditFields(result *CopyResult) map[string]any {
	fields := map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"pid":         os.Getpid(),
		"source":      result.Source,
		"destination": result.Destination,
		"operation":   string(result.Operation),
		"encrypted":   result.Encrypted,
		"duration":    result.Duration.String(),
	}
	if result.Checksum != "" {
		fields["checksum"] = result.Checksum
	}
	return fields
}
