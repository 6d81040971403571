// Package eventlog provides a durable audit trail for window lifecycle
// events. It is never replayed on startup to recover engine state: the
// actor's own WindowState is the sole source of truth, and a restarted
// Supervisor deliberately loses the in-flight window rather than
// recovering it. This log exists purely so an operator can answer "what
// did window actor X actually do" after the fact.
package eventlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/windowkeep/sentrywin/internal/domain"
	"github.com/windowkeep/sentrywin/internal/ports"
)

const recordHeaderLen = 12

// envelope carries a WindowEvent's concrete type alongside its JSON
// payload, since domain.WindowEvent has no stable field to switch on at
// decode time.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FileEventLog is a ports.WindowEventListener that appends every event
// it receives to a local append-only file, using an
// [8-byte seq][4-byte length][payload] record framing.
type FileEventLog struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	writer    *bufio.Writer
	nextSeq   uint64
	sizeBytes int64
}

// NewFileEventLog opens (creating if needed) an event log file under
// dir. Existing records are scanned once at startup purely to recover
// nextSeq and sizeBytes, not to replay anything into an actor.
func NewFileEventLog(dir string) (*FileEventLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "events.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	log := &FileEventLog{
		path:   path,
		file:   f,
		writer: bufio.NewWriterSize(f, 1<<16),
	}
	if err := log.scanExisting(); err != nil {
		return nil, err
	}
	if _, err := log.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return log, nil
}

func (l *FileEventLog) scanExisting() error {
	stat, err := os.Stat(l.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(l.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64
	var lastSeq uint64
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := l.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("eventlog scan header: %w", err)
		}
		seq := binary.BigEndian.Uint64(hdr[0:8])
		length := binary.BigEndian.Uint32(hdr[8:12])
		offset += recordHeaderLen

		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if err := l.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("eventlog scan body: %w", err)
		}
		offset += int64(length)
		lastSeq = seq
	}

	l.sizeBytes = offset
	l.nextSeq = lastSeq
	return nil
}

// Accept encodes event and appends it. Failures are swallowed: FileEventLog
// has no logger and Accept returns no error, so a failed append is not
// reported anywhere. A listener must never block or panic the actor.
func (l *FileEventLog) Accept(event domain.WindowEvent) {
	_ = l.append(event)
}

func (l *FileEventLog) append(event domain.WindowEvent) error {
	env, err := encodeEvent(event)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.nextSeq + 1
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(env)))

	if _, err := l.writer.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := l.writer.Write(env); err != nil {
		return err
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}

	l.nextSeq = seq
	l.sizeBytes += int64(len(hdr) + len(env))
	return nil
}

func encodeEvent(event domain.WindowEvent) ([]byte, error) {
	var typ string
	switch event.(type) {
	case domain.Opened:
		typ = "Opened"
	case domain.Advanced:
		typ = "Advanced"
	case domain.Closed:
		typ = "Closed"
	case domain.AddedToWindow:
		typ = "AddedToWindow"
	case domain.Paused:
		typ = "Paused"
	case domain.Resumed:
		typ = "Resumed"
	case domain.Stopped:
		typ = "Stopped"
	default:
		return nil, fmt.Errorf("eventlog: unknown event type %T", event)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Payload: payload})
}

// Stats reports the log's on-disk footprint, for wiring into
// Observability.SetGauge.
type Stats struct {
	LatestSeq uint64
	SizeBytes int64
}

func (l *FileEventLog) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{LatestSeq: l.nextSeq, SizeBytes: l.sizeBytes}
}

// Close flushes and closes the underlying file.
func (l *FileEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

var _ ports.WindowEventListener = (*FileEventLog)(nil)
