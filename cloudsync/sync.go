// Package cloudsync merges a local snapshot with an optional remote copy, last write wins.
package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/jonboulle/clockwork"
)

// Snapshot is a value stamped with its last modification time in epoch milliseconds
type Snapshot[T any] interface {
	Modified() int64
	WithModified(ms int64) T
}

// Source tells where the value returned by Load came from
type Source string

const (
	SourceDefault Source = "default"
	SourceLocal   Source = "local"
	SourceRemote  Source = "remote"
)

type Syncer[T Snapshot[T]] struct {
	local      storage.Local
	localKey   string
	remote     storage.Remote
	remoteName string
	defaults   func() T
	clock      clockwork.Clock

	// saveMu keeps stamps, local writes and queued pushes in call order
	saveMu sync.Mutex

	pushMu  sync.Mutex
	pending []byte
	pushing bool
	idle    chan struct{}
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New binds a local key and a remote file name. remote may be nil.
func New[T Snapshot[T]](local storage.Local, localKey string, remote storage.Remote, remoteName string, defaults func() T, opts ...Option) *Syncer[T] {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Syncer[T]{
		local:      local,
		localKey:   localKey,
		remote:     remote,
		remoteName: remoteName,
		defaults:   defaults,
		clock:      o.clock,
	}
}

// RemoteAvailable reports whether the remote side takes part in Load and Save
func (s *Syncer[T]) RemoteAvailable() bool {
	return storage.Available(s.remote)
}

// Load returns the newer of the local and remote copies and makes both sides agree.
// Ties keep the local copy. Local read failures fall back to defaults; remote
// failures are logged and leave the local copy as the record.
func (s *Syncer[T]) Load(ctx context.Context) (T, Source, error) {
	current, source := s.readLocal(ctx)

	if !s.RemoteAvailable() {
		if source == SourceDefault {
			// persist the defaults so later loads are stable
			if err := s.writeLocal(ctx, current); err != nil {
				return current, source, err
			}
		}
		return current, source, nil
	}

	exists, err := s.remote.Exists(ctx, s.remoteName)
	if err != nil {
		utils.Warn("cloud: failed to check %s: %v", s.remoteName, err)
		return current, source, s.writeLocalIfDefault(ctx, current, source)
	}

	if !exists {
		if err := s.writeLocal(ctx, current); err != nil {
			return current, source, err
		}
		s.push(ctx, current)
		return current, source, nil
	}

	raw, err := s.remote.Read(ctx, s.remoteName)
	if err != nil {
		utils.Warn("cloud: failed to read %s: %v", s.remoteName, err)
		return current, source, s.writeLocalIfDefault(ctx, current, source)
	}

	var remote T
	if err := json.Unmarshal(raw, &remote); err != nil {
		utils.Warn("cloud: ignoring unreadable %s: %v", s.remoteName, err)
		if err := s.writeLocal(ctx, current); err != nil {
			return current, source, err
		}
		s.push(ctx, current)
		return current, source, nil
	}

	if remote.Modified() > current.Modified() {
		utils.Verbose("cloud: adopting remote %s (%d > %d)", s.remoteName, remote.Modified(), current.Modified())
		if err := s.writeLocal(ctx, remote); err != nil {
			return remote, SourceRemote, err
		}
		return remote, SourceRemote, nil
	}

	if err := s.writeLocal(ctx, current); err != nil {
		return current, source, err
	}
	if !sameEncoding(current, remote) {
		s.push(ctx, current)
	}
	return current, source, nil
}

// Save stamps value with the current time and writes it locally. The remote copy
// is written in the background, newest value first; Flush waits for it.
// Only the local write can fail the call.
func (s *Syncer[T]) Save(ctx context.Context, value T) (T, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	stamped := value.WithModified(s.clock.Now().UnixMilli())

	if err := s.writeLocal(ctx, stamped); err != nil {
		return stamped, err
	}

	if s.RemoteAvailable() {
		s.enqueue(stamped)
	}
	return stamped, nil
}

// Flush waits until every queued remote write has been attempted, or ctx ends
func (s *Syncer[T]) Flush(ctx context.Context) error {
	s.pushMu.Lock()
	if !s.pushing {
		s.pushMu.Unlock()
		return nil
	}
	idle := s.idle
	s.pushMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cloud: flush of %s interrupted: %w", s.remoteName, ctx.Err())
	}
}

// enqueue replaces any value still waiting for the remote with data
func (s *Syncer[T]) enqueue(value T) {
	data, err := json.Marshal(value)
	if err != nil {
		utils.Warn("cloud: failed to encode %s: %v", s.remoteName, err)
		return
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	s.pending = data
	if s.pushing {
		return
	}
	s.pushing = true
	s.idle = make(chan struct{})
	go s.drain()
}

func (s *Syncer[T]) drain() {
	for {
		s.pushMu.Lock()
		data := s.pending
		s.pending = nil
		if data == nil {
			s.pushing = false
			close(s.idle)
			s.pushMu.Unlock()
			return
		}
		s.pushMu.Unlock()

		// the caller's context may be gone by now
		s.write(context.Background(), data)
	}
}

func (s *Syncer[T]) readLocal(ctx context.Context) (T, Source) {
	raw, err := s.local.Get(ctx, s.localKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			utils.Warn("failed to read %s, using defaults: %v", s.localKey, err)
		}
		return s.defaults(), SourceDefault
	}

	value := s.defaults()
	if err := json.Unmarshal(raw, &value); err != nil {
		utils.Warn("failed to decode %s, using defaults: %v", s.localKey, err)
		return s.defaults(), SourceDefault
	}
	return value, SourceLocal
}

func (s *Syncer[T]) writeLocal(ctx context.Context, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.localKey, err)
	}
	if err := s.local.Put(ctx, s.localKey, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.localKey, err)
	}
	return nil
}

func (s *Syncer[T]) writeLocalIfDefault(ctx context.Context, value T, source Source) error {
	if source != SourceDefault {
		return nil
	}
	return s.writeLocal(ctx, value)
}

func (s *Syncer[T]) push(ctx context.Context, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		utils.Warn("cloud: failed to encode %s: %v", s.remoteName, err)
		return
	}
	s.write(ctx, data)
}

func (s *Syncer[T]) write(ctx context.Context, data []byte) {
	ok, err := s.remote.Write(ctx, s.remoteName, data)
	if err != nil {
		utils.Warn("cloud: failed to write %s: %v", s.remoteName, err)
		return
	}
	if !ok {
		utils.Warn("cloud: write of %s was declined", s.remoteName)
		return
	}
	utils.Verbose("cloud: pushed %s", s.remoteName)
}

func sameEncoding[T any](a, b T) bool {
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}
