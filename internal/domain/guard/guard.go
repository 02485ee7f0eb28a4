// Package guard serializes conflicting playback operations.
package guard

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Class identifies the semantic kind of an operation. Conflicts are
// decided per class, never per call site.
type Class string

// Operation classes. Play-pause and seek block each other; the rest
// only block themselves.
const (
	ClassPlayPause Class = "play-pause"
	ClassSeek      Class = "seek"
	ClassVolume    Class = "volume"
	ClassRate      Class = "rate"
	ClassLoad      Class = "load"
)

// ErrOperationInFlight is returned by Do when a conflicting operation
// is already in progress.
var ErrOperationInFlight = errors.New("conflicting operation in flight")

// conflictsWith lists, per class, the classes that block a new operation
// of that class. Unknown classes fall back to self-conflict only.
var conflictsWith = map[Class][]Class{
	ClassPlayPause: {ClassPlayPause, ClassSeek},
	ClassSeek:      {ClassSeek, ClassPlayPause},
	ClassVolume:    {ClassVolume},
	ClassRate:      {ClassRate},
	ClassLoad:      {ClassLoad},
}

// Operation is an in-flight entry in the guard registry.
type Operation struct {
	ID        string
	Class     Class
	StartedAt time.Time
}

// Guard tracks in-flight operations and rejects starts that conflict
// with them. It is safe for concurrent use.
type Guard struct {
	mu  sync.Mutex
	ops map[string]Operation
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{
		ops: make(map[string]Operation),
	}
}

// NewOperationID returns a fresh operation ID for the given class.
func NewOperationID(class Class) string {
	return fmt.Sprintf("%s-%s", class, uuid.NewString())
}

// StartOperation registers an operation if nothing conflicting is in
// flight. It returns false, without side effects, when a conflicting
// operation (or the same ID) is already active.
func (g *Guard) StartOperation(id string, class Class) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.ops[id]; exists {
		log.Warn().Str("id", id).Str("class", string(class)).Msg("Operation ID already active, rejecting")
		return false
	}

	if blocker, blocked := g.findConflict(class); blocked {
		log.Warn().
			Str("class", string(class)).
			Str("blockedBy", blocker.ID).
			Str("blockedByClass", string(blocker.Class)).
			Msg("Operation rejected, conflicting operation in flight")
		return false
	}

	g.ops[id] = Operation{ID: id, Class: class, StartedAt: time.Now()}
	return true
}

// CompleteOperation removes an operation from the registry. Completing
// an unknown or already-completed ID is a no-op.
func (g *Guard) CompleteOperation(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ops, id)
}

// InProgress reports whether any operation of the given class is active.
func (g *Guard) InProgress(class Class) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, op := range g.ops {
		if op.Class == class {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of in-flight operations.
func (g *Guard) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ops)
}

// Active returns the in-flight operations ordered by start time. Used
// at teardown to surface operations that never completed.
func (g *Guard) Active() []Operation {
	g.mu.Lock()
	defer g.mu.Unlock()

	ops := make([]Operation, 0, len(g.ops))
	for _, op := range g.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].StartedAt.Before(ops[j].StartedAt)
	})
	return ops
}

// Do runs fn under a fresh operation of the given class. The slot is
// released on every exit path, including a panic inside fn. A conflict
// returns ErrOperationInFlight without running fn.
func (g *Guard) Do(class Class, fn func() error) error {
	id := NewOperationID(class)
	if !g.StartOperation(id, class) {
		return ErrOperationInFlight
	}
	defer g.CompleteOperation(id)
	return fn()
}

func (g *Guard) findConflict(class Class) (Operation, bool) {
	blocking, known := conflictsWith[class]
	if !known {
		blocking = []Class{class}
	}
	for _, op := range g.ops {
		for _, blocked := range blocking {
			if op.Class == blocked {
				return op, true
			}
		}
	}
	return Operation{}, false
}
