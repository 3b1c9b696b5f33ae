package replica

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/boardsync/internal/ir"
	"github.com/roach88/boardsync/internal/orderkey"
	"github.com/roach88/boardsync/internal/reconcile"
	"github.com/roach88/boardsync/internal/repair"
)

var (
	// ErrStopped is returned by Sync once the replica no longer accepts
	// operations.
	ErrStopped = errors.New("replica stopped")

	// ErrUnknownRecord reports a local edit naming an id the replica does
	// not hold.
	ErrUnknownRecord = errors.New("unknown record")
)

// SourceLocal is the batch source recorded for local edits.
const SourceLocal = "local"

// Persister stores the scene after every applied operation.
// Implemented by store.SceneSink.
type Persister interface {
	Persist(ctx context.Context, seq int64, source string, recs []ir.Record) error
}

// Broadcaster receives the records changed by a local edit, already bumped,
// for delivery to peers. Transport is the caller's concern.
type Broadcaster func(changed []ir.Record)

type opKind int

const (
	opRemote opKind = iota + 1
	opCreate
	opMutate
	opDelete
	opMove
	opEdit
	opBarrier
)

func (k opKind) String() string {
	switch k {
	case opRemote:
		return "remote"
	case opCreate:
		return "create"
	case opMutate:
		return "mutate"
	case opDelete:
		return "delete"
	case opMove:
		return "move"
	case opEdit:
		return "edit_context"
	case opBarrier:
		return "barrier"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

type op struct {
	kind    opKind
	source  string
	records []ir.Record
	id      string
	payload ir.Object
	index   int
	edit    reconcile.EditContext
	done    chan struct{}
}

// Option configures a Replica.
type Option func(*Replica)

// WithClock sets the logical clock, e.g. one resumed from the store.
func WithClock(c Sequencer) Option {
	return func(r *Replica) { r.clock = c }
}

// WithIDs sets the id generator for created records.
func WithIDs(g IDGenerator) Option {
	return func(r *Replica) { r.ids = g }
}

// WithNonces sets the nonce source for local edits.
func WithNonces(n NonceSource) Option {
	return func(r *Replica) { r.nonces = n }
}

// WithGenerator sets the key generator for created records. Its alphabet
// is also used for repair and reconciliation.
func WithGenerator(g *orderkey.Generator) Option {
	return func(r *Replica) { r.gen = g }
}

// WithPersister saves the scene after every applied operation.
func WithPersister(p Persister) Option {
	return func(r *Replica) { r.persister = p }
}

// WithBroadcast delivers locally changed records to peers.
func WithBroadcast(b Broadcaster) Option {
	return func(r *Replica) { r.broadcast = b }
}

// WithRecords seeds the initial state. The records are cloned and their
// keys repaired.
func WithRecords(recs []ir.Record) Option {
	return func(r *Replica) { r.initial = ir.CloneAll(recs) }
}

// Replica is a single client's copy of a scene driven by a single-writer
// loop.
//
// Thread-safety model:
//   - ApplyRemote, Create, Mutate, Delete, Move, SetEditContext, Sync:
//     safe from any goroutine
//   - Snapshot: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Replica struct {
	name       string
	clock      Sequencer
	queue      *opQueue
	ids        IDGenerator
	nonces     NonceSource
	gen        *orderkey.Generator
	repairer   *repair.Repairer
	reconciler *reconcile.Reconciler
	persister  Persister
	broadcast  Broadcaster
	initial    []ir.Record

	// owned by the Run goroutine
	records []ir.Record
	edit    reconcile.EditContext

	mu        sync.RWMutex
	published []ir.Record

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a replica named name. Options default to UUIDv7 ids, random
// nonces, a jittered Base62 generator and no persistence.
func New(name string, opts ...Option) (*Replica, error) {
	r := &Replica{
		name:    name,
		clock:   NewClock(),
		queue:   newOpQueue(),
		ids:     UUIDv7IDs{},
		nonces:  RandomNonces{},
		gen:     orderkey.NewGenerator(orderkey.Base62),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.repairer = repair.New(r.gen)
	r.reconciler = reconcile.New(r.repairer)

	r.records = r.initial
	r.initial = nil
	if r.records == nil {
		r.records = []ir.Record{}
	}
	if _, err := r.repairer.FixInvalidIndices(r.records); err != nil {
		return nil, fmt.Errorf("replica %s: repair initial records: %w", name, err)
	}
	r.publish()
	return r, nil
}

// Name returns the replica name used in logs.
func (r *Replica) Name() string {
	return r.name
}

// Clock returns the replica clock.
func (r *Replica) Clock() Sequencer {
	return r.clock
}

// QueueLen returns the number of pending operations.
func (r *Replica) QueueLen() int {
	return r.queue.Len()
}

// ApplyRemote enqueues a batch received from source. The batch is cloned,
// so the caller may reuse it. Returns false once stopped.
func (r *Replica) ApplyRemote(source string, batch []ir.Record) bool {
	return r.queue.Enqueue(op{kind: opRemote, source: source, records: ir.CloneAll(batch)})
}

// Create enqueues a new record appended at the end of the scene and
// returns its id.
func (r *Replica) Create(payload ir.Object) (string, bool) {
	id := r.ids.NewID()
	ok := r.queue.Enqueue(op{kind: opCreate, id: id, payload: payload.Clone()})
	return id, ok
}

// Mutate enqueues a content edit replacing the payload of id.
func (r *Replica) Mutate(id string, payload ir.Object) bool {
	return r.queue.Enqueue(op{kind: opMutate, id: id, payload: payload.Clone()})
}

// Delete enqueues a tombstone for id.
func (r *Replica) Delete(id string) bool {
	return r.queue.Enqueue(op{kind: opDelete, id: id})
}

// Move enqueues a reorder placing id at index (clamped to the scene).
func (r *Replica) Move(id string, index int) bool {
	return r.queue.Enqueue(op{kind: opMove, id: id, index: index})
}

// SetEditContext enqueues a replacement of the local edit context. Merges
// after it protect the named records.
func (r *Replica) SetEditContext(edit reconcile.EditContext) bool {
	return r.queue.Enqueue(op{kind: opEdit, edit: edit.Clone()})
}

// Sync blocks until every operation enqueued before it has been applied.
func (r *Replica) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !r.queue.Enqueue(op{kind: opBarrier, done: done}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current scene.
func (r *Replica) Snapshot() []ir.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ir.CloneAll(r.published)
}

// Run applies queued operations until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. Operation failures are logged
// and processing continues.
func (r *Replica) Run(ctx context.Context) error {
	slog.Info("replica starting", "replica", r.name, "records", len(r.records))
	defer r.stopOnce.Do(func() { close(r.stopped) })

	for {
		o, ok := r.queue.TryDequeue()
		if ok {
			if err := r.process(ctx, o); err != nil {
				slog.Error("operation failed",
					"replica", r.name,
					"op", o.kind,
					"id", o.id,
					"source", o.source,
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("replica stopping: context cancelled", "replica", r.name)
			r.queue.Close()
			return ctx.Err()

		case <-r.queue.Wait():
			// the signal channel is closed by Close; a stale buffered
			// signal with an open queue just loops back
			if r.queue.Len() == 0 && r.queue.Closed() {
				slog.Info("replica stopping: queue closed", "replica", r.name)
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns after draining what was enqueued.
func (r *Replica) Stop() {
	r.queue.Close()
}

// process applies one operation. Called only from Run.
func (r *Replica) process(ctx context.Context, o op) error {
	switch o.kind {
	case opBarrier:
		close(o.done)
		return nil
	case opEdit:
		r.edit = o.edit
		slog.Debug("edit context replaced", "replica", r.name, "records", len(o.edit))
		return nil
	}

	next, changed, err := r.apply(o)
	if err != nil {
		return err
	}

	seq := r.clock.Next()
	r.records = next
	r.publish()

	source := SourceLocal
	if o.kind == opRemote {
		source = o.source
	}
	slog.Info("operation applied",
		"replica", r.name,
		"op", o.kind,
		"seq", seq,
		"source", source,
		"records", len(next),
	)

	if r.persister != nil {
		if err := r.persister.Persist(ctx, seq, source, next); err != nil {
			return fmt.Errorf("persist seq %d: %w", seq, err)
		}
	}
	if r.broadcast != nil && len(changed) > 0 {
		r.broadcast(ir.CloneAll(changed))
	}
	return nil
}

// apply computes the next state without touching the current one. changed
// holds the records to broadcast (local edits only).
func (r *Replica) apply(o op) (next, changed []ir.Record, err error) {
	switch o.kind {
	case opRemote:
		rep, err := r.reconciler.ReconcileWithReport(r.records, o.records, r.edit)
		if err != nil {
			return nil, nil, err
		}
		if rep.Protected > 0 {
			slog.Debug("remote edits held back by edit context", "replica", r.name, "protected", rep.Protected)
		}
		return rep.Records, nil, nil

	case opCreate:
		last := ""
		if n := len(r.records); n > 0 {
			last = r.records[n-1].OrderKey
		}
		key, err := r.gen.JitteredKeyBetween(last, "")
		if err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", o.id, err)
		}
		rec := ir.Record{
			ID:           o.id,
			Version:      1,
			VersionNonce: r.nonces.Nonce(),
			OrderKey:     key,
			Payload:      o.payload,
		}
		next = append(r.copyRecords(), rec)
		return next, []ir.Record{rec}, nil

	case opMutate, opDelete:
		i := r.indexOf(o.id)
		if i < 0 {
			return nil, nil, fmt.Errorf("%s %s: %w", o.kind, o.id, ErrUnknownRecord)
		}
		rec := r.records[i].Bump(r.nonces.Nonce())
		if o.kind == opMutate {
			rec.Payload = o.payload
		} else {
			rec.Deleted = true
		}
		next = r.copyRecords()
		next[i] = rec
		return next, []ir.Record{rec}, nil

	case opMove:
		i := r.indexOf(o.id)
		if i < 0 {
			return nil, nil, fmt.Errorf("move %s: %w", o.id, ErrUnknownRecord)
		}
		to := o.index
		if to < 0 {
			to = 0
		}
		if to > len(r.records)-1 {
			to = len(r.records) - 1
		}

		next = r.copyRecords()
		moved := next[i]
		next = append(next[:i], next[i+1:]...)
		next = append(next[:to], append([]ir.Record{moved}, next[to:]...)...)

		if key, ok := r.moveKey(next, to); ok {
			next[to].OrderKey = key
		} else if _, err := r.repairer.SyncMoved(next, map[string]struct{}{o.id: {}}); err != nil {
			return nil, nil, fmt.Errorf("move %s: %w", o.id, err)
		}
		// the reorder itself is a user edit and must reach peers
		next[to] = next[to].Bump(r.nonces.Nonce())
		return next, []ir.Record{next[to]}, nil
	}
	return nil, nil, fmt.Errorf("unknown operation %s", o.kind)
}

// moveKey returns a jittered key for recs[i] between its neighbours, so
// peers moving records into the same gap do not collide. It reports false
// when the neighbours are not strictly ordered.
func (r *Replica) moveKey(recs []ir.Record, i int) (string, bool) {
	alphabet := r.gen.Alphabet()
	lower, upper := "", ""
	if i > 0 {
		lower = recs[i-1].OrderKey
		if !alphabet.Valid(lower) {
			return "", false
		}
	}
	if i+1 < len(recs) {
		upper = recs[i+1].OrderKey
		if !alphabet.Valid(upper) {
			return "", false
		}
	}
	if lower != "" && upper != "" && lower >= upper {
		return "", false
	}
	key, err := r.gen.JitteredKeyBetween(lower, upper)
	if err != nil {
		return "", false
	}
	return key, true
}

func (r *Replica) indexOf(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}

// copyRecords returns a shallow copy of the state. Payloads are shared but
// never mutated in place.
func (r *Replica) copyRecords() []ir.Record {
	out := make([]ir.Record, len(r.records), len(r.records)+1)
	copy(out, r.records)
	return out
}

func (r *Replica) publish() {
	snap := ir.CloneAll(r.records)
	r.mu.Lock()
	r.published = snap
	r.mu.Unlock()
}
