package build

import (
	"sort"
	"sync"
)

// Queue holds pending instructions keyed by BuildKey. Inserting a key
// already present replaces the queued instruction only when the new when is
// strictly earlier, so several refresh events planning the same build cannot
// oscillate.
type Queue struct {
	mu    sync.Mutex
	items map[Key]Instruction
}

func NewQueue() *Queue {
	return &Queue{items: make(map[Key]Instruction)}
}

// Insert adds the instruction, earlier-when wins on key collision.
func (q *Queue) Insert(instr Instruction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := instr.What.BuildKey()
	if existing, ok := q.items[key]; ok && instr.When >= existing.When {
		return
	}
	q.items[key] = instr
}

// Get returns the queued instruction for a key.
func (q *Queue) Get(key Key) (Instruction, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	instr, ok := q.items[key]
	return instr, ok
}

// Remove deletes the queued instruction for a key.
func (q *Queue) Remove(key Key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, key)
}

// TakeBefore removes and returns every instruction with when <= micros,
// ordered by when ascending with ties broken by key.
func (q *Queue) TakeBefore(micros int64) []Instruction {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Instruction
	for key, instr := range q.items {
		if instr.When <= micros {
			out = append(out, instr)
			delete(q.items, key)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].When != out[j].When {
			return out[i].When < out[j].When
		}
		return out[i].What.BuildKey().Less(out[j].What.BuildKey())
	})
	return out
}

// Len returns the number of queued instructions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns every queued instruction in deterministic order without
// removing them.
func (q *Queue) Snapshot() []Instruction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Instruction, 0, len(q.items))
	for _, instr := range q.items {
		out = append(out, instr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].When != out[j].When {
			return out[i].When < out[j].When
		}
		return out[i].What.BuildKey().Less(out[j].What.BuildKey())
	})
	return out
}

// Restore replaces the queue contents with the given instructions.
func (q *Queue) Restore(instructions []Instruction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = make(map[Key]Instruction, len(instructions))
	for _, instr := range instructions {
		key := instr.What.BuildKey()
		if existing, ok := q.items[key]; ok && instr.When >= existing.When {
			continue
		}
		q.items[key] = instr
	}
}
