package build

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/halvard/tradewinds/internal/social"
	"github.com/halvard/tradewinds/internal/world"
)

func TestBuildKeyPerVariant(t *testing.T) {
	e := world.NewEdge(world.P(1, 1), world.P(2, 1))
	if got := Road(e, true).BuildKey(); got != (Key{Kind: KindRoad, Edge: e}) {
		t.Errorf("road key = %+v", got)
	}
	if got := Crops(world.P(3, 4), true).BuildKey(); got != (Key{Kind: KindCrops, Position: world.P(3, 4)}) {
		t.Errorf("crops key = %+v", got)
	}
	town := social.Settlement{Position: world.P(5, 6), Class: social.Town}
	if got := Town(town).BuildKey(); got != (Key{Kind: KindTown, Position: world.P(5, 6)}) {
		t.Errorf("town key = %+v", got)
	}
	// Road set and unset collide on the same key so the queue dedups them.
	if Road(e, true).BuildKey() != Road(e, false).BuildKey() {
		t.Error("road set/unset should share a key")
	}
}

func TestInsertEarlierWins(t *testing.T) {
	q := NewQueue()
	e := world.NewEdge(world.P(0, 0), world.P(1, 0))

	q.Insert(Instruction{When: 200, What: Road(e, true)})
	q.Insert(Instruction{When: 100, What: Road(e, true)})
	if instr, ok := q.Get(Road(e, true).BuildKey()); !ok || instr.When != 100 {
		t.Fatalf("earlier instruction should replace the later one, got %+v", instr)
	}

	q.Insert(Instruction{When: 150, What: Road(e, true)})
	if instr, _ := q.Get(Road(e, true).BuildKey()); instr.When != 100 {
		t.Fatalf("later instruction should lose, got when=%d", instr.When)
	}

	q.Insert(Instruction{When: 100, What: Road(e, false)})
	if instr, _ := q.Get(Road(e, true).BuildKey()); !instr.What.RoadSet {
		t.Fatal("equal-when insert should not replace the queued instruction")
	}
	if q.Len() != 1 {
		t.Fatalf("queue length = %d, want 1", q.Len())
	}
}

func TestTakeBeforeOrder(t *testing.T) {
	q := NewQueue()
	q.Insert(Instruction{When: 30, What: Crops(world.P(0, 1), false)})
	q.Insert(Instruction{When: 10, What: Crops(world.P(5, 5), false)})
	q.Insert(Instruction{When: 30, What: Crops(world.P(0, 0), true)})
	q.Insert(Instruction{When: 99, What: Crops(world.P(9, 9), false)})

	got := q.TakeBefore(50)
	if len(got) != 3 {
		t.Fatalf("took %d instructions, want 3", len(got))
	}
	wantPositions := []world.Position{world.P(5, 5), world.P(0, 0), world.P(0, 1)}
	for i, instr := range got {
		if instr.What.Position != wantPositions[i] {
			t.Errorf("take[%d] = %v, want %v", i, instr.What.Position, wantPositions[i])
		}
	}
	if q.Len() != 1 {
		t.Fatalf("queue length after take = %d, want 1", q.Len())
	}
	if _, ok := q.Get(Crops(world.P(9, 9), false).BuildKey()); !ok {
		t.Error("instruction after the cutoff should remain")
	}
}

func TestRemove(t *testing.T) {
	q := NewQueue()
	q.Insert(Instruction{When: 5, What: Crops(world.P(1, 1), false)})
	q.Remove(Crops(world.P(1, 1), false).BuildKey())
	if q.Len() != 0 {
		t.Fatal("remove should empty the queue")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	q := NewQueue()
	e := world.NewEdge(world.P(0, 0), world.P(0, 1))
	q.Insert(Instruction{When: 10, What: Road(e, true)})
	q.Insert(Instruction{When: 20, What: Crops(world.P(2, 2), true)})
	q.Insert(Instruction{When: 30, What: Town(social.Settlement{
		Position: world.P(4, 4),
		Class:    social.Town,
		Name:     "Aarhus",
		Nation:   "Kalmar",
	})})

	path := filepath.Join(t.TempDir(), "save.build_service")
	if err := q.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewQueue()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(q.Snapshot(), loaded.Snapshot()) {
		t.Fatalf("round trip diverged:\n%+v\n%+v", q.Snapshot(), loaded.Snapshot())
	}
}

func TestLoadMissingFile(t *testing.T) {
	q := NewQueue()
	if err := q.Load(filepath.Join(t.TempDir(), "absent.build_service")); err == nil {
		t.Fatal("loading a missing file should fail")
	}
}
