package store

import (
	"reflect"
	"sync"
	"testing"

	"pgregory.net/rapid"

	"github.com/dshills/cadence/internal/syllable"
)

var analyzer = syllable.NewAnalyzer(nil)

func TestStore_ApplyAndGet(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}

	r := analyzer.Analyze(3, "hello world")
	s.Apply(r)

	got, ok := s.Get(3)
	if !ok || !reflect.DeepEqual(got, r) {
		t.Errorf("Get(3) = %+v, %v", got, ok)
	}
	if _, ok := s.Get(4); ok {
		t.Error("Get(4) found a result")
	}

	s.Apply(analyzer.Analyze(3, "table"))
	if got, _ := s.Get(3); got.TotalSyllables != 2 {
		t.Errorf("replaced TotalSyllables = %d, want 2", got.TotalSyllables)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_SnapshotIsImmutable(t *testing.T) {
	s := New()
	s.Apply(analyzer.Analyze(0, "one"))
	snap := s.Snapshot()

	s.Apply(analyzer.Analyze(1, "two"))
	s.Prune(0)

	if snap.Len() != 1 {
		t.Errorf("snapshot Len() = %d after later writes, want 1", snap.Len())
	}
	if _, ok := snap.Get(0); !ok {
		t.Error("snapshot lost line 0")
	}
	if s.Len() != 0 {
		t.Errorf("store Len() = %d, want 0", s.Len())
	}
}

func TestStore_Prune(t *testing.T) {
	s := New()
	for i := 0; i < 6; i++ {
		s.Apply(analyzer.Analyze(i, "la"))
	}

	removed := s.Prune(3)
	if want := []int{3, 4, 5}; !reflect.DeepEqual(removed, want) {
		t.Errorf("Prune(3) = %v, want %v", removed, want)
	}
	if got := s.Snapshot().Lines(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Lines() = %v", got)
	}
	if removed := s.Prune(10); removed != nil {
		t.Errorf("Prune(10) = %v, want nil", removed)
	}
}

func TestStore_Clear(t *testing.T) {
	s := New()
	s.Apply(analyzer.Analyze(2, "a"))
	s.Apply(analyzer.Analyze(0, "b"))

	var got Change
	s.Subscribe(func(c Change) { got = c })
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len() = %d after Clear", s.Len())
	}
	if got.Type != ChangeClear || !reflect.DeepEqual(got.Removed, []int{0, 2}) {
		t.Errorf("change = %+v", got)
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := New()
	var changes []Change
	sub := s.Subscribe(func(c Change) { changes = append(changes, c) })

	s.Apply(analyzer.Analyze(0, "hello"))
	s.Apply(analyzer.Analyze(5, "world"))
	s.Prune(1)
	s.Prune(1) // no-op, not published

	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	if changes[0].Type != ChangeApply || changes[0].Line != 0 {
		t.Errorf("change 0 = %+v", changes[0])
	}
	if changes[1].Snapshot.Len() != 2 {
		t.Errorf("change 1 snapshot Len() = %d, want 2", changes[1].Snapshot.Len())
	}
	if changes[2].Type != ChangePrune || !reflect.DeepEqual(changes[2].Removed, []int{5}) {
		t.Errorf("change 2 = %+v", changes[2])
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Apply(analyzer.Analyze(0, "again"))
	if len(changes) != 3 {
		t.Errorf("observer called after Unsubscribe")
	}
}

func TestStore_ObserverSeesUpdate(t *testing.T) {
	s := New()
	s.Subscribe(func(c Change) {
		if _, ok := s.Get(c.Line); !ok {
			t.Errorf("observer ran before line %d was visible", c.Line)
		}
	})
	s.Apply(analyzer.Analyze(9, "visible"))
}

func TestStats(t *testing.T) {
	s := New()
	if st := s.Stats(); st != (Stats{}) {
		t.Errorf("empty Stats() = %+v", st)
	}

	s.Apply(analyzer.Analyze(0, "beautiful day"))
	s.Apply(analyzer.Analyze(1, ""))
	s.Apply(analyzer.Analyze(2, "# -- hello"))
	s.Apply(syllable.LineResult{
		LineNumber: 3,
		Words:      []syllable.WordResult{{Word: "x", Cleaned: "x", BreakPositions: []int{}, Error: "boom"}},
		Errors:     []string{`"x": boom`},
	})

	st := s.Stats()
	want := Stats{
		LinesWithData:  4,
		SungLines:      2,
		Words:          4,
		Syllables:      6,
		ErrorLines:     1,
		AveragePerLine: 3,
	}
	if st != want {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}
}

func TestStats_LinesWithDataCountsEmptyResults(t *testing.T) {
	s := New()
	s.Apply(analyzer.Analyze(0, "hello"))
	s.Apply(analyzer.Analyze(1, "!!! ..."))
	s.Apply(syllable.Empty(2))

	st := s.Stats()
	if st.LinesWithData != 3 {
		t.Errorf("LinesWithData = %d, want 3", st.LinesWithData)
	}
	if st.SungLines != 1 {
		t.Errorf("SungLines = %d, want 1", st.SungLines)
	}
	if st.AveragePerLine != 2 {
		t.Errorf("AveragePerLine = %v, want 2", st.AveragePerLine)
	}

	s.Prune(1)
	if got := s.Stats().LinesWithData; got != 1 {
		t.Errorf("LinesWithData after Prune(1) = %d, want 1", got)
	}
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Apply(analyzer.Analyze(w*200+i, "la la"))
				if i%50 == 0 {
					s.Prune(w*200 + i)
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := s.Snapshot()
				n := 0
				for _, line := range snap.Lines() {
					if _, ok := snap.Get(line); !ok {
						t.Errorf("snapshot missing line %d it listed", line)
						return
					}
					n++
				}
				if n != snap.Len() {
					t.Errorf("Lines() has %d entries, Len() = %d", n, snap.Len())
					return
				}
				_ = s.Stats()
			}
		}()
	}
	wg.Wait()
}

func TestProperty_PruneLeavesNothingPastEnd(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New()
		lines := rapid.SliceOf(rapid.IntRange(0, 100)).Draw(t, "lines")
		for _, n := range lines {
			s.Apply(syllable.Empty(n))
		}
		count := rapid.IntRange(0, 120).Draw(t, "count")
		before := s.Len()

		removed := s.Prune(count)

		for _, line := range s.Snapshot().Lines() {
			if line >= count {
				t.Fatalf("line %d survived Prune(%d)", line, count)
			}
		}
		if s.Len()+len(removed) != before {
			t.Fatalf("Len %d + removed %d != before %d", s.Len(), len(removed), before)
		}
	})
}
