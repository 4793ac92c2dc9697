package database

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/kozaktomas/securebase/internal/facematch"
)

func randomDescriptor(r *rand.Rand) facematch.Descriptor {
	d := make(facematch.Descriptor, facematch.DescriptorDim)
	for i := range d {
		d[i] = r.Float32()*0.2 - 0.1
	}
	return d
}

func TestDescriptorIndex_SearchFindsExactMatch(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	faces := make([]StoredFace, 50)
	for i := range faces {
		faces[i] = StoredFace{UserID: string(rune('A' + i)), Descriptor: randomDescriptor(r)}
	}

	idx := NewDescriptorIndex()
	idx.Build(faces)

	if idx.Count() != len(faces) {
		t.Fatalf("Count() = %d, want %d", idx.Count(), len(faces))
	}

	target := faces[17]
	candidates, err := idx.Search(target.Descriptor, HNSWSearchCandidates)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	m, ok := facematch.FindBestMatch(target.Descriptor, candidates, facematch.DefaultThreshold)
	if !ok {
		t.Fatal("expected a match")
	}
	if m.UserID != target.UserID {
		t.Errorf("UserID = %s, want %s", m.UserID, target.UserID)
	}
	if m.Distance != 0 {
		t.Errorf("Distance = %v, want 0", m.Distance)
	}
}

func TestDescriptorIndex_SkipsInvalid(t *testing.T) {
	idx := NewDescriptorIndex()
	idx.Build([]StoredFace{
		{UserID: "short", Descriptor: facematch.Descriptor{1, 2, 3}},
		{UserID: "empty"},
	})
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}

	idx.Add(StoredFace{UserID: "short", Descriptor: facematch.Descriptor{1}})
	if idx.Count() != 0 {
		t.Errorf("Count() after invalid Add = %d, want 0", idx.Count())
	}
}

func TestDescriptorIndex_AddReplaceDelete(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	idx := NewDescriptorIndex()

	a := StoredFace{UserID: "a", Descriptor: randomDescriptor(r)}
	b := StoredFace{UserID: "b", Descriptor: randomDescriptor(r)}
	idx.Add(a)
	idx.Add(b)
	if idx.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", idx.Count())
	}

	// Replacing a's descriptor keeps the count stable.
	a.Descriptor = randomDescriptor(r)
	idx.Add(a)
	if idx.Count() != 2 {
		t.Errorf("Count() after replace = %d, want 2", idx.Count())
	}

	idx.Delete("a")
	if idx.Count() != 1 {
		t.Errorf("Count() after delete = %d, want 1", idx.Count())
	}

	idx.Delete("b")
	if idx.Count() != 0 {
		t.Errorf("Count() after deleting last = %d, want 0", idx.Count())
	}
	if got, err := idx.Search(a.Descriptor, 3); err != nil || got != nil {
		t.Errorf("Search() on empty index = %v, %v, want nil, nil", got, err)
	}

	// Deleting an unknown user is a no-op.
	idx.Delete("missing")
}

// exactBest is the reference answer: a linear scan over the surviving faces.
func exactBest(t *testing.T, query facematch.Descriptor, live map[string]facematch.Descriptor) facematch.Match {
	t.Helper()
	candidates := make([]facematch.Candidate, 0, len(live))
	for id, d := range live {
		candidates = append(candidates, facematch.Candidate{UserID: id, Descriptor: d})
	}
	m, ok := facematch.FindBestMatch(query, candidates, facematch.DefaultThreshold)
	if !ok {
		t.Fatal("reference scan found no candidate")
	}
	return m
}

func indexBest(t *testing.T, idx *DescriptorIndex, query facematch.Descriptor) facematch.Match {
	t.Helper()
	candidates, err := idx.Search(query, HNSWSearchCandidates)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	m, ok := facematch.FindBestMatch(query, candidates, facematch.DefaultThreshold)
	if !ok {
		t.Fatal("Search() returned no candidate")
	}
	return m
}

// nudge returns a copy of d moved slightly, far closer to d than any other
// random descriptor.
func nudge(r *rand.Rand, d facematch.Descriptor) facematch.Descriptor {
	out := make(facematch.Descriptor, len(d))
	for i := range d {
		out[i] = d[i] + r.Float32()*0.002 - 0.001
	}
	return out
}

func TestDescriptorIndex_SearchAfterDelete(t *testing.T) {
	for pairs := 1; pairs <= 20; pairs++ {
		n := 2 * pairs
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			r := rand.New(rand.NewSource(int64(n)))
			idx := NewDescriptorIndex()
			live := make(map[string]facematch.Descriptor, n)
			deleted := make(map[string]facematch.Descriptor)

			// Users come in twins with almost identical faces, so the
			// nearest survivor of a deleted user is unambiguous.
			for p := 0; p < pairs; p++ {
				base := randomDescriptor(r)
				for _, f := range []StoredFace{
					{UserID: fmt.Sprintf("u%d", 2*p), Descriptor: base},
					{UserID: fmt.Sprintf("u%d", 2*p+1), Descriptor: nudge(r, base)},
				} {
					idx.Add(f)
					live[f.UserID] = f.Descriptor
				}
			}

			// Delete one twin from every other pair, always including u0.
			for p := 0; p < pairs; p += 2 {
				id := fmt.Sprintf("u%d", 2*p)
				idx.Delete(id)
				deleted[id] = live[id]
				delete(live, id)
			}
			if idx.Count() != len(live) {
				t.Fatalf("Count() = %d, want %d", idx.Count(), len(live))
			}

			for id, d := range live {
				if got := indexBest(t, idx, d); got.UserID != id || got.Distance != 0 {
					t.Errorf("Search(%s) = %s at %v, want itself at 0", id, got.UserID, got.Distance)
				}
			}
			for id, d := range deleted {
				got := indexBest(t, idx, d)
				if _, gone := deleted[got.UserID]; gone {
					t.Errorf("Search(%s) returned deleted user %s", id, got.UserID)
				}
				want := exactBest(t, d, live)
				if got.UserID != want.UserID || got.Distance != want.Distance {
					t.Errorf("Search(%s) = %s at %v, scan found %s at %v", id, got.UserID, got.Distance, want.UserID, want.Distance)
				}
			}
		})
	}
}

func TestDescriptorIndex_ReplaceChurn(t *testing.T) {
	r := rand.New(rand.NewSource(600))
	idx := NewDescriptorIndex()
	live := make(map[string]facematch.Descriptor)

	const users = 60
	for round := 0; round < 10; round++ {
		for i := 0; i < users; i++ {
			f := StoredFace{UserID: fmt.Sprintf("u%d", i), Descriptor: randomDescriptor(r)}
			idx.Add(f)
			live[f.UserID] = f.Descriptor
		}
		if idx.dead > HNSWMaxDeadNodes || idx.dead > len(idx.live) {
			t.Fatalf("round %d: %d dead nodes for %d live, want compaction", round, idx.dead, len(idx.live))
		}
	}
	if idx.Count() != users {
		t.Fatalf("Count() = %d, want %d", idx.Count(), users)
	}

	for id, d := range live {
		if got := indexBest(t, idx, d); got.UserID != id || got.Distance != 0 {
			t.Errorf("Search(%s) = %s at %v, want itself at 0", id, got.UserID, got.Distance)
		}
	}
}

func TestDescriptorIndex_DeletingEverythingCompacts(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	idx := NewDescriptorIndex()
	for i := 0; i < 5; i++ {
		idx.Add(StoredFace{UserID: fmt.Sprintf("u%d", i), Descriptor: randomDescriptor(r)})
	}
	for i := 0; i < 5; i++ {
		idx.Delete(fmt.Sprintf("u%d", i))
	}
	if idx.dead != 0 || idx.graph.Len() != 0 {
		t.Errorf("dead = %d, graph size = %d, want an empty graph", idx.dead, idx.graph.Len())
	}

	f := StoredFace{UserID: "again", Descriptor: randomDescriptor(r)}
	idx.Add(f)
	if got := indexBest(t, idx, f.Descriptor); got.UserID != "again" {
		t.Errorf("Search() = %s, want again", got.UserID)
	}
}

func TestDescriptorIndex_SearchRejectsWrongDimension(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	idx := NewDescriptorIndex()
	idx.Add(StoredFace{UserID: "a", Descriptor: randomDescriptor(r)})
	if _, err := idx.Search(facematch.Descriptor{1, 2}, 1); err == nil {
		t.Error("Search() with a short query should fail")
	}
}
