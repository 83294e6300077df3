package store

import (
	"path/filepath"
	"testing"
)

func TestPutList(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer db.Close()

	results := []Result{
		{Run: "a", Kind: "sweep", MaxDim: 4, Key: "fidelity", Value: 0.5},
		{Run: "a", Kind: "sweep", MaxDim: 2, Key: "fidelity", Value: 0.25},
		{Run: "b", Kind: "quench", Step: 1, Key: "Z[0]", Value: -1},
	}
	if err := db.Put(results...); err != nil {
		t.Fatalf("%+v", err)
	}
	// Replace a value.
	if err := db.Put(Result{Run: "a", Kind: "sweep", MaxDim: 4, Key: "fidelity", Value: 0.75}); err != nil {
		t.Fatalf("%+v", err)
	}

	got, err := db.List("a")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	expected := []Result{
		{Run: "a", Kind: "sweep", MaxDim: 2, Key: "fidelity", Value: 0.25},
		{Run: "a", Kind: "sweep", MaxDim: 4, Key: "fidelity", Value: 0.75},
	}
	if len(got) != len(expected) {
		t.Fatalf("%#v, expected %#v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("%d %#v, expected %#v", i, got[i], expected[i])
		}
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(runs) != 2 || runs[0] != "a" || runs[1] != "b" {
		t.Fatalf("%#v", runs)
	}

	none, err := db.List("c")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(none) != 0 {
		t.Fatalf("%#v", none)
	}
}

func TestReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := db.Put(Result{Run: "a", Kind: "ground", Key: "energy", Value: -3}); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("%+v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer db.Close()
	got, err := db.List("a")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(got) != 1 || got[0].Value != -3 {
		t.Fatalf("%#v", got)
	}
}
