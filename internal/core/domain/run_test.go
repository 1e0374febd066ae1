package domain

import "testing"

func TestRunState_Terminal(t *testing.T) {
	terminal := []RunState{
		RunStateArchived, RunStateRemoved, RunStatePartialFailure,
		RunStateNotFound, RunStateMalformed, RunStateEmpty, RunStateFailed,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s terminal", s)
		}
	}

	active := []RunState{
		RunStatePendingVisibility, RunStateExtracted, RunStateResolved, RunStateLoaded,
	}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %s not terminal", s)
		}
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("doc.json")

	if run.ID == "" {
		t.Error("expected run id")
	}
	if run.ArtifactName != "doc.json" {
		t.Errorf("expected artifact doc.json, got %s", run.ArtifactName)
	}
	if run.State != RunStatePendingVisibility {
		t.Errorf("expected initial state %s, got %s", RunStatePendingVisibility, run.State)
	}
	if run.CompletedAt != nil {
		t.Error("expected no completion timestamp on a fresh run")
	}
}

func TestRun_Finish(t *testing.T) {
	run := NewRun("doc.json")

	run.Finish(RunStateMalformed, "bad json")

	if run.State != RunStateMalformed {
		t.Errorf("expected state %s, got %s", RunStateMalformed, run.State)
	}
	if run.Error != "bad json" {
		t.Errorf("expected error recorded, got %q", run.Error)
	}
	if run.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
}

func TestFaceDocument_FaceIDs(t *testing.T) {
	doc := &FaceDocument{
		Faces: []FaceRecord{{ID: "a"}, {ID: "b"}, {ID: "a"}},
	}

	ids := doc.FaceIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "a" {
		t.Errorf("expected document order preserved, got %v", ids)
	}
}

func TestRow_FaceID(t *testing.T) {
	row := Row{Faces: []FaceRecord{{ID: "f1"}}}
	if row.FaceID() != "f1" {
		t.Errorf("expected f1, got %s", row.FaceID())
	}

	empty := Row{}
	if empty.FaceID() != "" {
		t.Errorf("expected empty id, got %s", empty.FaceID())
	}
}

func TestExistingIDSet_Contains(t *testing.T) {
	set := ExistingIDSet{"a": {}}

	if !set.Contains("a") {
		t.Error("expected a present")
	}
	if set.Contains("b") {
		t.Error("expected b absent")
	}

	var nilSet ExistingIDSet
	if nilSet.Contains("a") {
		t.Error("expected nil set to contain nothing")
	}
}
