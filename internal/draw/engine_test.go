package draw

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"prizedraw/internal/models"
)

func people(ids ...string) []models.Participant {
	out := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Participant{ID: id, Name: "name-" + id})
	}
	return out
}

func newTestEngine(t *testing.T, seed uint64, allowRepeat bool, lists ...models.ParticipantListData) *Engine {
	t.Helper()
	roster, err := NewRoster(lists)
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	return NewEngine(roster, NewSampler(rand.NewPCG(seed, seed+1)), models.Settings{AllowRepeat: allowRepeat})
}

func list(id string, ids ...string) models.ParticipantListData {
	return models.ParticipantListData{
		List:         models.ParticipantList{ID: id, Name: "list-" + id},
		Participants: people(ids...),
	}
}

func ids(ps []models.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestEngine_BatchDraw(t *testing.T) {
	t.Run("Scenario A: two of three, third stays eligible", func(t *testing.T) {
		for seed := uint64(0); seed < 50; seed++ {
			e := newTestEngine(t, seed, false, list("l1", "X", "Y", "Z"))
			first := NewSession(models.Prize{ID: "p1", Name: "First", DrawCount: 2})

			out, err := e.Draw(first, Batch)
			if err != nil {
				t.Fatalf("seed %d: expected no error, got %v", seed, err)
			}
			if len(out.Winners) != 2 || len(first.Winners()) != 2 {
				t.Fatalf("seed %d: expected 2 winners, got %v", seed, ids(first.Winners()))
			}
			if out.Exhausted {
				t.Errorf("seed %d: a full prize must not be reported exhausted", seed)
			}

			second := NewSession(models.Prize{ID: "p2", Name: "Second", DrawCount: 1})
			pool, err := e.Eligible(second)
			if err != nil {
				t.Fatalf("seed %d: Eligible: %v", seed, err)
			}
			if len(pool) != 1 || first.HasWinner(pool[0].ID) {
				t.Fatalf("seed %d: expected the one remaining participant, got %v", seed, ids(pool))
			}
		}
	})

	t.Run("Scenario B: short pool commits what exists and is exhausted", func(t *testing.T) {
		e := newTestEngine(t, 1, false, list("l1", "A", "B"))
		s := NewSession(models.Prize{ID: "p1", Name: "Big", DrawCount: 3})

		out, err := e.Draw(s, Batch)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Requested != 3 || len(out.Winners) != 2 {
			t.Fatalf("expected 2 of 3 requested, got %d of %d", len(out.Winners), out.Requested)
		}
		if !out.Exhausted {
			t.Errorf("expected outcome to be exhausted")
		}

		p, err := e.Progress(s.Prize(), s)
		if err != nil {
			t.Fatalf("Progress: %v", err)
		}
		if p.Status != StatusCompleted || !p.Exhausted || p.Shortfall != 1 {
			t.Errorf("expected completed/exhausted with shortfall 1, got %+v", p)
		}

		if _, err := e.Draw(s, Stepwise); !errors.Is(err, ErrInsufficientPool) {
			t.Errorf("expected ErrInsufficientPool on empty pool, got %v", err)
		}
		if len(s.Winners()) != 2 {
			t.Errorf("failed draw must not change the session, got %v", ids(s.Winners()))
		}
	})

	t.Run("full prize refuses further draws", func(t *testing.T) {
		e := newTestEngine(t, 2, false, list("l1", "A", "B", "C"))
		s := NewSession(models.Prize{ID: "p1", Name: "One", DrawCount: 1})
		if _, err := e.Draw(s, Batch); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := e.Draw(s, Stepwise); !errors.Is(err, ErrPrizeComplete) {
			t.Fatalf("expected ErrPrizeComplete, got %v", err)
		}
	})
}

func TestEngine_StepwiseDraw(t *testing.T) {
	e := newTestEngine(t, 3, false, list("l1", "A", "B", "C", "D", "E"))
	s := NewSession(models.Prize{ID: "p1", Name: "Steps", DrawCount: 3})

	for i := 1; i <= 3; i++ {
		out, err := e.Draw(s, Stepwise)
		if err != nil {
			t.Fatalf("step %d: expected no error, got %v", i, err)
		}
		if len(out.Winners) != 1 {
			t.Fatalf("step %d: expected one winner, got %d", i, len(out.Winners))
		}
		got := s.Winners()
		if len(got) != i || got[i-1].ID != out.Winners[0].ID {
			t.Fatalf("step %d: expected winner appended in order, got %v", i, ids(got))
		}
		p, _ := e.Progress(s.Prize(), s)
		want := StatusPartial
		if i == 3 {
			want = StatusCompleted
		}
		if p.Status != want {
			t.Errorf("step %d: expected status %s, got %s", i, want, p.Status)
		}
	}
	if e.Roster().SelectedCount() != 3 {
		t.Errorf("expected 3 selected participants, got %d", e.Roster().SelectedCount())
	}
}

func TestEngine_CrossPrizeExclusivity(t *testing.T) {
	for seed := uint64(0); seed < 30; seed++ {
		e := newTestEngine(t, seed, false,
			list("l1", "a1", "a2", "a3", "a4"),
			list("l2", "b1", "b2", "b3"))
		prizes := []models.Prize{
			{ID: "p1", Name: "Bound", DrawCount: 3, BoundListID: "l2"},
			{ID: "p2", Name: "Open", DrawCount: 3},
			{ID: "p3", Name: "Rest", DrawCount: 5},
		}
		owner := make(map[string]string)
		for _, prize := range prizes {
			s := NewSession(prize)
			if _, err := e.Draw(s, Batch); err != nil && !errors.Is(err, ErrInsufficientPool) {
				t.Fatalf("seed %d: %s: %v", seed, prize.Name, err)
			}
			if len(s.Winners()) > prize.DrawCount {
				t.Fatalf("seed %d: %s exceeded its draw count", seed, prize.Name)
			}
			for _, w := range s.Winners() {
				if prev, ok := owner[w.ID]; ok {
					t.Fatalf("seed %d: %s won both %s and %s", seed, w.ID, prev, prize.ID)
				}
				owner[w.ID] = prize.ID
			}
		}
		for id, prizeID := range owner {
			if prizeID == "p1" && id[0] != 'b' {
				t.Fatalf("seed %d: bound prize drew %s from outside its list", seed, id)
			}
		}
	}
}

func TestEngine_AllowRepeat(t *testing.T) {
	e := newTestEngine(t, 4, true, list("l1", "A", "B"))
	first := NewSession(models.Prize{ID: "p1", Name: "First", DrawCount: 2})
	second := NewSession(models.Prize{ID: "p2", Name: "Second", DrawCount: 2})

	if _, err := e.Draw(first, Batch); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	out, err := e.Draw(second, Batch)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.Winners) != 2 || out.Winners[0].ID == out.Winners[1].ID {
		t.Fatalf("expected two distinct winners, got %v", ids(out.Winners))
	}
	if e.Roster().SelectedCount() != 0 {
		t.Errorf("selected flag must not be set when repeats are allowed")
	}
}

func TestEngine_Redraw(t *testing.T) {
	t.Run("empty input is a no-op", func(t *testing.T) {
		e := newTestEngine(t, 5, false, list("l1", "A", "B", "C"))
		s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 2})
		if _, err := e.Draw(s, Batch); err != nil {
			t.Fatal(err)
		}
		before := ids(s.Winners())
		got, err := e.MarkAbsentAndRedraw(s, nil)
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil; got %v, %v", got, err)
		}
		if fmt.Sprint(before) != fmt.Sprint(ids(s.Winners())) || len(s.Excluded()) != 0 {
			t.Fatalf("session changed on empty redraw")
		}
	})

	t.Run("Scenario C: absent winner replaced and excluded for good", func(t *testing.T) {
		for seed := uint64(0); seed < 40; seed++ {
			e := newTestEngine(t, seed, false, list("l1", "A", "B", "C", "D"))
			s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 2})
			if err := e.Commit(s, people("A", "B")); err != nil {
				t.Fatalf("Commit: %v", err)
			}

			got, err := e.MarkAbsentAndRedraw(s, []string{"A"})
			if err != nil {
				t.Fatalf("seed %d: expected no error, got %v", seed, err)
			}
			if len(got) != 1 || (got[0].ID != "C" && got[0].ID != "D") {
				t.Fatalf("seed %d: expected C or D, got %v", seed, ids(got))
			}
			w := ids(s.Winners())
			if len(w) != 2 || w[0] != "B" || w[1] != got[0].ID {
				t.Fatalf("seed %d: expected [B %s], got %v", seed, got[0].ID, w)
			}
			if e.Roster().IsSelected("A") {
				t.Errorf("seed %d: absent winner should be released globally", seed)
			}

			second, err := e.MarkAbsentAndRedraw(s, []string{got[0].ID})
			if err != nil {
				t.Fatalf("seed %d: second redraw: %v", seed, err)
			}
			if len(second) != 1 || second[0].ID == "A" || second[0].ID == got[0].ID {
				t.Fatalf("seed %d: excluded participant came back: %v", seed, ids(second))
			}
			for _, id := range ids(s.Winners()) {
				if s.IsExcluded(id) {
					t.Fatalf("seed %d: excluded %s is a winner", seed, id)
				}
			}
		}
	})

	t.Run("insufficient pool leaves session unchanged", func(t *testing.T) {
		e := newTestEngine(t, 6, false, list("l1", "A", "B", "C"))
		s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 2})
		if err := e.Commit(s, people("A", "B")); err != nil {
			t.Fatal(err)
		}
		_, err := e.MarkAbsentAndRedraw(s, []string{"A", "B"})
		if !errors.Is(err, ErrInsufficientPool) {
			t.Fatalf("expected ErrInsufficientPool, got %v", err)
		}
		if w := ids(s.Winners()); len(w) != 2 || w[0] != "A" || w[1] != "B" {
			t.Errorf("expected winners unchanged, got %v", w)
		}
		if len(s.Excluded()) != 0 {
			t.Errorf("expected no exclusions, got %v", s.Excluded())
		}
		if !e.Roster().IsSelected("A") {
			t.Errorf("expected A to stay selected")
		}
	})

	t.Run("unknown participant is rejected", func(t *testing.T) {
		e := newTestEngine(t, 7, false, list("l1", "A", "B", "C"))
		s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 1})
		if err := e.Commit(s, people("A")); err != nil {
			t.Fatal(err)
		}
		if _, err := e.MarkAbsentAndRedraw(s, []string{"C"}); !errors.Is(err, ErrUnknownParticipant) {
			t.Fatalf("expected ErrUnknownParticipant, got %v", err)
		}
	})

	t.Run("toggling back to present before redraw restores winner", func(t *testing.T) {
		e := newTestEngine(t, 8, false, list("l1", "A", "B", "C"))
		s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 2})
		if err := e.Commit(s, people("A", "B")); err != nil {
			t.Fatal(err)
		}
		if err := s.SetAbsent("A", true); err != nil {
			t.Fatal(err)
		}
		if !s.Winners()[0].IsAbsent {
			t.Errorf("expected A flagged absent in the view")
		}
		if err := s.SetAbsent("A", false); err != nil {
			t.Fatal(err)
		}
		got, err := e.Redraw(s)
		if err != nil || got != nil {
			t.Fatalf("expected no-op redraw, got %v, %v", got, err)
		}
		if s.IsExcluded("A") || !s.HasWinner("A") {
			t.Errorf("expected A restored with no exclusion")
		}
	})

	t.Run("pending absentees are redrawn together", func(t *testing.T) {
		e := newTestEngine(t, 9, false, list("l1", "A", "B", "C", "D", "E"))
		s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 3})
		if err := e.Commit(s, people("A", "B", "C")); err != nil {
			t.Fatal(err)
		}
		_ = s.SetAbsent("A", true)
		_ = s.SetAbsent("C", true)
		got, err := e.Redraw(s)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 replacements, got %v", ids(got))
		}
		if len(s.PendingAbsent()) != 0 {
			t.Errorf("expected pending absentees cleared, got %v", s.PendingAbsent())
		}
		if len(s.Winners()) != 3 {
			t.Errorf("expected 3 winners, got %v", ids(s.Winners()))
		}
	})
}

func TestEngine_CommitRejectsDuplicates(t *testing.T) {
	e := newTestEngine(t, 10, false, list("l1", "A", "B"))
	s := NewSession(models.Prize{ID: "p1", Name: "P", DrawCount: 3})
	if err := e.Commit(s, people("A", "A")); err == nil {
		t.Fatal("expected an error for a duplicate winner")
	}
	if len(s.Winners()) != 0 {
		t.Errorf("rejected commit must not change the session")
	}
	if err := e.Commit(s, people("A", "B", "A", "B")); !errors.Is(err, ErrPrizeComplete) {
		t.Errorf("expected ErrPrizeComplete when overfilling, got %v", err)
	}
}
