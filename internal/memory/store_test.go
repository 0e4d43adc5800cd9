package memory

import "testing"

func TestAppendAndMessages(t *testing.T) {
	s := NewStore(10)
	s.Append("u1", "user", "hola")
	s.Append("u1", "assistant", "buenas")
	s.Append("u2", "user", "otro usuario")

	got := s.Messages("u1")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Role != "user" || got[0].Content != "hola" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Role != "assistant" {
		t.Errorf("second = %+v", got[1])
	}
	if len(s.Messages("u2")) != 1 {
		t.Error("u2 history leaked or missing")
	}
}

func TestBoundDropsOldest(t *testing.T) {
	s := NewStore(2)
	s.Append("u1", "user", "uno")
	s.Append("u1", "user", "dos")
	s.Append("u1", "user", "tres")

	got := s.Messages("u1")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "dos" || got[1].Content != "tres" {
		t.Errorf("kept %q and %q, want dos and tres", got[0].Content, got[1].Content)
	}
}

func TestClear(t *testing.T) {
	s := NewStore(5)
	s.Append("u1", "user", "hola")
	s.Clear("u1")
	if len(s.Messages("u1")) != 0 {
		t.Error("history survived Clear")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore(5)
	s.Append("u1", "user", "original")
	got := s.Messages("u1")
	got[0].Content = "mutated"
	if s.Messages("u1")[0].Content != "original" {
		t.Error("Messages exposed internal slice")
	}
}

func TestStats(t *testing.T) {
	s := NewStore(7)
	s.Append("a", "user", "x")
	s.Append("b", "user", "y")
	s.Append("b", "assistant", "z")

	stats := s.Stats()
	if stats["users"] != 2 || stats["messages"] != 3 || stats["max_per_user"] != 7 {
		t.Errorf("stats = %v", stats)
	}
}
