package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/query"
)

type ticket struct {
	model.Base
	Subject  string
	Priority int
	Estimate float64
	Opened   time.Time
	Assignee model.Identifier
}

func (t *ticket) Props() []model.Prop {
	return []model.Prop{
		model.BindString("subject", &t.Subject),
		model.BindInt("priority", &t.Priority),
		model.BindDouble("estimate", &t.Estimate),
		model.BindDate("opened", &t.Opened),
		model.BindForeignKey("assignee_id", &t.Assignee),
	}
}

var _ = model.MustRegister[*ticket]("tickets",
	model.String("subject"),
	model.Int("priority"),
	model.Double("estimate"),
	model.Date("opened"),
	model.ForeignKey(model.Reference{Field: "assignee_id", Table: "users"}),
)

func newStore(t *testing.T) (*Store[*ticket], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s, err := New[*ticket](client, "jrest")
	if err != nil {
		t.Fatal(err)
	}
	return s, mr
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)
	opened := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)

	first := &ticket{Subject: "disk full", Priority: 2, Estimate: 1.25, Opened: opened, Assignee: model.Some(7)}
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.ID != model.Some(1) {
		t.Fatalf("expected id 1, got %v", first.ID)
	}
	second := &ticket{Subject: "printer", Priority: 5}
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	t.Run("Layout", func(t *testing.T) {
		if got := mr.HGet("jrest:tickets:1", "assignee_id"); got != "7" {
			t.Errorf("assignee_id stored as %q", got)
		}
		if got := mr.HGet("jrest:tickets:2", "assignee_id"); got != "" {
			t.Errorf("absent assignee stored as %q", got)
		}
		if got, _ := mr.Get("jrest:tickets:seq"); got != "2" {
			t.Errorf("sequence is %q", got)
		}
	})

	t.Run("Find", func(t *testing.T) {
		got, err := s.Find(ctx, first.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Subject != "disk full" || got.Priority != 2 || got.Estimate != 1.25 ||
			!got.Opened.Equal(opened) || got.Assignee != model.Some(7) {
			t.Errorf("unexpected ticket %+v", got)
		}

		other, err := s.Find(ctx, second.ID)
		if err != nil {
			t.Fatal(err)
		}
		if other.Assignee.Valid {
			t.Errorf("assignee should be absent, got %v", other.Assignee)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := s.Find(ctx, model.Some(99)); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Find(ctx, model.None); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("expected ErrNotFound for None, got %v", err)
		}
		ghost := &ticket{Subject: "ghost"}
		ghost.ID = model.Some(42)
		if err := s.Save(ctx, ghost); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("saving an unknown id should fail, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		first.Priority = 1
		if err := s.Save(ctx, first); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Find(ctx, first.ID)
		if got.Priority != 1 {
			t.Errorf("priority not updated: %+v", got)
		}
	})

	t.Run("All", func(t *testing.T) {
		all, err := s.All(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 2 || all[0].ID != model.Some(1) || all[1].ID != model.Some(2) {
			t.Fatalf("unexpected list %+v", all)
		}

		high, err := s.All(ctx, &query.Filter{Field: "priority", Op: query.Greater, Value: 3})
		if err != nil {
			t.Fatal(err)
		}
		if len(high) != 1 || high[0].Subject != "printer" {
			t.Errorf("unexpected filtered list %+v", high)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete(ctx, second); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, second); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("second delete should report not found, got %v", err)
		}
		if mr.Exists("jrest:tickets:2") {
			t.Error("hash was not removed")
		}

		second.Priority = 4
		if err := s.Save(ctx, second); !errors.Is(err, model.ErrNotFound) {
			t.Errorf("saving a deleted ticket should report not found, got %v", err)
		}
		if mr.Exists("jrest:tickets:2") {
			t.Error("saving a deleted ticket brought its hash back")
		}
		if ids, _ := mr.ZMembers("jrest:tickets:ids"); len(ids) != 1 || ids[0] != "1" {
			t.Errorf("unexpected ids %v", ids)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		for _, subject := range []string{"a", "b"} {
			if err := s.Save(ctx, &ticket{Subject: subject, Priority: 9}); err != nil {
				t.Fatal(err)
			}
		}
		n, err := s.DeleteAll(ctx, query.Eq("priority", 9))
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("expected 2 removed, got %d", n)
		}
		left, _ := s.All(ctx, nil)
		if len(left) != 1 || left[0].ID != model.Some(1) {
			t.Errorf("unexpected remaining %+v", left)
		}
	})
}

func TestFilterKinds(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	for _, subject := range []string{"007", "7"} {
		if err := s.Save(ctx, &ticket{Subject: subject, Assignee: model.Some(3)}); err != nil {
			t.Fatal(err)
		}
	}

	f, err := query.Parse("subject:eq:007")
	if err != nil {
		t.Fatal(err)
	}
	list, err := s.All(ctx, f)
	if err != nil || len(list) != 1 || list[0].Subject != "007" {
		t.Errorf("expected the 007 ticket, got %+v, err %v", list, err)
	}

	f, _ = query.Parse("assignee_id:eq:3")
	if n, err := s.DeleteAll(ctx, f); err != nil || n != 2 {
		t.Errorf("DeleteAll by assignee: %d, err %v", n, err)
	}

	if _, err := s.All(ctx, query.Eq("owner", 1)); !errors.Is(err, query.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestNewUnregistered(t *testing.T) {
	type stray struct{ ticket }
	if _, err := New[*stray](redis.NewClient(&redis.Options{}), "x"); !errors.Is(err, model.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}
