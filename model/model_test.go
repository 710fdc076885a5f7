package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shrek82/jrest/logger"
)

type testTask struct {
	Base
	Title    string
	Status   string
	Priority int
	Estimate float64
	Due      time.Time
	Owner    Identifier
}

func (t *testTask) Props() []Prop {
	return []Prop{
		BindString("title", &t.Title),
		BindString("status", &t.Status),
		BindInt("priority", &t.Priority),
		BindDouble("estimate", &t.Estimate),
		BindDate("due", &t.Due),
		BindForeignKey("owner_id", &t.Owner),
	}
}

var testTaskDefs = []Def{
	String("title"),
	String("status"),
	Int("priority"),
	Double("estimate"),
	Date("due"),
	ForeignKey(Reference{Field: "owner_id", Table: "owners"}),
}

// testSwapped declares "title" as an int where testTask has a string.
type testSwapped struct {
	Base
	Title int
}

func (s *testSwapped) Props() []Prop {
	return []Prop{BindInt("title", &s.Title)}
}

func sampleTask() *testTask {
	return &testTask{
		Base:     Base{ID: Some(7)},
		Title:    "write docs",
		Status:   "active",
		Priority: 3,
		Estimate: 2.5,
		Due:      time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Owner:    Some(4),
	}
}

func assertSameFields(t *testing.T, want, got *testTask) {
	t.Helper()
	if got.Title != want.Title || got.Status != want.Status {
		t.Errorf("strings differ: want %q/%q, got %q/%q", want.Title, want.Status, got.Title, got.Status)
	}
	if got.Priority != want.Priority {
		t.Errorf("priority: want %d, got %d", want.Priority, got.Priority)
	}
	if got.Estimate != want.Estimate {
		t.Errorf("estimate: want %v, got %v", want.Estimate, got.Estimate)
	}
	if !got.Due.Equal(want.Due) {
		t.Errorf("due: want %v, got %v", want.Due, got.Due)
	}
	if got.Owner != want.Owner {
		t.Errorf("owner: want %v, got %v", want.Owner, got.Owner)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, src := range []*testTask{sampleTask(), {}} {
		data, err := EncodeJSON(src)
		if err != nil {
			t.Fatalf("EncodeJSON failed: %v", err)
		}

		got, err := DecodeJSON[*testTask](data)
		if err != nil {
			t.Fatalf("DecodeJSON(%s) failed: %v", data, err)
		}
		assertSameFields(t, src, got)

		if got.ID.Valid {
			t.Errorf("identifier must not be taken from the wire, got %v", got.ID)
		}
	}
}

func TestSetJSONLenient(t *testing.T) {
	t.Run("MissingKeys", func(t *testing.T) {
		task := sampleTask()
		doc, err := ParseDocument([]byte(`{"status":"done","priority":9}`))
		if err != nil {
			t.Fatal(err)
		}
		SetJSON(task, doc)

		want := sampleTask()
		want.Status = "done"
		want.Priority = 9
		assertSameFields(t, want, task)
	})

	t.Run("WrongKinds", func(t *testing.T) {
		task := sampleTask()
		doc, err := ParseDocument([]byte(`{
			"title": 12,
			"priority": "high",
			"estimate": 4,
			"due": "tomorrow",
			"owner_id": "x",
			"status": "blocked"
		}`))
		if err != nil {
			t.Fatal(err)
		}
		SetJSON(task, doc)

		want := sampleTask()
		want.Estimate = 4
		want.Status = "blocked"
		assertSameFields(t, want, task)
	})

	t.Run("NullClearsForeignKey", func(t *testing.T) {
		task := sampleTask()
		SetJSON(task, Document{"owner_id": nil})
		if task.Owner.Valid {
			t.Errorf("expected owner to be cleared, got %v", task.Owner)
		}
	})

	t.Run("FractionalInt", func(t *testing.T) {
		task := sampleTask()
		doc, _ := ParseDocument([]byte(`{"priority": 1.5}`))
		SetJSON(task, doc)
		if task.Priority != 3 {
			t.Errorf("fractional number must not set an int, got %d", task.Priority)
		}
	})
}

func TestRowRoundTrip(t *testing.T) {
	src := sampleTask()
	row := MakeRow(src)

	if len(row) != len(testTaskDefs)+1 {
		t.Errorf("expected %d columns, got %d: %v", len(testTaskDefs)+1, len(row), row)
	}

	got := &testTask{}
	if err := SetRow(got, row); err != nil {
		t.Fatalf("SetRow failed: %v", err)
	}
	assertSameFields(t, src, got)
	if got.ID != src.ID {
		t.Errorf("identifier: want %v, got %v", src.ID, got.ID)
	}

	t.Run("NoIdentifierBeforeSave", func(t *testing.T) {
		row := MakeRow(&testTask{})
		if _, ok := row[IDColumn]; ok {
			t.Errorf("unsaved entity must not write %q", IDColumn)
		}
	})

	t.Run("DriverShapes", func(t *testing.T) {
		row := Row{
			"id":       int64(11),
			"title":    []byte("bytes title"),
			"status":   "active",
			"priority": int64(5),
			"estimate": []byte("1.25"),
			"due":      "2026-03-01 12:30:00",
			"owner_id": nil,
		}
		got := &testTask{}
		if err := SetRow(got, row); err != nil {
			t.Fatalf("SetRow failed: %v", err)
		}
		if got.ID != Some(11) || got.Title != "bytes title" || got.Priority != 5 || got.Estimate != 1.25 {
			t.Errorf("unexpected entity %+v", got)
		}
		if got.Owner.Valid {
			t.Errorf("NULL owner must be none, got %v", got.Owner)
		}
		if !got.Due.Equal(time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)) {
			t.Errorf("unexpected due %v", got.Due)
		}
	})

	t.Run("MissingColumn", func(t *testing.T) {
		row := MakeRow(sampleTask())
		delete(row, "estimate")
		err := SetRow(&testTask{}, row)
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})

	t.Run("MistypedColumn", func(t *testing.T) {
		row := MakeRow(sampleTask())
		row["priority"] = "high"
		err := SetRow(&testTask{}, row)
		if !errors.Is(err, ErrColumnType) {
			t.Errorf("expected ErrColumnType, got %v", err)
		}
	})
}

func TestDescribe(t *testing.T) {
	got := Describe(sampleTask())
	want := "title: write docs status: active priority: 3 estimate: 2.5 due: 2026-03-01T12:30:00Z owner_id: some(4) "
	if got != want {
		t.Errorf("Describe:\nwant %q\n got %q", want, got)
	}

	if s := Describe(&testTask{}); !strings.HasSuffix(s, "owner_id: none ") {
		t.Errorf("absent foreign key should render none, got %q", s)
	}
}

type recordingBuilder struct {
	calls []string
}

func (b *recordingBuilder) ID()                     { b.calls = append(b.calls, "id") }
func (b *recordingBuilder) Int(name string)         { b.calls = append(b.calls, "int "+name) }
func (b *recordingBuilder) String(name string)      { b.calls = append(b.calls, "string "+name) }
func (b *recordingBuilder) Double(name string)      { b.calls = append(b.calls, "double "+name) }
func (b *recordingBuilder) Date(name string)        { b.calls = append(b.calls, "date "+name) }
func (b *recordingBuilder) OptionalInt(name string) { b.calls = append(b.calls, "int? "+name) }
func (b *recordingBuilder) ForeignKey(ref Reference) {
	b.calls = append(b.calls, "fk "+ref.String())
}

func TestDeclare(t *testing.T) {
	b := &recordingBuilder{}
	Declare(b, testTaskDefs)

	want := []string{
		"id",
		"string title",
		"string status",
		"int priority",
		"double estimate",
		"date due",
		"int? owner_id",
		"fk owner_id>owners.id",
	}
	if strings.Join(b.calls, "|") != strings.Join(want, "|") {
		t.Errorf("Declare:\nwant %v\n got %v", want, b.calls)
	}
}

func TestUpdateKeys(t *testing.T) {
	keys := UpdateKeys(testTaskDefs)
	if len(keys) != len(testTaskDefs) {
		t.Fatalf("expected %d keys, got %d", len(testTaskDefs), len(keys))
	}

	t.Run("Apply", func(t *testing.T) {
		task := sampleTask()
		if err := keys[1].Apply(task, "done"); err != nil {
			t.Fatal(err)
		}
		if err := keys[5].Apply(task, None); err != nil {
			t.Fatal(err)
		}
		if task.Status != "done" || task.Owner.Valid {
			t.Errorf("keys not applied: %+v", task)
		}
	})

	t.Run("ValueType", func(t *testing.T) {
		task := sampleTask()
		err := keys[2].Apply(task, "3")
		if !errors.Is(err, ErrValueType) {
			t.Errorf("expected ErrValueType, got %v", err)
		}
		if task.Priority != 3 {
			t.Errorf("priority changed to %d", task.Priority)
		}
	})

	t.Run("KindMismatch", func(t *testing.T) {
		prev := logger.Default
		logger.Default = logger.Discard()
		defer func() { logger.Default = prev }()

		// keys[0] is the string key "title"; testSwapped holds an int there.
		swapped := &testSwapped{Title: 1}
		err := keys[0].Apply(swapped, "text")
		if !errors.Is(err, ErrKindMismatch) {
			t.Errorf("expected ErrKindMismatch, got %v", err)
		}
		if swapped.Title != 1 {
			t.Errorf("mismatched descriptor must not change, got %d", swapped.Title)
		}

		// Out of range positions are the same fault.
		err = keys[4].Apply(swapped, time.Now())
		if !errors.Is(err, ErrKindMismatch) {
			t.Errorf("expected ErrKindMismatch for missing descriptor, got %v", err)
		}
	})
}

func TestMerge(t *testing.T) {
	keys := UpdateKeys(testTaskDefs)
	task := sampleTask()
	doc, err := ParseDocument([]byte(`{"title":"renamed","priority":"urgent","owner_id":9}`))
	if err != nil {
		t.Fatal(err)
	}

	if err := Merge(task, doc, keys); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	want := sampleTask()
	want.Title = "renamed"
	want.Owner = Some(9)
	assertSameFields(t, want, task)
}

func TestRegister(t *testing.T) {
	m, err := Register[*testTask]("", testTaskDefs...)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if m.Table != "test_task" {
		t.Errorf("expected derived table test_task, got %q", m.Table)
	}
	if len(m.Keys) != len(testTaskDefs) {
		t.Errorf("expected %d update keys, got %d", len(testTaskDefs), len(m.Keys))
	}

	again, err := Register[*testTask]("", testTaskDefs...)
	if err != nil || again != m {
		t.Errorf("re-registration should return the cached meta, got %p, %v", again, err)
	}

	if _, err := Register[*testTask]("other"); err == nil {
		t.Error("expected conflicting registration to fail")
	}

	found, err := Lookup[*testTask]()
	if err != nil || found != m {
		t.Errorf("Lookup returned %p, %v", found, err)
	}
	if byValue, err := MetaOf(sampleTask()); err != nil || byValue != m {
		t.Errorf("MetaOf returned %p, %v", byValue, err)
	}

	t.Run("Mismatch", func(t *testing.T) {
		_, err := Register[*testSwapped]("swapped", String("title"))
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("expected ErrSchemaMismatch, got %v", err)
		}
		_, err = Register[*testSwapped]("swapped", Int("title"), Int("extra"))
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("expected ErrSchemaMismatch for cardinality, got %v", err)
		}
		if _, err := Lookup[*testSwapped](); !errors.Is(err, ErrNotRegistered) {
			t.Errorf("failed registration must not be cached, got %v", err)
		}
	})
}

type testNote struct {
	Base
	Body string
}

func (n *testNote) Props() []Prop { return []Prop{BindString("body", &n.Body)} }

func TestRegisterConcurrent(t *testing.T) {
	const goroutines = 20
	const iterations = 50

	var wg sync.WaitGroup
	metas := make(chan *Meta, goroutines*iterations)
	errs := make(chan error, goroutines*iterations)

	for i := range goroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range iterations {
				m, err := Register[*testNote]("notes", String("body"))
				if err != nil {
					errs <- fmt.Errorf("goroutine %d iteration %d: %v", id, j, err)
					return
				}
				if found, err := Lookup[*testNote](); err != nil || found != m {
					errs <- fmt.Errorf("goroutine %d iteration %d: lookup returned %p, %v", id, j, found, err)
					return
				}
				metas <- m
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	close(metas)

	for err := range errs {
		t.Error(err)
	}
	var first *Meta
	for m := range metas {
		if first == nil {
			first = m
		}
		if m != first {
			t.Fatal("concurrent registrations produced different metadata")
		}
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, body := range []string{"", "not json", "[1,2]", "null", `{"unrelated":1}`} {
		if _, err := DecodeJSON[*testTask]([]byte(body)); !errors.Is(err, ErrDecode) {
			t.Errorf("DecodeJSON(%q): expected ErrDecode, got %v", body, err)
		}
	}
}

func TestCopy(t *testing.T) {
	dst := sampleTask()
	src := &testTask{Base: Base{ID: Some(99)}, Title: "replacement", Priority: 1}
	Copy(dst, src)

	if dst.ID != Some(7) {
		t.Errorf("Copy must keep the destination identifier, got %v", dst.ID)
	}
	if dst.Title != "replacement" || dst.Priority != 1 || dst.Status != "" || dst.Owner.Valid {
		t.Errorf("unexpected copy result %+v", dst)
	}
}

func TestParseDefs(t *testing.T) {
	defs, err := ParseDefs("string:title, string:status; int:priority double:estimate date:due fk:owner_id>owners")
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != len(testTaskDefs) {
		t.Fatalf("expected %d defs, got %d", len(testTaskDefs), len(defs))
	}
	for i := range defs {
		if defs[i].Kind != testTaskDefs[i].Kind || defs[i].Name != testTaskDefs[i].Name {
			t.Errorf("def %d: want %+v, got %+v", i, testTaskDefs[i], defs[i])
		}
	}
	if defs[5].Ref == nil || *defs[5].Ref != (Reference{Field: "owner_id", Table: "owners", Column: "id"}) {
		t.Errorf("unexpected reference %+v", defs[5].Ref)
	}

	for _, bad := range []string{"int", "blob:x", "fk:owner_id", "fk:>owners"} {
		if _, err := ParseDefs(bad); err == nil {
			t.Errorf("ParseDefs(%q): expected error", bad)
		}
	}
}

func TestIdentifier(t *testing.T) {
	if Some(3).String() != "some(3)" || None.String() != "none" {
		t.Errorf("unexpected renderings %q, %q", Some(3).String(), None.String())
	}

	var id Identifier
	if err := id.Scan(int64(12)); err != nil || id != Some(12) {
		t.Errorf("Scan(int64) = %v, %v", id, err)
	}
	if err := id.Scan(nil); err != nil || id.Valid {
		t.Errorf("Scan(nil) = %v, %v", id, err)
	}
	if v, _ := None.Value(); v != nil {
		t.Errorf("None.Value() = %v", v)
	}
	if err := id.UnmarshalJSON([]byte("5")); err != nil || id != Some(5) {
		t.Errorf("UnmarshalJSON(5) = %v, %v", id, err)
	}
}
