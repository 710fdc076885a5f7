package jrest_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shrek82/jrest"
	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/resource"
)

type Book struct {
	jrest.Base
	Title  string
	Pages  int
	Author jrest.Identifier
}

func (b *Book) Props() []jrest.Prop {
	return []jrest.Prop{
		jrest.BindString("title", &b.Title),
		jrest.BindInt("pages", &b.Pages),
		jrest.BindForeignKey("author_id", &b.Author),
	}
}

var bookMeta = jrest.MustRegister[*Book]("books",
	jrest.String("title"),
	jrest.Int("pages"),
	jrest.ForeignKey(jrest.Reference{Field: "author_id", Table: "authors"}),
)

func TestFacade(t *testing.T) {
	db, err := jrest.Open("sqlite3", filepath.Join(t.TempDir(), "books.db"), &jrest.Options{MaxOpenConns: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetLogger(logger.Discard())

	ctx := context.Background()
	if err := db.Prepare(ctx, bookMeta); err != nil {
		t.Fatal(err)
	}
	repo, err := jrest.NewRepository[*Book](db)
	if err != nil {
		t.Fatal(err)
	}

	c, err := jrest.NewController[*Book](repo, resource.RulesPolicy[*Book]{
		Rules: jrest.Rules{"pages": {jrest.Range(1, 5000)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	book, err := c.Create(&jrest.Request{Ctx: ctx, Body: []byte(`{"title":"Dune","pages":412,"author_id":3}`)})
	if err != nil {
		t.Fatal(err)
	}
	if book.ID != jrest.Some(1) || book.Author != jrest.Some(3) {
		t.Errorf("unexpected book %+v", book)
	}
	if got := jrest.Describe(book); got != "title: Dune pages: 412 author_id: some(3) " {
		t.Errorf("Describe = %q", got)
	}

	_, err = c.Create(&jrest.Request{Ctx: ctx, Body: []byte(`{"title":"Empty","pages":0}`)})
	var verrs jrest.ValidationErrors
	if !errors.As(err, &verrs) || jrest.StatusOf(err) != 400 {
		t.Errorf("expected a validation failure, got %v", err)
	}

	if _, err := c.Resolve(&jrest.Request{Ctx: ctx}, jrest.Some(2)); !errors.Is(err, jrest.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
