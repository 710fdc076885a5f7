package resource

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/validator"
)

func newServer(t *testing.T) (*echo.Echo, *Controller[*item]) {
	t.Helper()
	c, store := newController(t, RulesPolicy[*item]{
		Policy: PolicyFuncs[*item]{
			AuthorizeFunc:  func(_ *Request, e *item) bool { return e.Owner != model.Some(7) },
			BulkFilterFunc: QueryFilter("status"),
		},
		Rules: validator.Rules{"name": {validator.Required}},
	})
	c.SetLogger(logger.Discard())
	seed(t, store,
		&item{Name: "mine", Status: "active", Owner: model.Some(1)},
		&item{Name: "theirs", Status: "active", Owner: model.Some(7)},
		&item{Name: "old", Status: "archived"},
	)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logger.Discard())
	e.JSONSerializer = Serializer{}
	e.Use(middleware.RequestID())
	Mount(e.Group("/items"), c)
	return e, c
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMount(t *testing.T) {
	e, c := newServer(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		code     int
		contains string
	}{
		{"List", http.MethodGet, "/items", "", http.StatusOK, `"name":"old"`},
		{"ListFiltered", http.MethodGet, "/items?filter=status:eq:archived", "", http.StatusOK, `"id":3,"name":"old"`},
		{"ListBadFilter", http.MethodGet, "/items?filter=name:eq:x", "", http.StatusBadRequest, `"error":"Bad Request"`},
		{"Read", http.MethodGet, "/items/1", "", http.StatusOK, `"name":"mine"`},
		{"ReadDenied", http.MethodGet, "/items/2", "", http.StatusUnauthorized, `"error":"Unauthorized"`},
		{"ReadMissing", http.MethodGet, "/items/42", "", http.StatusNotFound, `"error":"Not Found"`},
		{"ReadBadID", http.MethodGet, "/items/abc", "", http.StatusBadRequest, `invalid id`},
		{"Create", http.MethodPost, "/items", `{"name":"new","status":"active"}`, http.StatusCreated, `"id":4`},
		{"CreateEmpty", http.MethodPost, "/items", "", http.StatusBadRequest, `cannot decode entity`},
		{"CreateInvalid", http.MethodPost, "/items", `{"name":""}`, http.StatusBadRequest, `validation failed`},
		{"Update", http.MethodPatch, "/items/1", `{"status":"done"}`, http.StatusOK, `"status":"done"`},
		{"UpdateDenied", http.MethodPatch, "/items/2", `{"status":"done"}`, http.StatusUnauthorized, ""},
		{"Replace", http.MethodPut, "/items/1", `{"name":"renamed"}`, http.StatusOK, `"owner_id":null`},
		{"ReplaceDenied", http.MethodPut, "/items/2", `{"name":"x"}`, http.StatusUnauthorized, ""},
		{"DeleteDenied", http.MethodDelete, "/items/2", "", http.StatusUnauthorized, ""},
		{"Delete", http.MethodDelete, "/items/1", "", http.StatusNoContent, ""},
		{"DeleteGone", http.MethodDelete, "/items/1", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		rec := serve(e, tt.method, tt.target, tt.body)
		if rec.Code != tt.code {
			t.Errorf("%s: status %d, want %d (body %s)", tt.name, rec.Code, tt.code, rec.Body)
			continue
		}
		if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
			t.Errorf("%s: body %s does not contain %s", tt.name, rec.Body, tt.contains)
		}
	}

	denied, err := c.Resolve(&Request{}, model.Some(2))
	if err != nil || denied.Name != "theirs" || denied.Status != "active" {
		t.Errorf("denied entity changed: %+v, %v", denied, err)
	}
}

func TestMountClear(t *testing.T) {
	e, c := newServer(t)

	rec := serve(e, http.MethodDelete, "/items?filter=status:eq:active", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	left, err := c.List(&Request{Ctx: context.Background()})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Name != "old" {
		t.Errorf("unexpected remaining %+v", left)
	}
}

func TestRequestCarriesRequestID(t *testing.T) {
	e := echo.New()
	e.Use(middleware.RequestID())

	var got map[string]any
	e.GET("/", func(ctx echo.Context) error {
		req, err := request(ctx)
		if err != nil {
			return err
		}
		got = logger.FieldsFrom(req.Ctx)
		return ctx.NoContent(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(echo.HeaderXRequestID, "req-1")
	e.ServeHTTP(httptest.NewRecorder(), r)

	if got["request_id"] != "req-1" {
		t.Errorf("expected request_id field, got %v", got)
	}
}

func TestSerializer(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"a":1}`)), rec)

	var v map[string]int
	if err := (Serializer{}).Deserialize(ctx, &v); err != nil || v["a"] != 1 {
		t.Fatalf("Deserialize = %v, %v", v, err)
	}
	if err := (Serializer{}).Serialize(ctx, v, ""); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"a":1}` {
		t.Errorf("unexpected output %q", rec.Body.String())
	}
}
