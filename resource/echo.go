package resource

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	"github.com/shrek82/jrest/logger"
	"github.com/shrek82/jrest/model"
)

// IdentityKey is the echo context key Mount reads Request.Identity from.
// Authentication middleware stores the caller under it.
const IdentityKey = "identity"

// Mount registers the resource routes of c on g:
//
//	GET    /      List
//	POST   /      Create
//	DELETE /      Clear
//	GET    /:id   Read
//	PATCH  /:id   Update
//	PUT    /:id   Replace
//	DELETE /:id   Delete
//
// Entity-scoped routes resolve :id through the store first.
func Mount[E model.Entity](g *echo.Group, c *Controller[E]) {
	g.GET("", func(ctx echo.Context) error {
		req, err := request(ctx)
		if err != nil {
			return err
		}
		list, err := c.List(req)
		if err != nil {
			return err
		}
		return writeList(ctx, http.StatusOK, list)
	})

	g.POST("", func(ctx echo.Context) error {
		req, err := request(ctx)
		if err != nil {
			return err
		}
		e, err := c.Create(req)
		if err != nil {
			return err
		}
		return write(ctx, http.StatusCreated, e)
	})

	g.DELETE("", func(ctx echo.Context) error {
		req, err := request(ctx)
		if err != nil {
			return err
		}
		if _, err := c.Clear(req); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})

	g.GET("/:id", scoped(c, c.Read))
	g.PATCH("/:id", scoped(c, c.Update))
	g.PUT("/:id", scoped(c, c.Replace))

	g.DELETE("/:id", func(ctx echo.Context) error {
		req, e, err := resolve(ctx, c)
		if err != nil {
			return err
		}
		if err := c.Delete(req, e); err != nil {
			return err
		}
		return ctx.NoContent(http.StatusNoContent)
	})
}

func scoped[E model.Entity](c *Controller[E], op func(*Request, E) (E, error)) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req, e, err := resolve(ctx, c)
		if err != nil {
			return err
		}
		e, err = op(req, e)
		if err != nil {
			return err
		}
		return write(ctx, http.StatusOK, e)
	}
}

func resolve[E model.Entity](ctx echo.Context, c *Controller[E]) (*Request, E, error) {
	var zero E
	req, err := request(ctx)
	if err != nil {
		return nil, zero, err
	}
	n, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, zero, echo.NewHTTPError(http.StatusBadRequest, "invalid id "+strconv.Quote(ctx.Param("id")))
	}
	e, err := c.Resolve(req, model.Some(n))
	if err != nil {
		return nil, zero, err
	}
	return req, e, nil
}

// request builds the controller's view of an echo call. The request ID set
// by echo's RequestID middleware travels in the context as a log field.
func request(ctx echo.Context) (*Request, error) {
	r := ctx.Request()
	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
		}
	}

	c := r.Context()
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		c = logger.ContextWithFields(c, map[string]any{"request_id": id})
	}
	return &Request{
		Ctx:      c,
		Body:     body,
		Query:    ctx.QueryParams(),
		Identity: ctx.Get(IdentityKey),
	}, nil
}

func write(ctx echo.Context, code int, e model.Entity) error {
	data, err := model.EncodeJSON(e)
	if err != nil {
		return err
	}
	return ctx.JSONBlob(code, data)
}

func writeList[E model.Entity](ctx echo.Context, code int, list []E) error {
	data, err := model.EncodeJSONList(list)
	if err != nil {
		return err
	}
	return ctx.JSONBlob(code, data)
}

// Serializer is an echo.JSONSerializer backed by json-iterator.
type Serializer struct{}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (Serializer) Serialize(c echo.Context, v any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(v)
}

func (Serializer) Deserialize(c echo.Context, v any) error {
	return json.NewDecoder(c.Request().Body).Decode(v)
}

// ErrorHandler returns an echo.HTTPErrorHandler writing errors as
// {"error": <status text>, "message": <error>}. Server errors are logged at
// error level, the rest at debug.
func ErrorHandler(l logger.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		code := StatusOf(err)
		message := err.Error()
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			code = herr.Code
			message = http.StatusText(code)
			if m, ok := herr.Message.(string); ok {
				message = m
			}
		}

		fields := map[string]any{
			"method": ctx.Request().Method,
			"path":   ctx.Request().URL.Path,
			"status": code,
		}
		if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			fields["request_id"] = id
		}
		if code >= http.StatusInternalServerError {
			l.WithFields(fields).Error("%v", err)
			message = http.StatusText(code)
		} else {
			l.WithFields(fields).Debug("%v", err)
		}

		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, map[string]string{
				"error":   http.StatusText(code),
				"message": message,
			})
		}
		if err != nil {
			l.Error("failed to write error response: %v", err)
		}
	}
}
