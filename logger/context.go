package logger

import (
	"context"
	"maps"
)

type fieldsKey struct{}

// ContextWithFields returns a copy of ctx carrying fields in addition to the
// ones already attached. Query middlewares read them back with FieldsFrom.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	merged := make(map[string]any, len(fields))
	maps.Copy(merged, FieldsFrom(ctx))
	maps.Copy(merged, fields)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFrom returns the fields attached to ctx, or nil.
func FieldsFrom(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(map[string]any)
	return fields
}
