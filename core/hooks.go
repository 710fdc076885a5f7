package core

import "context"

// Entity lifecycle hooks, called by Repository when the entity implements them.
type BeforeInserter interface {
	BeforeInsert(ctx context.Context) error
}
type AfterInserter interface {
	AfterInsert(ctx context.Context, id int64) error
}
type BeforeUpdater interface {
	BeforeUpdate(ctx context.Context) error
}
type AfterUpdater interface {
	AfterUpdate(ctx context.Context) error
}
type BeforeDeleter interface {
	BeforeDelete(ctx context.Context) error
}
type AfterDeleter interface {
	AfterDelete(ctx context.Context) error
}
type AfterFinder interface{ AfterFind() error }
