package main

import (
	"context"
	"time"

	"github.com/shrek82/jrest/model"
	"github.com/shrek82/jrest/validator"
)

type Owner struct {
	model.Base
	Name   string
	Email  string
	Joined time.Time
}

func (o *Owner) Props() []model.Prop {
	return []model.Prop{
		model.BindString("name", &o.Name),
		model.BindString("email", &o.Email),
		model.BindDate("joined", &o.Joined),
	}
}

func (o *Owner) String() string { return model.Describe(o) }

// BeforeInsert stamps the join date of owners created without one.
func (o *Owner) BeforeInsert(ctx context.Context) error {
	if o.Joined.IsZero() {
		o.Joined = time.Now().UTC()
	}
	return nil
}

type Task struct {
	model.Base
	Title    string
	Status   string
	Priority int
	Estimate float64
	Due      time.Time
	Owner    model.Identifier
}

func (t *Task) Props() []model.Prop {
	return []model.Prop{
		model.BindString("title", &t.Title),
		model.BindString("status", &t.Status),
		model.BindInt("priority", &t.Priority),
		model.BindDouble("estimate", &t.Estimate),
		model.BindDate("due", &t.Due),
		model.BindForeignKey("owner_id", &t.Owner),
	}
}

func (t *Task) String() string { return model.Describe(t) }

var (
	ownerMeta = model.MustRegister[*Owner]("owners",
		model.String("name"),
		model.String("email"),
		model.Date("joined"),
	)
	taskMeta = model.MustRegister[*Task]("tasks",
		model.String("title"),
		model.String("status"),
		model.Int("priority"),
		model.Double("estimate"),
		model.Date("due"),
		model.ForeignKey(model.Reference{Field: "owner_id", Table: "owners"}),
	)
)

var ownerRules = validator.Rules{
	"name":  {validator.Required, validator.MaxLen(100)},
	"email": {validator.Required, validator.Email},
}

var taskRules = validator.Rules{
	"title":    {validator.Required.Msg("a task needs a title"), validator.MaxLen(200)},
	"status":   {validator.In("open", "done", "archived").Optional()},
	"priority": {validator.Range(0, 5)},
	"estimate": {validator.Range(0, 1000).Optional()},
}
