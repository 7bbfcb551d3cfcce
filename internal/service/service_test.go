package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowmap/internal/adapter"
	"rowmap/internal/config"
	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/repository/memory"
	"rowmap/internal/schema"
)

const catalogConfig = `
relations:
  users:
    columns:
      id: integer
      user_name: string
      balance: decimal
    legacy:
      user_name: name
    associations:
      - name: posts
        kind: one_to_many
        collection: posts
        foreign_key: user_id
  posts:
    columns:
      id: integer
      user_id: integer
      title: string
      published_on: date
    associations:
      - name: user
        kind: many_to_one
        collection: users
`

func newCatalog(t *testing.T, events *EventBus) *Catalog {
	t.Helper()
	cfg, err := config.Parse([]byte(catalogConfig))
	require.NoError(t, err)

	reg := adapter.NewRegistry(adapter.NewMemory(nil), nil)
	t.Cleanup(func() { reg.Close() })

	c, err := NewCatalog(cfg, reg, events, nil)
	require.NoError(t, err)
	return c
}

func TestRepository_CreateCoercesAndRenames(t *testing.T) {
	ctx := context.Background()
	users, ok := newCatalog(t, nil).Repository("users")
	require.True(t, ok)

	created, err := users.Create(ctx, domain.NewEntity("users", domain.Record{
		"name":    "ada",
		"balance": "10.50",
		"ignored": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID())

	name, _ := created.Get("name")
	assert.Equal(t, "ada", name)
	balance, _ := created.Get("balance")
	assert.True(t, decimal.RequireFromString("10.5").Equal(balance.(decimal.Decimal)))

	stored, err := users.Backend().Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", stored["user_name"], "attributes are stored under their column names")
	_, hasIgnored := stored["ignored"]
	assert.False(t, hasIgnored)
}

func TestRepository_FindHydrates(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t, nil)
	users, _ := c.Repository("users")
	posts, _ := c.Repository("posts")

	ada, err := users.Create(ctx, domain.NewEntity("users", domain.Record{"name": "ada"}))
	require.NoError(t, err)
	for _, title := range []string{"notes", "sketches"} {
		_, err := posts.Create(ctx, domain.NewEntity("posts", domain.Record{
			"title":        title,
			"user_id":      ada.ID(),
			"published_on": "1843-10-01",
		}))
		require.NoError(t, err)
	}

	found, err := users.Find(ctx, ada.ID(), "posts")
	require.NoError(t, err)
	related := found.Many("posts")
	require.Len(t, related, 2)
	title, _ := related[1].Get("title")
	assert.Equal(t, "sketches", title)
	published, _ := related[0].Get("published_on")
	assert.Equal(t, time.Date(1843, 10, 1, 0, 0, 0, 0, time.UTC), published)

	post, err := posts.Find(ctx, 2, "user")
	require.NoError(t, err)
	require.NotNil(t, post.One("user"))
	assert.Equal(t, "users", post.One("user").Kind)

	_, err = posts.Find(ctx, 2, "comments")
	assert.Error(t, err)

	_, err = users.Find(ctx, 99)
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))
}

func TestRepository_LoadQuery(t *testing.T) {
	ctx := context.Background()
	c := newCatalog(t, nil)
	posts, _ := c.Repository("posts")

	for i, title := range []string{"c", "a", "b"} {
		_, err := posts.Create(ctx, domain.NewEntity("posts", domain.Record{"title": title, "user_id": i % 2}))
		require.NoError(t, err)
	}

	loaded, err := posts.Load(ctx, posts.Query().Where("user_id", 0).Order("title"))
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	first, _ := loaded[0].Get("title")
	assert.Equal(t, "b", first)

	all, err := posts.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepository_UpdateDeleteClear(t *testing.T) {
	ctx := context.Background()
	events := NewEventBus()
	ch := make(chan Event, 10)
	events.Subscribe(ch)

	users, _ := newCatalog(t, events).Repository("users")

	ada, err := users.Create(ctx, domain.NewEntity("users", domain.Record{"name": "ada"}))
	require.NoError(t, err)

	ada.Set("name", "Ada")
	updated, err := users.Update(ctx, ada)
	require.NoError(t, err)
	name, _ := updated.Get("name")
	assert.Equal(t, "Ada", name)

	ghost := domain.NewEntity("users", domain.Record{"id": int64(42), "name": "ghost"})
	_, err = users.Update(ctx, ghost)
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))

	require.NoError(t, users.Delete(ctx, ada))
	require.NoError(t, users.Clear(ctx))

	var got []EventType
	for len(ch) > 0 {
		got = append(got, (<-ch).Type)
	}
	assert.Equal(t, []EventType{
		EventRecordCreated,
		EventRecordUpdated,
		EventRecordDeleted,
		EventCollectionCleared,
	}, got)
}

func TestRepository_CoercionFailure(t *testing.T) {
	ctx := context.Background()
	backend := memory.New("posts")
	sch, err := schema.Build(nil, schema.Definition{
		Kind:    "posts",
		Columns: map[string]schema.Type{"id": schema.Integer, "published_on": schema.Date},
	})
	require.NoError(t, err)

	_, err = backend.Create(ctx, domain.Record{"published_on": "not a date"})
	require.NoError(t, err)

	posts := NewRepository(backend, sch)
	_, err = posts.All(ctx)
	var coercion *domain.CoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "published_on", coercion.Attribute)
}

func TestRepository_WithoutSchema(t *testing.T) {
	ctx := context.Background()
	notes := NewRepository(memory.New("notes"), nil)

	created, err := notes.Create(ctx, domain.NewEntity("notes", domain.Record{"body": "hi"}))
	require.NoError(t, err)
	body, _ := created.Get("body")
	assert.Equal(t, "hi", body)
	assert.Equal(t, "notes", created.Kind)
	assert.Nil(t, notes.Schema())
}

func TestCatalog(t *testing.T) {
	c := newCatalog(t, nil)
	assert.Equal(t, []string{"posts", "users"}, c.Names())
	assert.Equal(t, []string{"posts", "users"}, c.Schemas().Kinds())

	users, _ := c.Repository("users")
	a, ok := users.Association("posts")
	require.True(t, ok)
	assert.Equal(t, schema.Association{Name: "posts", Target: "posts", Many: true}, a.Schema())

	_, ok = c.Repository("comments")
	assert.False(t, ok)
}

const customKeyConfig = `
relations:
  books:
    columns:
      id: integer
      writer_id: integer
      title: string
    associations:
      - name: writer
        kind: many_to_one
        collection: writers
  writers:
    key: uid
    columns:
      uid: integer
      name: string
    associations:
      - name: books
        kind: one_to_many
        collection: books
        foreign_key: writer_id
`

func TestCatalog_CustomKeys(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Parse([]byte(customKeyConfig))
	require.NoError(t, err)
	reg := adapter.NewRegistry(adapter.NewMemory(nil), nil)
	t.Cleanup(func() { reg.Close() })

	c, err := NewCatalog(cfg, reg, nil, nil)
	require.NoError(t, err)
	writers, _ := c.Repository("writers")
	books, _ := c.Repository("books")
	assert.Equal(t, "uid", writers.Backend().Key(), "a relation referenced before its own declaration keeps its key")

	ada, err := writers.Create(ctx, domain.NewEntity("writers", domain.Record{"name": "ada"}))
	require.NoError(t, err)
	uid, _ := ada.Get("uid")
	assert.Equal(t, int64(1), uid)

	stored, err := writers.Backend().Find(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Record{"uid": int64(1), "name": "ada"}, stored)

	_, err = books.Create(ctx, domain.NewEntity("books", domain.Record{"title": "notes", "writer_id": 1}))
	require.NoError(t, err)

	found, err := writers.Find(ctx, 1, "books")
	require.NoError(t, err)
	require.Len(t, found.Many("books"), 1)

	book, err := books.Find(ctx, 1, "writer")
	require.NoError(t, err)
	require.NotNil(t, book.One("writer"))
	name, _ := book.One("writer").Get("name")
	assert.Equal(t, "ada", name)
}

func TestEventBus_SlowSubscriberIsSkipped(t *testing.T) {
	bus := NewEventBus()
	full := make(chan Event)
	buffered := make(chan Event, 1)
	bus.Subscribe(full)
	bus.Subscribe(buffered)

	bus.Publish(Event{Type: EventRecordCreated, Collection: "users", Key: int64(1)})
	assert.Equal(t, "users", (<-buffered).Collection)

	var nilBus *EventBus
	assert.NotPanics(t, func() { nilBus.Publish(Event{}) })
}
