package association

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/repository/memory"
	"rowmap/internal/repository/query"
	"rowmap/internal/schema"
)

// countingRepo records how often each read path is used
type countingRepo struct {
	*memory.Collection
	finds   int
	queries int
}

func (r *countingRepo) Find(ctx context.Context, id any) (domain.Record, error) {
	r.finds++
	return r.Collection.Find(ctx, id)
}

func (r *countingRepo) Where(attr string, value any) *query.Query {
	r.queries++
	return r.Collection.Where(attr, value)
}

func seedUsers(t *testing.T) *memory.Collection {
	t.Helper()
	ctx := context.Background()
	users := memory.New("users")
	for _, name := range []string{"ada", "grace"} {
		_, err := users.Create(ctx, domain.Record{"name": name})
		require.NoError(t, err)
	}
	return users
}

func seedPosts(t *testing.T) *memory.Collection {
	t.Helper()
	ctx := context.Background()
	posts := memory.New("posts")
	for _, p := range []domain.Record{
		{"title": "a1", "user_id": int64(1)},
		{"title": "g1", "user_id": int64(2)},
		{"title": "a2", "user_id": int64(1)},
	} {
		_, err := posts.Create(ctx, p)
		require.NoError(t, err)
	}
	return posts
}

func TestManyToOne_DefaultForeignKey(t *testing.T) {
	a := NewManyToOne(Options{Name: "user", Collection: "users"})
	assert.Equal(t, "user_id", a.ForeignKey())
	assert.Equal(t, "user", a.Name())
	assert.Equal(t, schema.Association{Name: "user", Target: "users"}, a.Schema())

	b := NewManyToOne(Options{Name: "author", Collection: "users", ForeignKey: "written_by"})
	assert.Equal(t, "written_by", b.ForeignKey())
}

func TestManyToOne_AssociateEntities(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Collection: seedUsers(t)}

	posts := []*domain.Entity{
		domain.NewEntity("posts", domain.Record{"id": int64(1), "user_id": int64(2)}),
		domain.NewEntity("posts", domain.Record{"id": int64(2), "user_id": int64(99)}),
		domain.NewEntity("posts", domain.Record{"id": int64(3), "user_id": nil}),
		domain.NewEntity("posts", domain.Record{"id": int64(4), "user_id": "1"}),
	}

	a := NewManyToOne(Options{Name: "user", Collection: "users"})
	a.SetRepository(repo)
	require.NoError(t, a.AssociateEntities(ctx, posts))

	require.NotNil(t, posts[0].One("user"))
	name, _ := posts[0].One("user").Get("name")
	assert.Equal(t, "grace", name)

	assert.Nil(t, posts[1].One("user"), "dangling foreign key resolves to nothing")
	v, loaded := posts[1].Association("user")
	assert.True(t, loaded)
	assert.Nil(t, v)

	assert.Nil(t, posts[2].One("user"))
	assert.Equal(t, int64(1), posts[3].One("user").ID())

	assert.Equal(t, 3, repo.finds, "one lookup per entity with a foreign key")
	assert.Equal(t, 2, repo.Len(), "resolution never writes")
}

func TestManyToOne_DeletedTarget(t *testing.T) {
	ctx := context.Background()
	users := seedUsers(t)
	require.NoError(t, users.Delete(ctx, domain.Record{"id": int64(1)}))

	post := domain.NewEntity("posts", domain.Record{"id": int64(1), "user_id": int64(1)})
	a := NewManyToOne(Options{Name: "user", Collection: "users"})
	a.SetRepository(users)

	require.NoError(t, a.AssociateEntities(ctx, []*domain.Entity{post}))
	assert.Nil(t, post.One("user"))
}

func TestManyToOne_WithSchema(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry()
	userSchema, err := reg.Define(schema.Definition{
		Kind:    "users",
		Columns: map[string]schema.Type{"id": schema.Integer, "name": schema.String},
	})
	require.NoError(t, err)

	users := memory.New("users")
	_, err = users.Create(ctx, domain.Record{"name": "ada", "password": "secret"})
	require.NoError(t, err)

	post := domain.NewEntity("posts", domain.Record{"id": int64(1), "user_id": int64(1)})
	a := NewManyToOne(Options{Name: "user", Collection: "users", Schema: userSchema})
	a.SetRepository(users)
	require.NoError(t, a.AssociateEntities(ctx, []*domain.Entity{post}))

	author := post.One("user")
	require.NotNil(t, author)
	_, hasPassword := author.Get("password")
	assert.False(t, hasPassword, "schema drops undeclared attributes")
}

func TestOneToMany_RequiresForeignKey(t *testing.T) {
	a, err := NewOneToMany(Options{Name: "posts", Collection: "posts"})
	assert.Nil(t, a)

	var missing *domain.MissingKeyError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "posts", missing.Association)
	assert.True(t, errors.Is(err, domain.ErrMissingKey))
}

func TestOneToMany_AssociateEntities(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Collection: seedPosts(t)}

	users := []*domain.Entity{
		domain.NewEntity("users", domain.Record{"id": int64(1)}),
		domain.NewEntity("users", domain.Record{"id": int64(2)}),
		domain.NewEntity("users", domain.Record{"id": int64(3)}),
		domain.NewEntity("users", domain.Record{"name": "unsaved"}),
	}

	a, err := NewOneToMany(Options{Name: "posts", Collection: "posts", ForeignKey: "user_id"})
	require.NoError(t, err)
	assert.Equal(t, schema.Association{Name: "posts", Target: "posts", Many: true}, a.Schema())

	a.SetRepository(repo)
	require.NoError(t, a.AssociateEntities(ctx, users))

	titles := func(es []*domain.Entity) []any {
		out := make([]any, len(es))
		for i, e := range es {
			out[i], _ = e.Get("title")
		}
		return out
	}

	assert.Equal(t, []any{"a1", "a2"}, titles(users[0].Many("posts")))
	assert.Equal(t, []any{"g1"}, titles(users[1].Many("posts")))
	assert.NotNil(t, users[2].Many("posts"))
	assert.Empty(t, users[2].Many("posts"))
	assert.Empty(t, users[3].Many("posts"))

	assert.Equal(t, 3, repo.queries, "one query per saved entity")
	assert.Equal(t, 3, repo.Len())
}

func TestOneToMany_OwnerKey(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{Collection: seedPosts(t)}
	a, err := NewOneToMany(Options{Name: "posts", Collection: "posts", ForeignKey: "user_id", OwnerKey: "uid"})
	require.NoError(t, err)
	a.SetRepository(repo)

	owner := domain.NewEntity("users", domain.Record{"uid": int64(1), "name": "ada"})
	require.NoError(t, a.AssociateEntities(ctx, []*domain.Entity{owner}))

	assert.Len(t, owner.Many("posts"), 2)
	assert.Equal(t, 1, repo.queries)
}

func TestAssociateEntities_Unbound(t *testing.T) {
	ctx := context.Background()
	entities := []*domain.Entity{domain.NewEntity("posts", domain.Record{"id": int64(1)})}

	one := NewManyToOne(Options{Name: "user", Collection: "users"})
	err := one.AssociateEntities(ctx, entities)
	var unbound *domain.UnboundRepositoryError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, "user", unbound.Association)

	many, err := NewOneToMany(Options{Name: "comments", Collection: "comments", ForeignKey: "post_id"})
	require.NoError(t, err)
	err = many.AssociateEntities(ctx, entities)
	assert.True(t, errors.Is(err, domain.ErrUnboundRepository))

	_, loaded := entities[0].Association("user")
	assert.False(t, loaded)
}

func TestAssociateEntities_CoercionFailurePropagates(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry()
	postSchema, err := reg.Define(schema.Definition{
		Kind:    "posts",
		Columns: map[string]schema.Type{"id": schema.Integer, "published_on": schema.Date},
	})
	require.NoError(t, err)

	posts := memory.New("posts")
	_, err = posts.Create(ctx, domain.Record{"user_id": int64(1), "published_on": "someday"})
	require.NoError(t, err)

	a, err := NewOneToMany(Options{Name: "posts", Collection: "posts", ForeignKey: "user_id", Schema: postSchema})
	require.NoError(t, err)
	a.SetRepository(posts)

	err = a.AssociateEntities(ctx, []*domain.Entity{domain.NewEntity("users", domain.Record{"id": int64(1)})})
	assert.True(t, errors.Is(err, domain.ErrCoercion))
}
