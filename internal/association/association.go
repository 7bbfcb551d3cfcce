// Package association hydrates related entities onto already built ones.
//
// Resolution only reads: ManyToOne issues one Find per entity, OneToMany
// one Where query per entity, both against the repository bound with
// SetRepository. Results are written into the entities' association
// slots; collections are never modified.
package association

import (
	"context"

	"rowmap/internal/domain"
	"rowmap/internal/repository/query"
	"rowmap/internal/schema"
)

// Repository is the read collaborator an association queries.
// repository.Backend satisfies it.
type Repository interface {
	Find(ctx context.Context, id any) (domain.Record, error)
	Where(attr string, value any) *query.Query
}

// Resolver is implemented by ManyToOne and OneToMany
type Resolver interface {
	Name() string
	SetRepository(repo Repository)
	AssociateEntities(ctx context.Context, entities []*domain.Entity) error
	Schema() schema.Association
}

// Options declare an association
type Options struct {
	Name       string
	Collection string
	ForeignKey string
	// OwnerKey is the primary key attribute of the owning entities,
	// "id" when empty
	OwnerKey string
	// Schema coerces matched records; nil wraps them as-is
	Schema *schema.Schema
}

type base struct {
	name       string
	collection string
	foreignKey string
	ownerKey   string
	schema     *schema.Schema
	repo       Repository
}

func newBase(opts Options) base {
	if opts.OwnerKey == "" {
		opts.OwnerKey = domain.DefaultKey
	}
	return base{
		name:       opts.Name,
		collection: opts.Collection,
		foreignKey: opts.ForeignKey,
		ownerKey:   opts.OwnerKey,
		schema:     opts.Schema,
	}
}

// Name returns the association name
func (b *base) Name() string { return b.name }

// Collection returns the target collection name
func (b *base) Collection() string { return b.collection }

// ForeignKey returns the foreign key attribute
func (b *base) ForeignKey() string { return b.foreignKey }

// SetRepository binds the repository used to resolve the association
func (b *base) SetRepository(repo Repository) { b.repo = repo }

// ownerID returns the owning entity's primary key, or nil
func (b *base) ownerID(e *domain.Entity) any {
	v, _ := e.Get(b.ownerKey)
	return v
}

func (b *base) bound() error {
	if b.repo == nil {
		return &domain.UnboundRepositoryError{Association: b.name}
	}
	return nil
}

func (b *base) target() string {
	if b.schema != nil {
		return b.schema.Kind()
	}
	return b.collection
}

func (b *base) entity(r domain.Record) (*domain.Entity, error) {
	if b.schema == nil {
		return domain.NewEntity(b.collection, r), nil
	}
	return b.schema.Entity(r)
}
