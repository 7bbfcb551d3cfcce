package service

import (
	"context"

	"go.uber.org/zap"

	"rowmap/internal/association"
	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/repository/command"
	"rowmap/internal/repository/query"
	"rowmap/internal/schema"
)

// Repository reads and writes entities of one relation
type Repository struct {
	backend      repository.Backend
	schema       *schema.Schema
	command      *command.Command[*domain.Entity]
	associations []association.Resolver
	events       *EventBus
	log          *zap.SugaredLogger
}

// Option configures a Repository
type Option func(*Repository)

// WithAssociations attaches association resolvers; they are hydrated in
// the order given
func WithAssociations(resolvers ...association.Resolver) Option {
	return func(r *Repository) { r.associations = append(r.associations, resolvers...) }
}

// WithEvents publishes writes on bus
func WithEvents(bus *EventBus) Option {
	return func(r *Repository) { r.events = bus }
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Repository) { r.log = l }
}

// NewRepository binds backend and schema. A nil schema stores and returns
// attributes untyped.
func NewRepository(backend repository.Backend, sch *schema.Schema, opts ...Option) *Repository {
	r := &Repository{backend: backend, schema: sch}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrNop(r.log)
	r.command = command.For(backend, r.serialize, r.identity)
	return r
}

// Name returns the collection name
func (r *Repository) Name() string { return r.backend.Name() }

// Backend returns the underlying backend
func (r *Repository) Backend() repository.Backend { return r.backend }

// Schema returns the relation schema, possibly nil
func (r *Repository) Schema() *schema.Schema { return r.schema }

// Association returns the resolver registered under name
func (r *Repository) Association(name string) (association.Resolver, bool) {
	for _, a := range r.associations {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Create stores e and returns the stored entity with its key
func (r *Repository) Create(ctx context.Context, e *domain.Entity) (*domain.Entity, error) {
	record, err := r.command.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	r.events.Publish(Event{Type: EventRecordCreated, Collection: r.Name(), Key: record[r.backend.Key()]})
	return r.entity(record)
}

// Update overwrites the stored record of e
func (r *Repository) Update(ctx context.Context, e *domain.Entity) (*domain.Entity, error) {
	record, err := r.command.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	r.events.Publish(Event{Type: EventRecordUpdated, Collection: r.Name(), Key: record[r.backend.Key()]})
	return r.entity(record)
}

// Delete removes e by key
func (r *Repository) Delete(ctx context.Context, e *domain.Entity) error {
	if err := r.command.Delete(ctx, e); err != nil {
		return err
	}
	r.events.Publish(Event{Type: EventRecordDeleted, Collection: r.Name(), Key: r.identity(e)})
	return nil
}

// Clear empties the collection
func (r *Repository) Clear(ctx context.Context) error {
	if err := r.command.Clear(ctx); err != nil {
		return err
	}
	r.events.Publish(Event{Type: EventCollectionCleared, Collection: r.Name()})
	return nil
}

// Find returns the entity stored under id with the named associations
// hydrated. A missing record is a *domain.RecordNotFoundError.
func (r *Repository) Find(ctx context.Context, id any, include ...string) (*domain.Entity, error) {
	record, err := r.backend.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.WithStack(&domain.RecordNotFoundError{Collection: r.Name(), Key: id})
	}

	e, err := r.entity(record)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, []*domain.Entity{e}, include); err != nil {
		return nil, err
	}
	return e, nil
}

// All loads every entity in insertion order
func (r *Repository) All(ctx context.Context, include ...string) ([]*domain.Entity, error) {
	return r.Load(ctx, r.Query(), include...)
}

// Query returns an empty query over the collection
func (r *Repository) Query() *query.Query { return query.New(r.backend) }

// Load runs q, coerces every match and hydrates the named associations
func (r *Repository) Load(ctx context.Context, q *query.Query, include ...string) ([]*domain.Entity, error) {
	records, err := q.All(ctx)
	if err != nil {
		return nil, err
	}

	entities := make([]*domain.Entity, 0, len(records))
	for _, record := range records {
		e, err := r.entity(record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	if err := r.hydrate(ctx, entities, include); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *Repository) hydrate(ctx context.Context, entities []*domain.Entity, include []string) error {
	for _, name := range include {
		a, ok := r.Association(name)
		if !ok {
			return errors.Newf("%s has no association %s", r.Name(), name)
		}
		if err := a.AssociateEntities(ctx, entities); err != nil {
			return err
		}
		r.log.Debugw("Hydrated association", "collection", r.Name(), "association", name, "entities", len(entities))
	}
	return nil
}

func (r *Repository) entity(record domain.Record) (*domain.Entity, error) {
	if r.schema == nil {
		return domain.NewEntity(r.Name(), record), nil
	}
	e, err := r.schema.Entity(record)
	if err != nil {
		return nil, err
	}
	// the key survives coercion even when the schema leaves it undeclared
	if _, ok := e.Get(r.backend.Key()); !ok {
		if key, ok := record[r.backend.Key()]; ok {
			e.Set(r.backend.Key(), key)
		}
	}
	return e, nil
}

// serialize maps entity attributes back to stored column names.
// Attributes the schema does not store are dropped.
func (r *Repository) serialize(e *domain.Entity) (domain.Record, error) {
	if e == nil {
		return nil, errors.New("nil entity")
	}
	attrs := e.Attributes()
	if r.schema == nil {
		return attrs, nil
	}

	record := make(domain.Record, len(attrs))
	for name, v := range attrs {
		if column, ok := r.schema.Column(name); ok {
			record[column] = v
		}
	}
	if v, ok := attrs[r.backend.Key()]; ok {
		record[r.backend.Key()] = v
	}
	return record, nil
}

func (r *Repository) identity(e *domain.Entity) any {
	if e == nil {
		return nil
	}
	v, _ := e.Get(r.backend.Key())
	return v
}
