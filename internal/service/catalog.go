package service

import (
	"sort"

	"go.uber.org/zap"

	"rowmap/internal/adapter"
	"rowmap/internal/association"
	"rowmap/internal/config"
	"rowmap/internal/errors"
	"rowmap/internal/logger"
	"rowmap/internal/repository"
	"rowmap/internal/schema"
)

// Catalog holds the repositories declared in configuration
type Catalog struct {
	schemas      *schema.Registry
	collections  *adapter.Registry
	repositories map[string]*Repository
	events       *EventBus
	log          *zap.SugaredLogger
}

// NewCatalog builds a repository per relation in cfg. Schemas are defined
// first so associations can point at any relation; then every association
// is bound to its target collection.
func NewCatalog(cfg *config.Config, collections *adapter.Registry, events *EventBus, log *zap.SugaredLogger) (*Catalog, error) {
	c := &Catalog{
		schemas:      schema.NewRegistry(),
		collections:  collections,
		repositories: make(map[string]*Repository),
		events:       events,
		log:          logger.OrNop(log),
	}

	names := cfg.RelationNames()
	for _, name := range names {
		if _, err := c.schemas.Define(definition(name, cfg.Relations[name])); err != nil {
			return nil, err
		}
	}

	// every declared key is fixed before any association opens its target
	backends := make(map[string]repository.Backend, len(names))
	for _, name := range names {
		backend, err := collections.Collection(name, cfg.Relations[name].Key)
		if err != nil {
			return nil, err
		}
		backends[name] = backend
	}

	for _, name := range names {
		rel := cfg.Relations[name]
		backend := backends[name]

		resolvers := make([]association.Resolver, 0, len(rel.Associations))
		for _, a := range rel.Associations {
			resolver, err := c.resolver(a, backend.Key())
			if err != nil {
				return nil, errors.Wrapf(err, "relation %s", name)
			}
			resolvers = append(resolvers, resolver)
		}

		sch, _ := c.schemas.Lookup(name)
		c.repositories[name] = NewRepository(backend, sch,
			WithAssociations(resolvers...),
			WithEvents(events),
			WithLogger(c.log),
		)
	}

	c.log.Infow("Catalog built", "relations", len(names))
	return c, nil
}

func (c *Catalog) resolver(a config.AssociationConfig, ownerKey string) (association.Resolver, error) {
	target, err := c.collections.Collection(a.Collection, "")
	if err != nil {
		return nil, err
	}
	targetSchema, _ := c.schemas.Lookup(a.Collection)

	opts := association.Options{
		Name:       a.Name,
		Collection: a.Collection,
		ForeignKey: a.ForeignKey,
		OwnerKey:   ownerKey,
		Schema:     targetSchema,
	}

	var resolver association.Resolver
	switch a.Kind {
	case config.ManyToOne:
		resolver = association.NewManyToOne(opts)
	case config.OneToMany:
		resolver, err = association.NewOneToMany(opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Newf("unknown association kind %q", a.Kind)
	}

	resolver.SetRepository(target)
	return resolver, nil
}

// definition maps a relation declaration onto a schema definition.
// Type names were checked by config validation.
func definition(kind string, rel config.RelationConfig) schema.Definition {
	def := schema.Definition{
		Kind:    kind,
		Columns: make(map[string]schema.Type, len(rel.Columns)),
	}
	for column, typeName := range rel.Columns {
		typ, err := schema.ParseType(typeName)
		if err != nil {
			typ = schema.Any
		}
		def.Columns[column] = typ
	}
	for _, a := range rel.Associations {
		def.Associations = append(def.Associations, schema.Association{
			Name:   a.Name,
			Target: a.Collection,
			Many:   a.Kind == config.OneToMany,
		})
	}
	if len(rel.Legacy) > 0 {
		def.Translate = schema.Rename(rel.Legacy)
	}
	return def
}

// Repository returns the repository of relation name
func (c *Catalog) Repository(name string) (*Repository, bool) {
	r, ok := c.repositories[name]
	return r, ok
}

// Names returns the relation names, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.repositories))
	for name := range c.repositories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the schema registry the catalog defined
func (c *Catalog) Schemas() *schema.Registry { return c.schemas }
