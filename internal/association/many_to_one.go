package association

import (
	"context"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/schema"
)

var _ Resolver = (*ManyToOne)(nil)

// ManyToOne resolves an entity's foreign key to at most one related entity
type ManyToOne struct {
	base
}

// NewManyToOne declares a many-to-one association. The foreign key
// defaults to "<name>_id".
func NewManyToOne(opts Options) *ManyToOne {
	if opts.ForeignKey == "" {
		opts.ForeignKey = opts.Name + "_id"
	}
	return &ManyToOne{base: newBase(opts)}
}

// AssociateEntities looks up each entity's foreign key and assigns the
// match, or nil when the key is nil or nothing is stored under it
func (a *ManyToOne) AssociateEntities(ctx context.Context, entities []*domain.Entity) error {
	if err := a.bound(); err != nil {
		return errors.WithStack(err)
	}

	for _, e := range entities {
		fk, _ := e.Get(a.foreignKey)
		if fk == nil {
			e.SetAssociation(a.name, nil)
			continue
		}

		record, err := a.repo.Find(ctx, fk)
		if err != nil {
			return errors.Wrapf(err, "resolve %s for %s %v", a.name, e.Kind, a.ownerID(e))
		}
		if record == nil {
			e.SetAssociation(a.name, nil)
			continue
		}

		related, err := a.entity(record)
		if err != nil {
			return err
		}
		e.SetAssociation(a.name, related)
	}
	return nil
}

// Schema describes the association for schema building
func (a *ManyToOne) Schema() schema.Association {
	return schema.Association{Name: a.name, Target: a.target()}
}
