package association

import (
	"context"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/schema"
)

var _ Resolver = (*OneToMany)(nil)

// OneToMany resolves every related entity whose foreign key holds the owner's id
type OneToMany struct {
	base
}

// NewOneToMany declares a one-to-many association. The foreign key has
// no default; omitting it fails with *domain.MissingKeyError.
func NewOneToMany(opts Options) (*OneToMany, error) {
	if opts.ForeignKey == "" {
		return nil, errors.WithStack(&domain.MissingKeyError{Association: opts.Name})
	}
	return &OneToMany{base: newBase(opts)}, nil
}

// AssociateEntities queries the related collection once per entity and
// assigns the ordered matches
func (a *OneToMany) AssociateEntities(ctx context.Context, entities []*domain.Entity) error {
	if err := a.bound(); err != nil {
		return errors.WithStack(err)
	}

	for _, e := range entities {
		id := a.ownerID(e)
		if id == nil {
			e.SetAssociation(a.name, []*domain.Entity{})
			continue
		}

		records, err := a.repo.Where(a.foreignKey, id).All(ctx)
		if err != nil {
			return errors.Wrapf(err, "resolve %s for %s %v", a.name, e.Kind, id)
		}

		related := make([]*domain.Entity, 0, len(records))
		for _, r := range records {
			re, err := a.entity(r)
			if err != nil {
				return err
			}
			related = append(related, re)
		}
		e.SetAssociation(a.name, related)
	}
	return nil
}

// Schema describes the association for schema building
func (a *OneToMany) Schema() schema.Association {
	return schema.Association{Name: a.name, Target: a.target(), Many: true}
}
