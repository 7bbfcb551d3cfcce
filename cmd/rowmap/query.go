package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rowmap/internal/domain"
	"rowmap/internal/errors"
	"rowmap/internal/repository/query"
	"rowmap/internal/schema"
)

type queryOptions struct {
	where   []string
	exclude []string
	order   string
	desc    bool
	limit   int
	offset  int
	include []string
	count   bool
}

func newQueryCmd(open func() (*app, error)) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <collection>",
		Short: "Print the records of a collection matching filters",
		Example: `  rowmap query users --where team=a --order name --limit 10
  rowmap query posts --where user_id=1 --include user`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			backend, err := a.backend(name)
			if err != nil {
				return err
			}
			repo, declared := a.catalog.Repository(name)

			var sch *schema.Schema
			if declared {
				sch = repo.Schema()
			}
			q, err := opts.build(query.New(backend), sch)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			enc := json.NewEncoder(cmd.OutOrStdout())

			if opts.count {
				n, err := q.Count(ctx)
				if err != nil {
					return err
				}
				return enc.Encode(map[string]int{"count": n})
			}

			if !declared {
				if len(opts.include) > 0 {
					return errors.Newf("%s is not a declared relation; --include needs one", name)
				}
				records, err := q.All(ctx)
				if err != nil {
					return err
				}
				for _, r := range records {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}

			entities, err := repo.Load(ctx, q, opts.include...)
			if err != nil {
				return err
			}
			for _, e := range entities {
				if err := enc.Encode(entityRecord(e)); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.where, "where", "w", nil, "equality filter attr=value (repeatable)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "inequality filter attr=value (repeatable)")
	flags.StringVarP(&opts.order, "order", "o", "", "sort by attribute")
	flags.BoolVar(&opts.desc, "desc", false, "sort descending")
	flags.IntVarP(&opts.limit, "limit", "n", -1, "keep the first n records")
	flags.IntVar(&opts.offset, "offset", -1, "keep the last n records")
	flags.StringSliceVarP(&opts.include, "include", "i", nil, "associations to hydrate")
	flags.BoolVar(&opts.count, "count", false, "print only the number of matches")
	return cmd
}

// build applies the options to q. Declared attributes are translated to
// their stored column names; filter values are read as YAML scalars.
func (o queryOptions) build(q *query.Query, sch *schema.Schema) (*query.Query, error) {
	for _, expr := range o.where {
		attr, value, err := parseFilter(expr)
		if err != nil {
			return nil, err
		}
		q = q.Where(column(sch, attr), value)
	}
	for _, expr := range o.exclude {
		attr, value, err := parseFilter(expr)
		if err != nil {
			return nil, err
		}
		q = q.Exclude(column(sch, attr), value)
	}
	if o.order != "" {
		if o.desc {
			q = q.Desc(column(sch, o.order))
		} else {
			q = q.Order(column(sch, o.order))
		}
	}
	if o.limit >= 0 {
		q = q.Limit(o.limit)
	}
	if o.offset >= 0 {
		q = q.Offset(o.offset)
	}
	return q, nil
}

func parseFilter(expr string) (string, any, error) {
	attr, raw, ok := strings.Cut(expr, "=")
	if !ok || attr == "" {
		return "", nil, errors.Newf("filter %q is not attr=value", expr)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return attr, value, nil
}

func column(sch *schema.Schema, attr string) string {
	if sch == nil {
		return attr
	}
	if col, ok := sch.Column(attr); ok {
		return col
	}
	return attr
}

// entityRecord flattens an entity and its loaded associations for output
func entityRecord(e *domain.Entity) domain.Record {
	out := e.Attributes()
	for _, name := range e.Loaded() {
		v, _ := e.Association(name)
		switch related := v.(type) {
		case *domain.Entity:
			out[name] = entityRecord(related)
		case []*domain.Entity:
			items := make([]domain.Record, len(related))
			for i, r := range related {
				items[i] = entityRecord(r)
			}
			out[name] = items
		default:
			out[name] = nil
		}
	}
	return out
}
