package migrator

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/schema"
)

var (
	// ErrInvalidUnit is returned by NewRegistry for units without a valid
	// name or Apply function, and for duplicate names.
	ErrInvalidUnit = errors.New("invalid migration unit")

	// ErrIrreversible is returned by the Revert of a unit that has no way
	// back, such as a SQL file without a Down section.
	ErrIrreversible = errors.New("migration unit is irreversible")

	namePattern = regexp.MustCompile(`^[0-9]+_[a-z0-9_]+$`)
)

type (
	// Func applies or reverts a unit's schema change. Every statement issued
	// through s runs in the unit's transaction.
	Func func(ctx context.Context, s *schema.Builder) error

	// Unit is one named, reversible schema change. Units are ordered by Name,
	// so names start with a sortable prefix such as a timestamp or sequence
	// number.
	//
	// Example:
	//
	//	migrator.Unit{
	//		Name: "20250101120000_create_plans",
	//		Apply: func(ctx context.Context, s *schema.Builder) error {
	//			return s.Create(ctx, "plans", func(bp *schema.Blueprint) {
	//				bp.ID()
	//				bp.String("name", 100)
	//			})
	//		},
	//		Revert: func(ctx context.Context, s *schema.Builder) error {
	//			return s.Drop(ctx, "plans")
	//		},
	//	}
	Unit struct {
		Name   string
		Apply  Func
		Revert Func
	}

	// Registry is the ordered set of units known to a host.
	Registry struct {
		units []Unit
		index map[string]int
	}
)

// ValidName reports whether name follows the <sortable prefix>_<slug>
// convention, e.g. 001_create_users or 20250101120000_add_vip_flag.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// NewRegistry builds a registry from units. Units are sorted by name; the
// order they are passed in does not matter.
func NewRegistry(units ...Unit) (*Registry, error) {
	r := &Registry{
		units: make([]Unit, 0, len(units)),
		index: make(map[string]int, len(units)),
	}

	for _, u := range units {
		if !ValidName(u.Name) {
			return nil, errors.Wrapf(ErrInvalidUnit, "name %q must look like <digits>_<slug>", u.Name)
		}

		if u.Apply == nil {
			return nil, errors.Wrapf(ErrInvalidUnit, "%s has no Apply", u.Name)
		}

		if _, ok := r.index[u.Name]; ok {
			return nil, errors.Wrapf(ErrInvalidUnit, "duplicate name %s", u.Name)
		}

		r.index[u.Name] = -1
		r.units = append(r.units, u)
	}

	slices.SortFunc(r.units, func(a, b Unit) int { return strings.Compare(a.Name, b.Name) })
	for i, u := range r.units {
		r.index[u.Name] = i
	}

	return r, nil
}

// Units returns every unit in ascending name order.
func (r *Registry) Units() []Unit {
	return slices.Clone(r.units)
}

// Get looks up a unit by name.
func (r *Registry) Get(name string) (Unit, bool) {
	i, ok := r.index[name]
	if !ok {
		return Unit{}, false
	}
	return r.units[i], true
}

// Len returns the number of registered units.
func (r *Registry) Len() int {
	return len(r.units)
}

// Irreversible is a Revert for units that cannot be undone.
func Irreversible(name string) Func {
	return func(context.Context, *schema.Builder) error {
		return errors.Wrap(ErrIrreversible, name)
	}
}
