package migrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	. "github.com/zenyx/dbkeeper/pkg/migrator"
	"github.com/zenyx/dbkeeper/pkg/schema"
)

func noop(context.Context, *schema.Builder) error { return nil }

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{name: "001_create_users", valid: true},
		{name: "20250101120000_add_vip_flag", valid: true},
		{name: "1_x", valid: true},
		{name: "create_users", valid: false},
		{name: "001-create-users", valid: false},
		{name: "001_Create_Users", valid: false},
		{name: "001_", valid: false},
		{name: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, ValidName(tt.name))
		})
	}
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(
		Unit{Name: "003_add_index", Apply: noop},
		Unit{Name: "001_create_users", Apply: noop, Revert: noop},
		Unit{Name: "002_create_bots", Apply: noop, Revert: noop},
	)
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	units := r.Units()
	require.Len(t, units, 3)
	require.Equal(t, "001_create_users", units[0].Name)
	require.Equal(t, "002_create_bots", units[1].Name)
	require.Equal(t, "003_add_index", units[2].Name)

	// Units returns a copy
	units[0].Name = "changed"
	require.Equal(t, "001_create_users", r.Units()[0].Name)

	u, ok := r.Get("002_create_bots")
	require.True(t, ok)
	require.Equal(t, "002_create_bots", u.Name)

	_, ok = r.Get("999_missing")
	require.False(t, ok)
}

func TestNewRegistry_Empty(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	require.Zero(t, r.Len())
	require.Empty(t, r.Units())
}

func TestNewRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		units   []Unit
		message string
	}{
		{
			name:    "bad name",
			units:   []Unit{{Name: "create_users", Apply: noop}},
			message: `name "create_users" must look like <digits>_<slug>`,
		},
		{
			name:    "missing apply",
			units:   []Unit{{Name: "001_create_users"}},
			message: "001_create_users has no Apply",
		},
		{
			name: "duplicate",
			units: []Unit{
				{Name: "001_create_users", Apply: noop},
				{Name: "001_create_users", Apply: noop},
			},
			message: "duplicate name 001_create_users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.units...)
			require.ErrorIs(t, err, ErrInvalidUnit)
			require.ErrorContains(t, err, tt.message)
		})
	}
}

func TestIrreversible(t *testing.T) {
	err := Irreversible("001_seed_plans")(context.Background(), nil)
	require.ErrorIs(t, err, ErrIrreversible)
	require.ErrorContains(t, err, "001_seed_plans")
}
