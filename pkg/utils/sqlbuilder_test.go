package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/utils"
)

func TestSQLBuilder_CREATE(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *utils.SQLBuilder
		expected string
	}{
		{
			name:     "CREATE TABLE",
			builder:  func() *utils.SQLBuilder { return utils.NewSQLBuilder().Create("TABLE").Name("users") },
			expected: `CREATE TABLE "users"`,
		},
		{
			name: "CREATE INDEX",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Create("INDEX").Name("plans_bot_id_index").On("plans").Columns("bot_id")
			},
			expected: `CREATE INDEX "plans_bot_id_index" ON "plans" ("bot_id")`,
		},
		{
			name: "CREATE UNIQUE INDEX on multiple columns",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Create("UNIQUE INDEX").Name("u").On("t").Columns("a", "b")
			},
			expected: `CREATE UNIQUE INDEX "u" ON "t" ("a", "b")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.builder().String())
		})
	}
}

func TestSQLBuilder_DROP(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *utils.SQLBuilder
		expected string
	}{
		{
			name:     "DROP TABLE",
			builder:  func() *utils.SQLBuilder { return utils.NewSQLBuilder().Drop("TABLE").Name("users") },
			expected: `DROP TABLE "users"`,
		},
		{
			name:     "DROP TABLE IF EXISTS",
			builder:  func() *utils.SQLBuilder { return utils.NewSQLBuilder().Drop("TABLE").IfExists().Name("users") },
			expected: `DROP TABLE IF EXISTS "users"`,
		},
		{
			name:     "DROP INDEX with CASCADE",
			builder:  func() *utils.SQLBuilder { return utils.NewSQLBuilder().Drop("INDEX").Name("idx").Raw("CASCADE") },
			expected: `DROP INDEX "idx" CASCADE`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.builder().String())
		})
	}
}

func TestSQLBuilder_ALTER(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *utils.SQLBuilder
		expected string
	}{
		{
			name: "ADD COLUMN",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Alter("TABLE").Name("users").Add("COLUMN").Name("nickname").Raw("VARCHAR(255)")
			},
			expected: `ALTER TABLE "users" ADD COLUMN "nickname" VARCHAR(255)`,
		},
		{
			name: "RENAME COLUMN",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Alter("TABLE").Name("users").Rename("COLUMN").Name("nick").To("nickname")
			},
			expected: `ALTER TABLE "users" RENAME COLUMN "nick" TO "nickname"`,
		},
		{
			name: "RENAME TABLE",
			builder: func() *utils.SQLBuilder {
				return utils.NewSQLBuilder().Alter("TABLE").Name("users").Raw("RENAME").To("accounts")
			},
			expected: `ALTER TABLE "users" RENAME TO "accounts"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.builder().String())
		})
	}
}

func TestSQLBuilder_Escaped(t *testing.T) {
	sql := utils.NewSQLBuilder().Raw("DEFAULT").Escaped("it's").String()
	require.Equal(t, "DEFAULT 'it''s'", sql)
}

func TestSQLBuilder_EmptyParts(t *testing.T) {
	b := utils.NewSQLBuilder().Drop("TABLE").Name("").To("").Raw("").Columns()
	require.Equal(t, "DROP TABLE", b.String())
}
