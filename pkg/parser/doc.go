// Package parser splits SQL migration files into executable statements.
//
// Migration files use comment directives to separate the forward and
// reverse halves of a change:
//
//	-- +migrate Up
//	ALTER TABLE "users" ADD COLUMN "language" VARCHAR(8) NOT NULL DEFAULT 'pt';
//
//	-- +migrate Down
//	ALTER TABLE "users" DROP COLUMN "language";
//
// The lexer is built with participle and understands PostgreSQL string
// literals (including E'' escape strings), quoted identifiers, line and
// block comments, and dollar-quoted bodies such as $$ ... $$ or
// $body$ ... $body$. Semicolons inside any of them never end a statement.
package parser
