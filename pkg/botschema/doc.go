// Package botschema holds the migration units for the bot-management
// service's own tables: users, the bots they manage, media, plans, groups,
// payments, subscriptions and referrals.
//
// The dbkeeper binary registers these units unless --no-builtin is given.
package botschema
