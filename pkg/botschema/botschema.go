package botschema

import (
	"context"

	"github.com/zenyx/dbkeeper/pkg/migrator"
	"github.com/zenyx/dbkeeper/pkg/schema"
)

// DefaultWelcomeText is the greeting a managed bot sends until its owner
// sets one. %firstname% is replaced by the bot at send time.
const DefaultWelcomeText = "Hello %firstname%, welcome!"

// Units returns the schema of the bot-management service, oldest first.
func Units() []migrator.Unit {
	return []migrator.Unit{
		{Name: "001_create_users", Apply: createUsers, Revert: dropTable("users")},
		{Name: "002_create_managed_bots", Apply: createManagedBots, Revert: dropTable("managed_bots")},
		{Name: "003_create_bot_media", Apply: createBotMedia, Revert: dropTable("bot_media")},
		{Name: "004_create_plans", Apply: createPlans, Revert: dropTable("plans")},
		{Name: "005_create_managed_groups", Apply: createManagedGroups, Revert: dropTable("managed_groups")},
		{Name: "006_create_transactions", Apply: createTransactions, Revert: dropTable("transactions")},
		{Name: "007_create_subscriptions", Apply: createSubscriptions, Revert: dropTable("subscriptions")},
		{Name: "008_create_referrals", Apply: createReferrals, Revert: dropTable("referrals")},
		{Name: "009_add_lookup_indexes", Apply: addLookupIndexes, Revert: dropLookupIndexes},
	}
}

// Registry returns Units as a registry.
func Registry() (*migrator.Registry, error) {
	return migrator.NewRegistry(Units()...)
}

func createUsers(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "users", func(bp *schema.Blueprint) {
		bp.ID()
		bp.BigInteger("telegram_id").Unique()
		bp.String("username").Nullable()
		bp.String("first_name").Nullable()
		bp.String("last_name").Nullable()
		bp.Boolean("is_admin").Default(false)
		bp.Boolean("is_vip").Default(false)
		bp.Timestamp("vip_until").Nullable()
		bp.Decimal("balance", 10, 2).Default(0)
		bp.Timestamps()
	})
}

func createManagedBots(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "managed_bots", func(bp *schema.Blueprint) {
		bp.ID()
		bp.BigInteger("owner_id").Comment("telegram id of the owning user")
		bp.String("bot_token").Unique()
		bp.String("bot_username").Nullable()
		bp.String("pushinpay_token").Nullable()
		bp.Text("welcome_text").Default(DefaultWelcomeText)
		bp.Timestamps()

		bp.Foreign("owner_id").References("telegram_id").On("users").OnDelete("cascade").Add()
		bp.Index("", "owner_id")
	})
}

func createBotMedia(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "bot_media", func(bp *schema.Blueprint) {
		bp.ID()
		bp.ForeignID("bot_id")
		bp.String("file_id")
		bp.Enum("media_type", "photo", "video", "animation", "document")
		bp.Timestamp("created_at").UseCurrent()

		bp.Foreign("bot_id").References("id").On("managed_bots").OnDelete("cascade").Add()
		bp.Index("", "bot_id")
	})
}

func createPlans(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "plans", func(bp *schema.Blueprint) {
		bp.ID()
		bp.ForeignID("bot_id")
		bp.String("name", 100)
		bp.Decimal("price", 10, 2)
		bp.Integer("duration").Comment("days; 0 means lifetime")
		bp.Boolean("is_active").Default(true)
		bp.Timestamps()

		bp.Foreign("bot_id").References("id").On("managed_bots").OnDelete("cascade").Add()
		bp.Index("", "bot_id")
	})
}

func createManagedGroups(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "managed_groups", func(bp *schema.Blueprint) {
		bp.ID()
		bp.ForeignID("bot_id")
		bp.BigInteger("chat_id")
		bp.String("chat_title").Nullable()
		bp.Enum("chat_type", "group", "supergroup", "channel")
		bp.String("invite_link").Nullable()
		bp.Timestamps()

		bp.Foreign("bot_id").References("id").On("managed_bots").OnDelete("cascade").Add()
		bp.UniqueIndex("", "bot_id", "chat_id")
	})
}

func createTransactions(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "transactions", func(bp *schema.Blueprint) {
		bp.ID()
		bp.BigInteger("user_id")
		bp.Decimal("amount", 12, 2)
		bp.Enum("type", "deposit", "withdrawal", "payment", "refund", "commission")
		bp.Enum("status", "pending", "completed", "failed").Default("pending")
		bp.String("reference_id").Nullable()
		bp.Text("description").Nullable()
		bp.Timestamps()

		bp.Foreign("user_id").References("telegram_id").On("users").OnDelete("cascade").Add()
	})
}

func createSubscriptions(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "subscriptions", func(bp *schema.Blueprint) {
		bp.ID()
		bp.BigInteger("user_id")
		bp.ForeignID("group_id")
		bp.ForeignID("plan_id").Nullable()
		bp.Timestamp("start_date").UseCurrent()
		bp.Timestamp("end_date").Nullable().Comment("NULL for lifetime plans")
		bp.Enum("payment_status", "pending", "approved", "rejected", "refunded").Default("pending")
		bp.String("transaction_id").Nullable()
		bp.Timestamps()

		bp.Foreign("user_id").References("telegram_id").On("users").OnDelete("cascade").Add()
		bp.Foreign("group_id").References("id").On("managed_groups").OnDelete("cascade").Add()
		bp.Foreign("plan_id").References("id").On("plans").OnDelete("set null").Add()
	})
}

func createReferrals(ctx context.Context, s *schema.Builder) error {
	return s.Create(ctx, "referrals", func(bp *schema.Blueprint) {
		bp.ID()
		bp.BigInteger("referrer_id")
		bp.BigInteger("referred_id").Unique()
		bp.Timestamp("created_at").UseCurrent()

		bp.Foreign("referrer_id").References("telegram_id").On("users").OnDelete("cascade").Add()
		bp.Foreign("referred_id").References("telegram_id").On("users").OnDelete("cascade").Add()
		bp.Index("", "referrer_id")
	})
}

func addLookupIndexes(ctx context.Context, s *schema.Builder) error {
	if err := s.Alter(ctx, "users", func(bp *schema.Blueprint) {
		bp.Index("", "is_vip", "vip_until")
	}); err != nil {
		return err
	}

	if err := s.Alter(ctx, "transactions", func(bp *schema.Blueprint) {
		bp.Index("", "user_id", "created_at")
	}); err != nil {
		return err
	}

	return s.Alter(ctx, "subscriptions", func(bp *schema.Blueprint) {
		bp.Index("", "user_id", "group_id")
		bp.Index("", "end_date")
	})
}

func dropLookupIndexes(ctx context.Context, s *schema.Builder) error {
	if err := s.Alter(ctx, "subscriptions", func(bp *schema.Blueprint) {
		bp.DropIndex("subscriptions_end_date_index")
		bp.DropIndex("subscriptions_user_id_group_id_index")
	}); err != nil {
		return err
	}

	if err := s.Alter(ctx, "transactions", func(bp *schema.Blueprint) {
		bp.DropIndex("transactions_user_id_created_at_index")
	}); err != nil {
		return err
	}

	return s.Alter(ctx, "users", func(bp *schema.Blueprint) {
		bp.DropIndex("users_is_vip_vip_until_index")
	})
}

func dropTable(table string) migrator.Func {
	return func(ctx context.Context, s *schema.Builder) error {
		return s.Drop(ctx, table)
	}
}
