package rbac

const (
	PermSessionCreate   = "session:create"
	PermSessionViewOwn  = "session:view-own"
	PermSessionClose    = "session:close"
	PermAnswerSubmit    = "answer:submit"
	PermAnswerViewOwn   = "answer:view-own"
	PermStatsViewOwn    = "stats:view-own"
	PermQuestionBrowse  = "question:browse"
	PermQuestionImport  = "question:import"
	PermPasswordChange  = "user:change_password"
	PermUsersBulkUpsert = "users:bulk_upsert" // admin only
	PermEventsRead      = "events:read"       // admin only
)

// RolePermissions is the default policy. Teachers can take tests too.
var RolePermissions = map[string][]string{
	"student": {
		"session:*",
		"answer:*",
		PermStatsViewOwn,
		PermQuestionBrowse,
		PermPasswordChange,
	},
	"teacher": {
		"session:*",
		"answer:*",
		PermStatsViewOwn,
		PermQuestionBrowse,
		PermQuestionImport,
		PermPasswordChange,
	},
	"admin": {
		"*", // everything
	},
}
