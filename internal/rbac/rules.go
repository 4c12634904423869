package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"session:start",
		"session:resume",
		"session:submit",
		"attempt:view-own",
		"leaderboard:view",
		"discussion:read",
		"discussion:write",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
