package rbac

import "testing"

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "session:start", true},
		{"student", "session:submit", true},
		{"student", "leaderboard:view", true},
		{"student", "exam:create", false},
		{"student", "question:bulk_add", false},
		{"admin", "exam:create", true},
		{"admin", "anything:at:all", true},
		{"nosuchrole", "exam:view", false},
		{"", "exam:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}

	if !c.Any("student", "exam:create", "discussion:write") {
		t.Error("Any should pass when one permission matches")
	}
	if c.Any("student", "exam:create", "exam:delete") {
		t.Error("Any should fail when none match")
	}
}

func TestWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{"grader": {"session:*"}})
	if !c.Has("grader", "session:submit") {
		t.Error("prefix wildcard must match")
	}
	if c.Has("grader", "exam:view") {
		t.Error("prefix wildcard must not leak across prefixes")
	}
}
