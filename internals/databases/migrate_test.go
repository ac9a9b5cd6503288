package database_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"

	accountModel "callmanager_backend/internals/features/accounts/model"
	attendanceModel "callmanager_backend/internals/features/sync/attendance/model"
	callHistoryModel "callmanager_backend/internals/features/sync/call_history/model"
)

func TestOwnedRowsCascadeWithOwner(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		model    any
		relation string
		table    string
		column   string
	}{
		{"users", &accountModel.AdminModel{}, "Users", "admins", "admin_id"},
		{"call_history", &callHistoryModel.CallHistoryModel{}, "User", "users", "user_id"},
		{"attendance", &attendanceModel.AttendanceModel{}, "User", "users", "user_id"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := schema.Parse(tc.model, &sync.Map{}, schema.NamingStrategy{})
			require.NoError(t, err)
			rel, ok := s.Relationships.Relations[tc.relation]
			require.True(t, ok)

			c := rel.ParseConstraint()
			require.NotNil(t, c)
			assert.Equal(t, "CASCADE", c.OnDelete)
			assert.Equal(t, tc.table, c.ReferenceSchema.Table)
			require.Len(t, c.ForeignKeys, 1)
			assert.Equal(t, tc.column, c.ForeignKeys[0].DBName)
		})
	}
}
