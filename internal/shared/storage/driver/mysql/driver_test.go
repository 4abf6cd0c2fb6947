package mysql

import (
	"errors"
	"fmt"
	"testing"

	"blog-graphql/internal/shared/storage/dbutil"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestDialect(t *testing.T) {
	d := NewDialect()
	assert.Equal(t, dbutil.DriverMySQL, d.DriverType())
	assert.False(t, d.SupportsReturning())
	assert.Equal(t, "SELECT * FROM users WHERE id = ?", d.Rebind("SELECT * FROM users WHERE id = $1"))
}

func TestDialect_Constraint(t *testing.T) {
	d := NewDialect()
	tests := []struct {
		name string
		err  error
		want dbutil.ConstraintKind
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, dbutil.ConstraintUnique},
		{"foreign key", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, dbutil.ConstraintForeignKey},
		{"wrapped", fmt.Errorf("exec: %w", &mysql.MySQLError{Number: 1062}), dbutil.ConstraintUnique},
		{"syntax", &mysql.MySQLError{Number: 1064}, dbutil.ConstraintNone},
		{"other", errors.New("bad connection"), dbutil.ConstraintNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Constraint(tt.err))
		})
	}
}
