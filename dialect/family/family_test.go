package family

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/dialect"
)

func TestForDriverName(t *testing.T) {
	tests := []struct {
		driver string
		want   Family
		ok     bool
	}{
		{"mysql", MySQLLike, true},
		{"postgres", Generic, true},
		{"sqlite", Generic, true},
		{"oracle", OracleLike, true},
		{"sqlserver", SQLServerLike, true},
		{"nonsense", Generic, false},
	}
	for _, tc := range tests {
		got, ok := ForDriverName(tc.driver)
		assert.Equal(t, tc.want, got, tc.driver)
		assert.Equal(t, tc.ok, ok, tc.driver)
	}
}

func TestEveryFamilyIsRegistered(t *testing.T) {
	for _, f := range []Family{OracleLike, SQLServerLike, MySQLLike, Generic} {
		m, ok := New(f)
		require.True(t, ok, "family %s not registered", f)
		assert.Equal(t, f, m.Family())
	}
}

func TestSQLTypeCoversEveryColumnType(t *testing.T) {
	cols := []dialect.ColumnType{
		dialect.ColumnBool, dialect.ColumnSmallInt, dialect.ColumnInt,
		dialect.ColumnBigInt, dialect.ColumnDouble, dialect.ColumnDecimal,
		dialect.ColumnChar, dialect.ColumnVarChar, dialect.ColumnText,
		dialect.ColumnBlob, dialect.ColumnDate, dialect.ColumnTime,
		dialect.ColumnDateTime, dialect.ColumnEnum,
	}
	for _, f := range []Family{OracleLike, SQLServerLike, MySQLLike, Generic} {
		m, _ := New(f)
		for _, c := range cols {
			sqlType, err := m.SQLType(c, 32)
			require.NoError(t, err, "family %s column %s", f, c)
			assert.NotEmpty(t, sqlType)
		}
		_, err := m.SQLType(dialect.ColumnInvalid, 0)
		assert.Error(t, err)
	}
}

func TestQuoteDiffersByFamily(t *testing.T) {
	mysql, _ := New(MySQLLike)
	assert.Equal(t, "`ID`", mysql.Quote("ID"))

	sqlServer, _ := New(SQLServerLike)
	assert.Equal(t, "[ID]", sqlServer.Quote("ID"))

	generic, _ := New(Generic)
	assert.Equal(t, `"ID"`, generic.Quote("ID"))
}

func TestAllowsCascadeInCycle(t *testing.T) {
	mysql, _ := New(MySQLLike)
	assert.True(t, mysql.AllowsCascadeInCycle())

	oracle, _ := New(OracleLike)
	assert.False(t, oracle.AllowsCascadeInCycle())

	sqlServer, _ := New(SQLServerLike)
	assert.False(t, sqlServer.AllowsCascadeInCycle())
}
