package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("app", "s3cret", "db.local", "3306", "tickets", 5)
	assert.Equal(t,
		"app:s3cret@tcp(db.local:3306)/tickets?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true&innodb_lock_wait_timeout=5",
		dsn)
}

func TestBuildDSNWithoutPassword(t *testing.T) {
	dsn := buildDSN("app", "", "localhost", "3306", "tickets", 10)
	assert.Equal(t,
		"app@tcp(localhost:3306)/tickets?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true&innodb_lock_wait_timeout=10",
		dsn)
}

// The repositories decide "guard fired" from RowsAffected == 0, which is
// only sound when affected counts matched rows, and the lock-wait bound
// must reach every pooled connection, which only the DSN guarantees.
func TestBuildDSNCarriesDriverContractParams(t *testing.T) {
	dsn := buildDSN("u", "p", "h", "3306", "d", 7)
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "innodb_lock_wait_timeout=7")
}
