package connection

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLogger_ClosesWrappedPool(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("add_logger_pool")
	require.NoError(t, err)
	mock.ExpectClose()

	logged := AddLogger(db, "add_logger_pool", "mysql", zerolog.Nop())
	require.NotNil(t, logged)
	defer logged.Close()

	assert.NotSame(t, db, logged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
