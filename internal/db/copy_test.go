package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "crawled_pages", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"crawled_pages"}, []string{"id", "url"}).WillReturnResult(2)

	rows := [][]any{{"p1", "https://a.example/"}, {"p2", "https://a.example/about"}}
	n, err := CopyFrom(context.Background(), mock, "crawled_pages", []string{"id", "url"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"crawled_pages"}, []string{"id", "url"}).
		WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "crawled_pages", []string{"id", "url"}, [][]any{{"p1", "u"}})
	assert.ErrorContains(t, err, "COPY INTO crawled_pages")
	assert.NoError(t, mock.ExpectationsWereMet())
}
