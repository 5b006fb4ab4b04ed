package cart

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository_GetMissingIsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT items, discount_code, updated_at")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"items", "discount_code", "updated_at"}))

	c, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, c.OwnerID)
	assert.Empty(t, c.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetDecodesItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"items", "discount_code", "updated_at"}).
		AddRow([]byte(`[{"productId":7,"name":"Kale","unitPrice":"2.10","quantity":2}]`), "FRESH10", updated)
	mock.ExpectQuery("FROM carts").WithArgs(42).WillReturnRows(rows)

	c, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Kale", c.Items[0].Name)
	assert.Equal(t, "4.20", c.Items[0].LineTotal().StringFixed(2))
	assert.Equal(t, "FRESH10", c.DiscountCode)
	assert.True(t, c.UpdatedAt.Equal(updated))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_SaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO carts").
		WithArgs(42, sqlmock.AnyArg(), "{7,9}", "WELCOME", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), Cart{
		OwnerID:      42,
		Items:        []Item{{ProductID: 7, Quantity: 1}, {ProductID: 9, Quantity: 2}},
		DiscountCode: "WELCOME",
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_OwnersWithProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM carts")).
		WithArgs("{9}").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(3).AddRow(8))

	owners, err := repo.OwnersWithProduct(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8}, owners)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM carts").WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, NewPostgresRepository(db).Delete(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}
