package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{"id", "name", "description", "price", "quantity", "status", "created_at", "updated_at"}

func floatPtr(v float64) *float64 { return &v }

func TestProductRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful insert assigns id and timestamps", func(t *testing.T) {
		product := &model.Product{
			Name:        "Test Product",
			Description: "Test Description",
			Price:       99.99,
			Quantity:    5,
		}

		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WithArgs(product.Name, product.Description, product.Price, product.Quantity, "ACTIVE", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

		result, err := repo.Insert(ctx, product)
		require.NoError(t, err)

		assert.Equal(t, int64(42), result.ID)
		assert.Equal(t, model.ProductStatusActive, result.Status)
		assert.False(t, result.CreatedAt.IsZero())
		assert.False(t, result.UpdatedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation becomes a constraint error", func(t *testing.T) {
		product := &model.Product{Name: "Duplicate", Price: 1, Quantity: 1}

		mock.ExpectPrepare("INSERT INTO products").
			ExpectQuery().
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "products_name_key", Detail: "Key (name)=(Duplicate) already exists."})

		result, err := repo.Insert(ctx, product)
		require.Error(t, err)
		assert.Nil(t, result)

		var constraintErr *repository.ConstraintError
		require.True(t, errors.As(err, &constraintErr))
		assert.Equal(t, "products_name_key", constraintErr.Constraint)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful find", func(t *testing.T) {
		now := time.Now()
		rows := sqlmock.NewRows(productRowColumns).
			AddRow(int64(1), "Test Product", "Test Description", 99.99, 3, "INACTIVE", now, now)

		mock.ExpectPrepare(regexp.QuoteMeta("FROM products WHERE id = $1")).
			ExpectQuery().
			WithArgs(int64(1)).
			WillReturnRows(rows)

		found, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, int64(1), found.ID)
		assert.Equal(t, "Test Product", found.Name)
		assert.Equal(t, 99.99, found.Price)
		assert.Equal(t, 3, found.Quantity)
		assert.Equal(t, model.ProductStatusInactive, found.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("product not found", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("FROM products WHERE id = $1")).
			ExpectQuery().
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		found, err := repo.FindByID(ctx, 999)
		require.Error(t, err)
		assert.Nil(t, found)
		assert.True(t, errors.Is(err, repository.ErrNotFound))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("exists by id", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)")).
			ExpectQuery().
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		found, err := repo.ExistsByID(ctx, 7)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("exists by name", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)")).
			ExpectQuery().
			WithArgs("Widget").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		found, err := repo.ExistsByName(ctx, "Widget")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("exists by name excluding id", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM products WHERE name = $1 AND id <> $2)")).
			ExpectQuery().
			WithArgs("Widget", int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		found, err := repo.ExistsByNameExcludingID(ctx, "Widget", 3)
		require.NoError(t, err)
		assert.True(t, found)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	now := time.Now()
	rows := sqlmock.NewRows(productRowColumns).
		AddRow(int64(1), "Product 1", "Description 1", 99.99, 1, "ACTIVE", now, now).
		AddRow(int64(2), "Product 2", "Description 2", 149.99, 2, "ACTIVE", now, now)

	mock.ExpectPrepare("SELECT (.+) FROM products ORDER BY id").
		ExpectQuery().
		WillReturnRows(rows)

	result, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "Product 1", result[0].Name)
	assert.Equal(t, "Product 2", result[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindMatching(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("no predicates", func(t *testing.T) {
		mock.ExpectPrepare(regexp.QuoteMeta("FROM products WHERE 1=1 ORDER BY id")).
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		result, err := repo.FindMatching(ctx, repository.ProductFilter{})
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("all predicates are combined", func(t *testing.T) {
		now := time.Now()
		filter := repository.NewProductFilter("Wid_get%", floatPtr(10), floatPtr(30))

		mock.ExpectPrepare(regexp.QuoteMeta(`WHERE 1=1 AND LOWER(name) LIKE $1 ESCAPE '\' AND price >= $2 AND price <= $3 ORDER BY id`)).
			ExpectQuery().
			WithArgs(`%wid\_get\%%`, 10.0, 30.0).
			WillReturnRows(sqlmock.NewRows(productRowColumns).
				AddRow(int64(1), "Wid_get%", "", 20.0, 1, "ACTIVE", now, now))

		result, err := repo.FindMatching(ctx, filter)
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "Wid_get%", result[0].Name)
	})

	t.Run("price bounds only", func(t *testing.T) {
		filter := repository.NewProductFilter("", nil, floatPtr(25))

		mock.ExpectPrepare(regexp.QuoteMeta("WHERE 1=1 AND price <= $1 ORDER BY id")).
			ExpectQuery().
			WithArgs(25.0).
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		_, err := repo.FindMatching(ctx, filter)
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	created := time.Now().Add(-time.Hour)

	t.Run("successful update refreshes updated_at", func(t *testing.T) {
		product := &model.Product{ID: 5, Name: "Renamed", Price: 12.5, Quantity: 4, Status: model.ProductStatusDiscontinued, CreatedAt: created, UpdatedAt: created}

		mock.ExpectPrepare("UPDATE products SET").
			ExpectExec().
			WithArgs("Renamed", "", 12.5, 4, "DISCONTINUED", sqlmock.AnyArg(), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		result, err := repo.Update(ctx, product)
		require.NoError(t, err)
		assert.Equal(t, created, result.CreatedAt)
		assert.True(t, result.UpdatedAt.After(created))
	})

	t.Run("missing row", func(t *testing.T) {
		product := &model.Product{ID: 999, Name: "Ghost", Price: 1, Quantity: 1, Status: model.ProductStatusActive}

		mock.ExpectPrepare("UPDATE products SET").
			ExpectExec().
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repo.Update(ctx, product)
		assert.True(t, errors.Is(err, repository.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_DeleteByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProductRepository(db)
	ctx := context.Background()

	t.Run("successful delete", func(t *testing.T) {
		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.DeleteByID(ctx, 1)
		require.NoError(t, err)
	})

	t.Run("product not found", func(t *testing.T) {
		mock.ExpectPrepare("DELETE FROM products WHERE id").
			ExpectExec().
			WithArgs(int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteByID(ctx, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, repository.ErrNotFound))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
