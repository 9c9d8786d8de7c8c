package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/repository"
)

const productColumns = "id, name, description, price, quantity, status, created_at, updated_at"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductRepository implements repository.ProductStore on PostgreSQL.
type ProductRepository struct {
	db  *sql.DB
	txn *sql.Tx
}

// NewProductRepository creates a new ProductRepository instance.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// getExecutor returns the active executor (transaction if exists, otherwise db)
func (r *ProductRepository) getExecutor() dbExecutor {
	if r.txn != nil {
		return r.txn
	}
	return r.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = model.ProductStatus(status)
	return &p, nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*model.Product, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return false, fmt.Errorf("failed to prepare exists statement: %w", err)
	}
	defer stmt.Close()

	var found bool
	if err := stmt.QueryRowContext(ctx, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("failed to query product existence: %w", err)
	}
	return found, nil
}

// FindAll returns every product ordered by id.
func (r *ProductRepository) FindAll(ctx context.Context) ([]*model.Product, error) {
	return r.queryProducts(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

// FindByID retrieves a single product by ID. Inside a transaction the row is
// locked until commit so concurrent updates of the same product serialise.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1"
	if r.txn != nil {
		query += " FOR UPDATE"
	}

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	product, err := scanProduct(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return product, nil
}

// ExistsByID reports whether a product with the given id exists.
func (r *ProductRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", id)
}

// ExistsByName reports whether any product uses name.
func (r *ProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE name = $1)", name)
}

// ExistsByNameExcludingID reports whether a product other than id uses name.
func (r *ProductRepository) ExistsByNameExcludingID(ctx context.Context, name string, id int64) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM products WHERE name = $1 AND id <> $2)", name, id)
}

// FindMatching retrieves the products satisfying every predicate of filter.
func (r *ProductRepository) FindMatching(ctx context.Context, filter repository.ProductFilter) ([]*model.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + productColumns + " FROM products WHERE 1=1")

	var args []any
	argIndex := 1

	if filter.Name != nil {
		queryBuilder.WriteString(fmt.Sprintf(` AND LOWER(name) LIKE $%d ESCAPE '\'`, argIndex))
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(*filter.Name))+"%")
		argIndex++
	}
	if filter.MinPrice != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}
	if filter.MaxPrice != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
	}

	queryBuilder.WriteString(" ORDER BY id")

	return r.queryProducts(ctx, queryBuilder.String(), args...)
}

// Insert stores a new product and assigns its id and timestamps.
func (r *ProductRepository) Insert(ctx context.Context, product *model.Product) (*model.Product, error) {
	product.InitMeta()

	query := `INSERT INTO products (name, description, price, quantity, status, created_at, updated_at) 
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	err = stmt.QueryRowContext(ctx, product.Name, product.Description, product.Price, product.Quantity,
		string(product.Status), product.CreatedAt, product.UpdatedAt).Scan(&product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", translateError(err))
	}

	return product, nil
}

// Update replaces the mutable fields of an existing product and refreshes UpdatedAt.
func (r *ProductRepository) Update(ctx context.Context, product *model.Product) (*model.Product, error) {
	product.Touch()

	query := `UPDATE products SET name = $1, description = $2, price = $3, quantity = $4, status = $5, updated_at = $6 
	          WHERE id = $7`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare update statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, product.Name, product.Description, product.Price, product.Quantity,
		string(product.Status), product.UpdatedAt, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", translateError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("product %d: %w", product.ID, repository.ErrNotFound)
	}

	return product, nil
}

// DeleteByID deletes a product by ID.
func (r *ProductRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, repository.ErrNotFound)
	}

	return nil
}
