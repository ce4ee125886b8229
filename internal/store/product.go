package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/potluck/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productCols = `id, household_id, name, category, unit_type, unit_weight_grams, kcal_per_unit, protein, fat, carbs, created_by, created_at, updated_at`

// prefixedProductCols is productCols qualified with the "p." alias for joins.
const prefixedProductCols = `p.id, p.household_id, p.name, p.category, p.unit_type, p.unit_weight_grams, p.kcal_per_unit, p.protein, p.fat, p.carbs, p.created_by, p.created_at, p.updated_at`

func productDest(p *model.Product, unitWeight, protein, fat, carbs *sql.NullFloat64, createdBy *sql.NullInt64) []any {
	return []any{
		&p.ID, &p.HouseholdID, &p.Name, &p.Category, &p.UnitType, unitWeight,
		&p.KcalPerUnit, protein, fat, carbs, createdBy, &p.CreatedAt, &p.UpdatedAt,
	}
}

func fillProductNulls(p *model.Product, unitWeight, protein, fat, carbs sql.NullFloat64, createdBy sql.NullInt64) {
	p.UnitWeightGrams = nullFloatPtr(unitWeight)
	p.Protein = nullFloatPtr(protein)
	p.Fat = nullFloatPtr(fat)
	p.Carbs = nullFloatPtr(carbs)
	p.CreatedBy = nullInt64Ptr(createdBy)
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var unitWeight, protein, fat, carbs sql.NullFloat64
	var createdBy sql.NullInt64
	if err := scanner.Scan(productDest(&p, &unitWeight, &protein, &fat, &carbs, &createdBy)...); err != nil {
		return nil, err
	}
	fillProductNulls(&p, unitWeight, protein, fat, carbs, createdBy)
	return &p, nil
}

func (s *ProductStore) Create(ctx context.Context, p model.Product) (*model.Product, error) {
	if p.UnitType == "" {
		p.UnitType = model.Unit100g
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO products (household_id, name, category, unit_type, unit_weight_grams, kcal_per_unit, protein, fat, carbs, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.HouseholdID, p.Name, p.Category, p.UnitType, floatPtrArg(p.UnitWeightGrams), p.KcalPerUnit,
		floatPtrArg(p.Protein), floatPtrArg(p.Fat), floatPtrArg(p.Carbs), int64PtrArg(p.CreatedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) ListByHousehold(ctx context.Context, householdID int64) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productCols+` FROM products WHERE household_id = ? ORDER BY name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
