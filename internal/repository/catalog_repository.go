package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brtkpo/RestaurantApp/internal/domain"
)

// CatalogRepository is the read-only lookup surface the core needs from the
// product/restaurant/address collaborators. Their CRUD lives elsewhere.
type CatalogRepository interface {
	ProductByID(ctx context.Context, productID int64) (*domain.Product, error)
	RestaurantByID(ctx context.Context, restaurantID int64) (*domain.Restaurant, error)
	AddressByID(ctx context.Context, addressID int64) (*domain.Address, error)
}

type catalogRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewCatalogRepository(pool *pgxpool.Pool, logger *zap.Logger) CatalogRepository {
	return &catalogRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog_repository"),
	}
}

func (r *catalogRepo) ProductByID(ctx context.Context, productID int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ProductByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", productID))

	query := `
		SELECT id, restaurant_id, name, description, price, is_available, archived
		FROM products
		WHERE id = $1
	`

	var p domain.Product
	if err := r.pool.QueryRow(ctx, query, productID).Scan(
		&p.ID,
		&p.RestaurantID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.IsAvailable,
		&p.Archived,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

func (r *catalogRepo) RestaurantByID(ctx context.Context, restaurantID int64) (*domain.Restaurant, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.RestaurantByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("restaurant_id", restaurantID))

	query := `
		SELECT id, owner_id, name, phone_number, description,
			minimum_order_amount, allows_cash_payment
		FROM restaurants
		WHERE id = $1
	`

	var res domain.Restaurant
	if err := r.pool.QueryRow(ctx, query, restaurantID).Scan(
		&res.ID,
		&res.OwnerID,
		&res.Name,
		&res.PhoneNumber,
		&res.Description,
		&res.MinimumOrderAmount,
		&res.AllowsCashPayment,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query restaurant: %w", err)
	}

	citiesQuery := `
		SELECT city
		FROM restaurant_delivery_cities
		WHERE restaurant_id = $1
		ORDER BY city
	`

	rows, err := r.pool.Query(ctx, citiesQuery, restaurantID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query delivery cities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan delivery city: %w", err)
		}

		res.DeliveryCities = append(res.DeliveryCities, city)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &res, nil
}

func (r *catalogRepo) AddressByID(ctx context.Context, addressID int64) (*domain.Address, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.AddressByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("address_id", addressID))

	query := `
		SELECT id, user_id, first_name, last_name, phone_number, street,
			building_number, apartment_number, postal_code, city, archived
		FROM addresses
		WHERE id = $1
	`

	var a domain.Address
	if err := r.pool.QueryRow(ctx, query, addressID).Scan(
		&a.ID,
		&a.UserID,
		&a.FirstName,
		&a.LastName,
		&a.PhoneNumber,
		&a.Street,
		&a.BuildingNumber,
		&a.ApartmentNumber,
		&a.PostalCode,
		&a.City,
		&a.Archived,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("failed to query address: %w", err)
	}

	return &a, nil
}
