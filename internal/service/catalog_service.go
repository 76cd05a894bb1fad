package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brtkpo/RestaurantApp/internal/domain"
	"github.com/brtkpo/RestaurantApp/internal/repository"
)

// CatalogService exposes the collaborator lookups the core depends on:
// product price/availability/owner, restaurant delivery rules, address city.
type CatalogService interface {
	ProductByID(ctx context.Context, productID int64) (*domain.Product, error)
	RestaurantByID(ctx context.Context, restaurantID int64) (*domain.Restaurant, error)
	AddressByID(ctx context.Context, addressID int64) (*domain.Address, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ProductByID(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.repo.ProductByID(ctx, productID)
}

func (s *catalogService) RestaurantByID(ctx context.Context, restaurantID int64) (*domain.Restaurant, error) {
	return s.repo.RestaurantByID(ctx, restaurantID)
}

func (s *catalogService) AddressByID(ctx context.Context, addressID int64) (*domain.Address, error) {
	return s.repo.AddressByID(ctx, addressID)
}

type cachedCatalogService struct {
	next        CatalogService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewCachedCatalogService caches product and restaurant lookups, which sit on
// the hot path of every cart mutation and checkout. Addresses are not cached:
// archival must be observed immediately.
func NewCachedCatalogService(next CatalogService, redisClient *redis.Client) CatalogService {
	return &cachedCatalogService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func (s *cachedCatalogService) ProductByID(ctx context.Context, productID int64) (*domain.Product, error) {
	key := fmt.Sprintf("product:%d", productID)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedCatalogService) RestaurantByID(ctx context.Context, restaurantID int64) (*domain.Restaurant, error) {
	key := fmt.Sprintf("restaurant:%d", restaurantID)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var restaurant domain.Restaurant
		if err := json.Unmarshal([]byte(val), &restaurant); err == nil {
			return &restaurant, nil
		}
	}

	restaurant, err := s.next.RestaurantByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(restaurant); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return restaurant, nil
}

func (s *cachedCatalogService) AddressByID(ctx context.Context, addressID int64) (*domain.Address, error) {
	return s.next.AddressByID(ctx, addressID)
}
