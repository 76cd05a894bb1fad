package domain

import "fmt"

type Role string

const (
	RoleClient       Role = "client"
	RoleRestaurateur Role = "restaurateur"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleClient, RoleRestaurateur, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is the resolved caller: a user id plus the role discriminator.
// Business logic branches on the role here instead of comparing raw strings
// all over the place.
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsClient() bool       { return i.Role == RoleClient }
func (i Identity) IsRestaurateur() bool { return i.Role == RoleRestaurateur }
func (i Identity) IsAdmin() bool        { return i.Role == RoleAdmin }

type User struct {
	ID          int64  `db:"id"`
	Email       string `db:"email"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	PhoneNumber string `db:"phone_number"`
	Role        Role   `db:"role"`
}

type Restaurant struct {
	ID                 int64    `db:"id"`
	OwnerID            int64    `db:"owner_id"`
	Name               string   `db:"name"`
	PhoneNumber        string   `db:"phone_number"`
	Description        string   `db:"description"`
	MinimumOrderAmount int64    `db:"minimum_order_amount"`
	AllowsCashPayment  bool     `db:"allows_cash_payment"`
	DeliveryCities     []string `db:"delivery_cities"`
}

func (r *Restaurant) DeliversTo(city string) bool {
	for _, c := range r.DeliveryCities {
		if c == city {
			return true
		}
	}
	return false
}

type Product struct {
	ID           int64  `db:"id"`
	RestaurantID int64  `db:"restaurant_id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	Price        int64  `db:"price"`
	IsAvailable  bool   `db:"is_available"`
	Archived     bool   `db:"archived"`
}

type Address struct {
	ID              int64  `db:"id"`
	UserID          int64  `db:"user_id"`
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	PhoneNumber     string `db:"phone_number"`
	Street          string `db:"street"`
	BuildingNumber  int32  `db:"building_number"`
	ApartmentNumber *int32 `db:"apartment_number"`
	PostalCode      string `db:"postal_code"`
	City            string `db:"city"`
	Archived        bool   `db:"archived"`
}
