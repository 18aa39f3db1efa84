package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	Favorites    []string  `json:"favorites"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

type Review struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	RestaurantID string    `json:"restaurant_id"`
	OrderID      string    `json:"order_id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}
