package domain

import "github.com/shopspring/decimal"

type Restaurant struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	CuisineType  string          `json:"cuisine_type"`
	Rating       float64         `json:"rating"`
	Image        string          `json:"image"`
	DeliveryTime string          `json:"delivery_time"`
	MinOrder     decimal.Decimal `json:"min_order"`
	IsOpen       bool            `json:"is_open"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	RestaurantID string          `json:"restaurant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category"`
	Image        string          `json:"image"`
	Available    bool            `json:"available"`
}
