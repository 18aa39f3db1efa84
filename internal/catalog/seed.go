package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/chopflow/internal/domain"
)

type seedDish struct {
	name        string
	description string
	price       int64
	category    string
	image       string
}

var seedRestaurants = []domain.Restaurant{
	{
		Name:         "Mama's Kitchen",
		Description:  "Authentic Nigerian home-style cooking",
		CuisineType:  "Nigerian",
		Rating:       4.8,
		Image:        "https://images.unsplash.com/photo-1720799359126-2cda1a741c52",
		DeliveryTime: "30-45 mins",
		MinOrder:     decimal.NewFromInt(2000),
		IsOpen:       true,
	},
	{
		Name:         "Calabar Pot",
		Description:  "Spicy delights from the South",
		CuisineType:  "Nigerian",
		Rating:       4.6,
		Image:        "https://images.pexels.com/photos/28673617/pexels-photo-28673617.jpeg",
		DeliveryTime: "25-40 mins",
		MinOrder:     decimal.NewFromInt(1500),
		IsOpen:       true,
	},
	{
		Name:         "Lagos Grill",
		Description:  "Grilled perfection with a Nigerian twist",
		CuisineType:  "Nigerian",
		Rating:       4.7,
		Image:        "https://images.unsplash.com/photo-1687717324494-6476dd0d9dec",
		DeliveryTime: "35-50 mins",
		MinOrder:     decimal.NewFromInt(2500),
		IsOpen:       true,
	},
	{
		Name:         "Abuja Spice",
		Description:  "Contemporary Nigerian cuisine",
		CuisineType:  "Nigerian",
		Rating:       4.9,
		Image:        "https://images.pexels.com/photos/17952746/pexels-photo-17952746.jpeg",
		DeliveryTime: "20-35 mins",
		MinOrder:     decimal.NewFromInt(3000),
		IsOpen:       true,
	},
}

var seedMenu = []seedDish{
	{"Jollof Rice with Chicken", "Signature Nigerian jollof rice with grilled chicken", 3500, "Main Course", "https://images.pexels.com/photos/17952748/pexels-photo-17952748.jpeg"},
	{"Egusi Soup with Pounded Yam", "Rich melon seed soup with smooth pounded yam", 4000, "Main Course", "https://images.unsplash.com/photo-1741026079032-7cb660e44bad"},
	{"Suya Platter", "Spicy grilled beef skewers with yaji spice", 2500, "Appetizer", "https://images.pexels.com/photos/31029949/pexels-photo-31029949.jpeg"},
	{"Pepper Soup", "Spicy fish pepper soup", 2000, "Soup", "https://images.pexels.com/photos/35490114/pexels-photo-35490114.jpeg"},
	{"Fried Rice with Plantain", "Nigerian-style fried rice with sweet fried plantain", 3000, "Main Course", "https://images.pexels.com/photos/2271107/pexels-photo-2271107.jpeg"},
	{"Chapman", "Refreshing Nigerian cocktail", 1500, "Drinks", "https://images.pexels.com/photos/16238131/pexels-photo-16238131.jpeg"},
}

// SeedData builds fresh ids for the demo catalog: every restaurant gets the
// full dish list.
func SeedData() ([]domain.Restaurant, []domain.MenuItem) {
	restaurants := make([]domain.Restaurant, 0, len(seedRestaurants))
	items := make([]domain.MenuItem, 0, len(seedRestaurants)*len(seedMenu))

	for _, tmpl := range seedRestaurants {
		rest := tmpl
		rest.ID = uuid.New().String()
		restaurants = append(restaurants, rest)

		for _, dish := range seedMenu {
			items = append(items, domain.MenuItem{
				ID:           uuid.New().String(),
				RestaurantID: rest.ID,
				Name:         dish.name,
				Description:  dish.description,
				Price:        decimal.NewFromInt(dish.price),
				Category:     dish.category,
				Image:        dish.image,
				Available:    true,
			})
		}
	}

	return restaurants, items
}
