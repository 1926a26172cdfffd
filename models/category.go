package models

// Category is the fixed classification of a transaction.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryRent          Category = "Rent"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealthcare    Category = "Healthcare"
	CategoryShopping      Category = "Shopping"
	CategoryUtilities     Category = "Utilities"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryRent,
	CategoryEntertainment,
	CategoryHealthcare,
	CategoryShopping,
	CategoryUtilities,
	CategoryEducation,
	CategoryOther,
}

// CategoryInfo is the display metadata served to clients.
type CategoryInfo struct {
	Name  Category `json:"name"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryFood:          {Name: CategoryFood, Icon: "🍔", Color: "#FF6B6B"},
	CategoryTransport:     {Name: CategoryTransport, Icon: "🚗", Color: "#4ECDC4"},
	CategoryRent:          {Name: CategoryRent, Icon: "🏠", Color: "#45B7D1"},
	CategoryEntertainment: {Name: CategoryEntertainment, Icon: "🎬", Color: "#FFA07A"},
	CategoryHealthcare:    {Name: CategoryHealthcare, Icon: "⚕️", Color: "#98D8C8"},
	CategoryShopping:      {Name: CategoryShopping, Icon: "🛍️", Color: "#F7DC6F"},
	CategoryUtilities:     {Name: CategoryUtilities, Icon: "💡", Color: "#BB8FCE"},
	CategoryEducation:     {Name: CategoryEducation, Icon: "📚", Color: "#85C1E2"},
	CategoryOther:         {Name: CategoryOther, Icon: "📦", Color: "#95A5A6"},
}

// ParseCategory matches s exactly against the known categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := categoryInfo[c]
	return c, ok
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryInfo[c]
	return ok
}

// Info returns the display metadata of c.
func (c Category) Info() CategoryInfo {
	return categoryInfo[c]
}

// CategoryCatalogue returns metadata for every category in display order.
func CategoryCatalogue() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, categoryInfo[c])
	}
	return out
}
