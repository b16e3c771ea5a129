package products

import (
	"github.com/shopspring/decimal"

	"quicksale/backend/internal/domain"
)

// DemoCatalog is loaded when storage holds no catalog yet and seeding is on.
func DemoCatalog() []domain.Product {
	p := func(id int, name, sku string, price int64, stock int) domain.Product {
		return domain.Product{ID: id, Name: name, SKU: sku, Price: decimal.NewFromInt(price), Stock: stock}
	}
	return []domain.Product{
		p(1, "Sardinas", "sar", 700, 10),
		p(2, "Arina trigo", "atri", 650, 15),
		p(3, "Pasta tomate", "patt", 440, 30),
		p(4, "aderezo", "adzo", 1400, 25),
		p(5, "mayoneza m", "maym", 900, 8),
		p(6, "mayoneza g", "mayg", 2100, 12),
		p(7, "mayoneza p", "mayp", 650, 20),
		p(8, "mayoneza ch", "maych", 2000, 18),
		p(9, "latas de carne", "lcar", 630, 18),
	}
}
