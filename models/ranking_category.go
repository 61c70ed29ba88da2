package models

// RankingCategory — упорядоченный дивизион внутри области рейтинга.
// Order образует плотную последовательность от 0 (высший дивизион).
type RankingCategory struct {
	ID       int          `json:"id" db:"id"`
	Scope    RankingScope `json:"scope"`
	Name     string       `json:"name" db:"name"`
	Capacity int          `json:"capacity" db:"capacity"`
	Order    int          `json:"order" db:"ord"`
}

// validCategoryCapacities — допустимые вместимости дивизионов.
var validCategoryCapacities = map[int]bool{
	4: true, 8: true, 16: true, 32: true, 64: true, 128: true, 256: true,
}

func ValidCategoryCapacity(capacity int) bool {
	return validCategoryCapacities[capacity]
}
