package models

import "time"

// PlayerRole соответствует ENUM в БД.
type PlayerRole string

const (
	RolePlayer PlayerRole = "player"
	RoleAdmin  PlayerRole = "admin"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Player — федерированный игрок клуба.
type Player struct {
	ID            int        `json:"id" db:"id"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Email         string     `json:"email" db:"email"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Role          PlayerRole `json:"role" db:"role"`
	Gender        Gender     `json:"gender" db:"gender"`
	BirthDate     time.Time  `json:"birth_date" db:"birth_date"`
	LicenseExpiry *time.Time `json:"license_expiry,omitempty" db:"license_expiry"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// AgeAt возвращает полный возраст игрока на указанную дату.
func (p *Player) AgeAt(at time.Time) int {
	age := at.Year() - p.BirthDate.Year()
	anniversary := p.BirthDate.AddDate(age, 0, 0)
	if anniversary.After(at) {
		age--
	}
	return age
}

// LicenseCovers reports whether the player's competition license is valid
// on the given date. A missing expiry means no license at all.
func (p *Player) LicenseCovers(date time.Time) bool {
	return p.LicenseExpiry != nil && !p.LicenseExpiry.Before(date)
}
