package models

type User struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string `gorm:"unique;not null"          json:"username"`
	HashedPassword string `gorm:"not null"                 json:"-"`
	IsAdmin        bool   `gorm:"not null;default:false"   json:"is_admin"`
}

type Sweet struct {
	ID       uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"index;not null"           json:"name"`
	Category string  `gorm:"index;not null"           json:"category"`
	Price    float64 `gorm:"not null"                 json:"price"`
	Quantity int     `gorm:"default:0"                json:"quantity"`
}
