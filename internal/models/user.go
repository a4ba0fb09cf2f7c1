package models

// User is a credential record in the auth store. The hash is never the
// plaintext password.
type User struct {
	ID           uint64 `gorm:"column:id;primaryKey"`
	Username     string `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Salt         string `gorm:"column:salt;not null"`
}

func (User) TableName() string {
	return "users"
}
