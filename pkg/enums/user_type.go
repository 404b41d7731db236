package enums

import (
	"slices"
	"strings"
)

// UserType separates buyers from supplier accounts that manage shops.
type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeShop     UserType = "shop"
)

var userTypes = []UserType{UserTypeCustomer, UserTypeShop}

func (u UserType) String() string {
	return string(u)
}

func (u UserType) IsValid() bool {
	return slices.Contains(userTypes, u)
}

// ParseUserType is case-insensitive and defaults empty input to customer.
func ParseUserType(value string) (UserType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return UserTypeCustomer, nil
	}
	return parse("user type", userTypes, normalized)
}
