package contacts

import "github.com/supplyhub/marketplace-backend/pkg/db/models"

// ContactInput is the payload for creating a contact.
type ContactInput struct {
	Phone    string `json:"phone" validate:"required,max=20"`
	Country  string `json:"country" validate:"omitempty,max=50"`
	City     string `json:"city" validate:"required,max=50"`
	Street   string `json:"street" validate:"required,max=100"`
	Building string `json:"building" validate:"omitempty,max=15"`
}

// ContactPatch updates only the provided fields.
type ContactPatch struct {
	Phone    *string `json:"phone" validate:"omitempty,min=1,max=20"`
	Country  *string `json:"country" validate:"omitempty,max=50"`
	City     *string `json:"city" validate:"omitempty,min=1,max=50"`
	Street   *string `json:"street" validate:"omitempty,min=1,max=100"`
	Building *string `json:"building" validate:"omitempty,max=15"`
}

// ContactDTO is the API shape of a delivery contact.
type ContactDTO struct {
	ID       int64  `json:"id"`
	Phone    string `json:"phone"`
	Country  string `json:"country"`
	City     string `json:"city"`
	Street   string `json:"street"`
	Building string `json:"building"`
}

// FromModel maps a contact row to its DTO.
func FromModel(contact models.Contact) ContactDTO {
	return ContactDTO{
		ID:       contact.ID,
		Phone:    contact.Phone,
		Country:  contact.Country,
		City:     contact.City,
		Street:   contact.Street,
		Building: contact.Building,
	}
}

func (p ContactPatch) updates() map[string]any {
	updates := map[string]any{}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.Country != nil {
		updates["country"] = *p.Country
	}
	if p.City != nil {
		updates["city"] = *p.City
	}
	if p.Street != nil {
		updates["street"] = *p.Street
	}
	if p.Building != nil {
		updates["building"] = *p.Building
	}
	return updates
}
