package domain

type AddressType string

const (
	AddressTypeHome  AddressType = "home"
	AddressTypeWork  AddressType = "work"
	AddressTypeOther AddressType = "other"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Address struct {
	ID           string       `json:"id"`
	Type         AddressType  `json:"type"`
	AddressLine1 string       `json:"addressLine1"`
	AddressLine2 string       `json:"addressLine2,omitempty"`
	Landmark     string       `json:"landmark,omitempty"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Pincode      string       `json:"pincode"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	IsDefault    bool         `json:"isDefault"`
}

// AddressInput is an address before the backend has assigned it an id.
type AddressInput struct {
	Type         AddressType  `json:"type" validate:"omitempty,oneof=home work other"`
	AddressLine1 string       `json:"addressLine1" validate:"required"`
	AddressLine2 string       `json:"addressLine2,omitempty"`
	Landmark     string       `json:"landmark,omitempty"`
	City         string       `json:"city" validate:"required"`
	State        string       `json:"state"`
	Pincode      string       `json:"pincode" validate:"required,len=6,numeric"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	IsDefault    bool         `json:"isDefault"`
}

func (in AddressInput) WithID(id string) Address {
	return Address{
		ID:           id,
		Type:         in.Type,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		Landmark:     in.Landmark,
		City:         in.City,
		State:        in.State,
		Pincode:      in.Pincode,
		Coordinates:  in.Coordinates,
		IsDefault:    in.IsDefault,
	}
}
