package enums

// ProductStatus gates whether a listing can be sold.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusSoldOut  ProductStatus = "sold_out"
)

func (s ProductStatus) String() string {
	return string(s)
}
