package models

const (
	TableTypeRegular  = "regular"
	TableTypeGuest    = "guest"
	TableTypeDelivery = "delivery"

	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

// Table is a row from GET /tables/. Tables are created and removed on the server only.
type Table struct {
	ID     int64  `json:"id"`
	Number int    `json:"table_number"`
	Type   string `json:"table_type"`
	Status string `json:"status"`
}
