package domain

// Snapshot is the persisted form of one visitor's cart and shipping
// selection. Wire shape:
//
//	{ "cart": { "<product-id>": <qty> }, "shipping": <fee>|null, "savedAt": <epoch-millis> }
//
// The schema is forward-tolerant: unknown fields are ignored on load and
// missing fields fall back to defaults.
type Snapshot struct {
	Cart     map[string]int `json:"cart"`
	Shipping *float64       `json:"shipping"`
	SavedAt  int64          `json:"savedAt"`
}
