package models

// Schedule is a named weekly power schedule. Matrix holds the serialized
// 7x48 boolean grid exactly as it travels over the REST API.
type Schedule struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	TimeZone  int    `json:"timezone"`
	Matrix    string `json:"matrix"`
	IsSpecial bool   `json:"is_special"` // hidden from normal listings, needs extra permission
}

type TimeZone struct {
	ID   int    `json:"id"`
	Name string `json:"name"` // IANA name, e.g. "Europe/Helsinki"
}
