package models

// Currency is reference data; accounts and transactions refer to it by id
type Currency struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Category is reference data used to classify transactions
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
