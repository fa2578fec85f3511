// Package domain contains core domain types for the tienda application.
package domain

// Category is a catalog category. JSON tags keep the original Firestore
// document vocabulary so the existing SPA keeps working unchanged.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
}

// Product is a catalog product. Price is stored in córdobas; Image is a
// data-URL as produced by the SPA's file reader.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
	Category string  `json:"categoria"`
	Image    string  `json:"imagen"`
}
