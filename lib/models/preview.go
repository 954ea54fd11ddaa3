package models

type ProductPreview struct {
	URL         string `json:"url"`
	ProductName string `json:"productName"`
	ImageURL    string `json:"imageUrl"`
}
