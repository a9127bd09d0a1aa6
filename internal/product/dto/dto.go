package dto

type ProductFilters struct {
	OwnerID     string `json:"owner_id,omitempty"`
	ArtType     string `json:"art_type,omitempty"`
	SearchQuery string `json:"search_query,omitempty"` // title, description, artist name, tags
	SortBy      string `json:"sort_by,omitempty"`      // title, price, rating, posted_at
	SortOrder   string `json:"sort_order,omitempty"`   // asc, desc
	Page        int    `json:"page,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}
