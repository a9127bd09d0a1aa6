package model

import "time"

const (
	DefaultCurrency  = "₹"
	DefaultAvatarURL = "https://picsum.photos/seed/user/200/200"
	DefaultLocation  = "Online"
	UnknownArtist    = "Unknown Artist"
)

// ArtTypes is the fixed set of craft categories a product can belong to.
var ArtTypes = []string{
	"Paintings",
	"Digital Art",
	"Sculptures",
	"Photography",
	"Handicrafts",
	"Jewelry",
	"Textiles",
	"Pottery",
}

func IsArtType(s string) bool {
	for _, t := range ArtTypes {
		if t == s {
			return true
		}
	}
	return false
}

type Availability string

const (
	InStock  Availability = "In Stock"
	PreOrder Availability = "Pre-order"
)

func (a Availability) Valid() bool {
	return a == InStock || a == PreOrder
}

// Artist is the seller snapshot embedded in a product at write time.
type Artist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Location  string `json:"location"`
	Bio       string `json:"bio,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// ArtistFromProfile denormalises a seller profile into a product snapshot.
func ArtistFromProfile(userID string, p UserProfile) Artist {
	a := Artist{
		ID:        userID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Location:  DefaultLocation,
		Bio:       p.Bio,
		Phone:     p.Phone,
	}
	if a.Name == "" {
		a.Name = UnknownArtist
	}
	if a.AvatarURL == "" {
		a.AvatarURL = DefaultAvatarURL
	}
	return a
}

type ProductDetails struct {
	Dimensions   string `json:"dimensions"`
	Materials    string `json:"materials"`
	CreationDate string `json:"creationDate"`
}

type Product struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Artist       Artist         `json:"artist"`
	Images       []string       `json:"images"`
	Details      ProductDetails `json:"details"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency"`
	Tags         []string       `json:"tags"`
	ArtType      string         `json:"artType"`
	Rating       float64        `json:"rating"`
	Views        int            `json:"views"`
	Sales        int            `json:"sales"`
	Availability Availability   `json:"availability"`
	PostedAt     time.Time      `json:"postedAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	OwnerID      string         `json:"ownerId"`
}

// NewProduct is a seller submission.
type NewProduct struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Details      ProductDetails `json:"details"`
	Price        float64        `json:"price"`
	Tags         []string       `json:"tags"`
	ArtType      string         `json:"artType"`
	Images       []string       `json:"images"`
	Availability Availability   `json:"availability"`
}

// ProductPatch holds the mutable product fields. Nil means unchanged.
// Artist, owner and posting time are not patchable.
type ProductPatch struct {
	Title        *string         `json:"title,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Details      *ProductDetails `json:"details,omitempty"`
	Price        *float64        `json:"price,omitempty"`
	Tags         *[]string       `json:"tags,omitempty"`
	ArtType      *string         `json:"artType,omitempty"`
	Images       *[]string       `json:"images,omitempty"`
	Availability *Availability   `json:"availability,omitempty"`
}

// Apply returns a copy of p with the patch applied.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Details != nil {
		p.Details = *patch.Details
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Tags != nil {
		p.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.ArtType != nil {
		p.ArtType = *patch.ArtType
	}
	if patch.Images != nil {
		p.Images = append([]string(nil), (*patch.Images)...)
	}
	if patch.Availability != nil {
		p.Availability = *patch.Availability
	}
	return p
}
