package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product"
	"github.com/fekuna/artista-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const productColumns = `id, owner_id, title, description, artist, images, details, price, currency,
	tags, art_type, rating, views, sales, availability, posted_at, updated_at`

// productRow is the products table layout. Artist and details are JSONB.
type productRow struct {
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Artist       []byte         `db:"artist"`
	Images       pq.StringArray `db:"images"`
	Details      []byte         `db:"details"`
	Price        float64        `db:"price"`
	Currency     string         `db:"currency"`
	Tags         pq.StringArray `db:"tags"`
	ArtType      string         `db:"art_type"`
	Rating       float64        `db:"rating"`
	Views        int            `db:"views"`
	Sales        int            `db:"sales"`
	Availability string         `db:"availability"`
	PostedAt     time.Time      `db:"posted_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func toRow(p *model.Product) (*productRow, error) {
	artist, err := json.Marshal(p.Artist)
	if err != nil {
		return nil, err
	}
	details, err := json.Marshal(p.Details)
	if err != nil {
		return nil, err
	}
	return &productRow{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Description:  p.Description,
		Artist:       artist,
		Images:       pq.StringArray(p.Images),
		Details:      details,
		Price:        p.Price,
		Currency:     p.Currency,
		Tags:         pq.StringArray(p.Tags),
		ArtType:      p.ArtType,
		Rating:       p.Rating,
		Views:        p.Views,
		Sales:        p.Sales,
		Availability: string(p.Availability),
		PostedAt:     p.PostedAt,
		UpdatedAt:    p.UpdatedAt,
	}, nil
}

func (r *productRow) toModel() (model.Product, error) {
	p := model.Product{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Description:  r.Description,
		Images:       []string(r.Images),
		Price:        r.Price,
		Currency:     r.Currency,
		Tags:         []string(r.Tags),
		ArtType:      r.ArtType,
		Rating:       r.Rating,
		Views:        r.Views,
		Sales:        r.Sales,
		Availability: model.Availability(r.Availability),
		PostedAt:     r.PostedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if err := json.Unmarshal(r.Artist, &p.Artist); err != nil {
		return model.Product{}, fmt.Errorf("decode artist of %s: %w", r.ID, err)
	}
	if len(r.Details) > 0 {
		if err := json.Unmarshal(r.Details, &p.Details); err != nil {
			return model.Product{}, fmt.Errorf("decode details of %s: %w", r.ID, err)
		}
	}
	return p, nil
}

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	row, err := toRow(p)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO products (
            id, owner_id, title, description, artist, images, details, price, currency,
            tags, art_type, rating, views, sales, availability, posted_at, updated_at
        )
        VALUES (
            :id, :owner_id, :title, :description, :artist, :images, :details, :price, :currency,
            :tags, :art_type, :rating, :views, :sales, :availability, :posted_at, :updated_at
        )
    `
	_, err = r.DB.NamedExecContext(ctx, query, row)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var row productRow
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// likeEscaper makes user input match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.OwnerID != "" {
		conditions = append(conditions, "owner_id = :owner_id")
		args["owner_id"] = f.OwnerID
	}
	if f.ArtType != "" {
		conditions = append(conditions, "art_type = :art_type")
		args["art_type"] = f.ArtType
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, `(title ILIKE :search ESCAPE '\' OR description ILIKE :search ESCAPE '\'
			OR artist->>'name' ILIKE :search ESCAPE '\' OR array_to_string(tags, ' ') ILIKE :search ESCAPE '\')`)
		args["search"] = "%" + likeEscaper.Replace(f.SearchQuery) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := "SELECT count(*) FROM products" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			rows.Close()
			return nil, 0, err
		}
	}
	rows.Close()

	// List
	orderBy := "posted_at DESC"
	if f.SortBy != "" {
		// Whitelisted to keep ORDER BY out of user control
		switch f.SortBy {
		case "title":
			orderBy = "title"
		case "price":
			orderBy = "price"
		case "rating":
			orderBy = "rating"
		default:
			orderBy = "posted_at"
		}
		if strings.ToLower(f.SortOrder) == "asc" {
			orderBy += " ASC"
		} else {
			orderBy += " DESC"
		}
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s, id", productColumns, whereClause, orderBy)

	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	var list []productRow
	if err := nstmt.SelectContext(ctx, &list, args); err != nil {
		return nil, 0, err
	}

	products := make([]model.Product, 0, len(list))
	for i := range list {
		p, err := list[i].toModel()
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	row, err := toRow(p)
	if err != nil {
		return err
	}
	query := `
        UPDATE products
        SET title = :title,
            description = :description,
            images = :images,
            details = :details,
            price = :price,
            tags = :tags,
            art_type = :art_type,
            availability = :availability,
            updated_at = :updated_at
        WHERE id = :id AND owner_id = :owner_id
    `
	res, err := r.DB.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *PGRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return product.ErrNotFound
	}
	return nil
}
