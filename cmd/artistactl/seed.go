package main

import (
	"fmt"
	"os"

	"github.com/fekuna/artista-service/internal/model"
	"github.com/fekuna/artista-service/internal/product/dto"
	prodRepoPkg "github.com/fekuna/artista-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/artista-service/internal/product/usecase"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by seed.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	OwnerID      string   `yaml:"ownerId"`
	Artist       seedArt  `yaml:"artist"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Images       []string `yaml:"images"`
	Dimensions   string   `yaml:"dimensions"`
	Materials    string   `yaml:"materials"`
	CreationDate string   `yaml:"creationDate"`
	Price        float64  `yaml:"price"`
	Tags         []string `yaml:"tags"`
	ArtType      string   `yaml:"artType"`
	Availability string   `yaml:"availability"`
}

type seedArt struct {
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatarUrl"`
	Location  string `yaml:"location"`
	Bio       string `yaml:"bio"`
}

func parseSeed(data []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, p := range f.Products {
		if p.OwnerID == "" {
			return nil, fmt.Errorf("product %d (%q): ownerId is required", i, p.Title)
		}
	}
	return &f, nil
}

func (p seedProduct) input() *dto.CreateProductInput {
	avail := model.Availability(p.Availability)
	if avail == "" {
		avail = model.InStock
	}
	return &dto.CreateProductInput{
		OwnerID: p.OwnerID,
		Artist: model.Artist{
			ID:        p.OwnerID,
			Name:      p.Artist.Name,
			AvatarURL: p.Artist.AvatarURL,
			Location:  p.Artist.Location,
			Bio:       p.Artist.Bio,
		},
		Data: model.NewProduct{
			Title:       p.Title,
			Description: p.Description,
			Details: model.ProductDetails{
				Dimensions:   p.Dimensions,
				Materials:    p.Materials,
				CreationDate: p.CreationDate,
			},
			Price:        p.Price,
			Tags:         p.Tags,
			ArtType:      p.ArtType,
			Images:       p.Images,
			Availability: avail,
		},
	}
}

var seedPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog products from a YAML file",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedPath, "file", "f", "", "YAML seed file (required)")
	_ = seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return err
	}
	f, err := parseSeed(data)
	if err != nil {
		return err
	}

	d, err := connect(true)
	if err != nil {
		return err
	}
	defer d.Close()

	// nil index and publisher: seeding only writes Postgres and clears the list cache.
	uc := prodUCPkg.NewProductUseCase(prodRepoPkg.NewPGRepository(d.db), d.redis, nil, nil, "artistactl", d.logger)
	for _, p := range f.Products {
		created, err := uc.CreateProduct(cmd.Context(), p.input())
		if err != nil {
			return fmt.Errorf("seed %q: %w", p.Title, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.Title)
	}
	return nil
}
