// Command seed loads demo sellers, buyers and listings through the regular
// services so that every record passes the same validation as API traffic.
// Re-running it skips accounts that already exist.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
	"github.com/ocandle/marketplace/internal/core/service"
	"github.com/ocandle/marketplace/internal/infrastructure/auth"
	"github.com/ocandle/marketplace/internal/infrastructure/config"
	"github.com/ocandle/marketplace/internal/infrastructure/db/mongo"
	"github.com/ocandle/marketplace/internal/infrastructure/media"
	"github.com/ocandle/marketplace/pkg/logger"
)

const (
	serviceName  = "ocandle-seed"
	demoPassword = "Password123!"
)

type sellerSeed struct {
	first, last, email, phone string
	business                  string
	description               string
	address                   domain.Address
	listings                  []listingSeed
}

type listingSeed struct {
	name, description string
	category          domain.Category
	price             float64
	stock             int
	tint              color.RGBA
}

var sellers = []sellerSeed{
	{
		first: "Marco", last: "Rossi", email: "marco@pizzaroma.com", phone: "15550101",
		business: "Pizza Roma", description: "Authentic Italian cuisine with traditional recipes",
		address: domain.Address{Street: "123 Little Italy St", City: "New York", State: "NY", ZipCode: "10013"},
		listings: []listingSeed{
			{"Margherita Pizza", "Classic Italian pizza with fresh mozzarella, tomato sauce, and basil", domain.CategoryBakery, 18.99, 50, color.RGBA{200, 40, 40, 255}},
			{"Pepperoni Pizza", "Traditional pepperoni pizza with mozzarella cheese and spicy pepperoni", domain.CategoryBakery, 21.99, 45, color.RGBA{180, 60, 20, 255}},
		},
	},
	{
		first: "Sakura", last: "Tanaka", email: "sakura@sushizen.com", phone: "15550102",
		business: "Sushi Zen", description: "Fresh sushi and Japanese cuisine",
		address: domain.Address{Street: "456 Tokyo Ave", City: "San Francisco", State: "CA", ZipCode: "94115"},
		listings: []listingSeed{
			{"Salmon Sashimi", "Fresh Atlantic salmon sliced sashimi style", domain.CategorySeafood, 16.99, 25, color.RGBA{250, 128, 114, 255}},
			{"California Roll", "Crab, avocado and cucumber rolled in seasoned rice", domain.CategorySeafood, 12.99, 40, color.RGBA{240, 240, 220, 255}},
		},
	},
	{
		first: "Ahmed", last: "Hassan", email: "ahmed@spicebazaar.com", phone: "15550103",
		business: "Spice Bazaar", description: "Authentic Middle Eastern flavors",
		address: domain.Address{Street: "789 Desert Rd", City: "Phoenix", State: "AZ", ZipCode: "85001"},
		listings: []listingSeed{
			{"Chicken Shawarma", "Marinated chicken wrapped with garlic sauce and pickles", domain.CategoryMeat, 14.99, 30, color.RGBA{210, 160, 90, 255}},
			{"Falafel Bowl", "Crispy falafel over greens with tahini dressing", domain.CategoryVegetables, 13.99, 35, color.RGBA{120, 150, 60, 255}},
		},
	},
	{
		first: "Maria", last: "Garcia", email: "maria@tacosfiesta.com", phone: "15550104",
		business: "Tacos Fiesta", description: "Traditional Mexican street food",
		address: domain.Address{Street: "321 Cinco de Mayo Blvd", City: "Los Angeles", State: "CA", ZipCode: "90028"},
		listings: []listingSeed{
			{"Carnitas Tacos", "Slow-cooked pork tacos with onion and cilantro", domain.CategoryMeat, 11.99, 60, color.RGBA{190, 120, 60, 255}},
			{"Burrito Bowl", "Rice, beans, grilled chicken and fresh salsa", domain.CategoryGrains, 15.99, 40, color.RGBA{230, 190, 80, 255}},
		},
	},
	{
		first: "Emma", last: "Thompson", email: "emma@greenbowl.com", phone: "15550107",
		business: "Green Bowl", description: "Healthy organic meals and smoothies",
		address: domain.Address{Street: "147 Organic St", City: "Portland", State: "OR", ZipCode: "97201"},
		listings: []listingSeed{
			{"Quinoa Power Bowl", "Quinoa with roasted vegetables and lemon dressing", domain.CategoryGrains, 14.99, 25, color.RGBA{160, 190, 90, 255}},
			{"Green Smoothie", "Spinach, banana and apple blended fresh", domain.CategoryBeverages, 8.99, 50, color.RGBA{90, 200, 90, 255}},
		},
	},
}

var buyers = []ports.RegisterInput{
	{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Password: demoPassword, Role: domain.RoleBuyer},
	{FirstName: "John", LastName: "Smith", Email: "john@example.com", Password: demoPassword, Role: domain.RoleBuyer},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("seeding failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{Service: serviceName})
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: serviceName})

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := mongo.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	store, err := media.Open(ctx, cfg.Media.BucketURL, cfg.Media.PublicBaseURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	users := mongo.NewUserRepository(db)
	authService := service.NewAuthService(users, auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpire), store, log)
	catalogService := service.NewCatalogService(mongo.NewProductRepository(db), users, store, log)

	var createdSellers, createdListings int
	for _, s := range sellers {
		seller, created, err := ensureAccount(ctx, authService, ports.RegisterInput{
			FirstName: s.first,
			LastName:  s.last,
			Email:     s.email,
			Password:  demoPassword,
			Role:      domain.RoleSeller,
			Phone:     s.phone,
			Address:   s.address,
			BusinessInfo: &domain.BusinessInfo{
				BusinessName:        s.business,
				BusinessDescription: s.description,
				BusinessType:        domain.BusinessRestaurant,
			},
		})
		if err != nil {
			return fmt.Errorf("seller %s: %w", s.email, err)
		}
		if !created {
			log.Info().Str("business", s.business).Msg("seller exists, skipping listings")
			continue
		}
		createdSellers++

		for _, l := range s.listings {
			n, err := createListing(ctx, catalogService, seller, l, log)
			if err != nil {
				return fmt.Errorf("listing %q: %w", l.name, err)
			}
			createdListings += n
		}
	}

	for _, b := range buyers {
		if _, _, err := ensureAccount(ctx, authService, b); err != nil {
			return fmt.Errorf("buyer %s: %w", b.Email, err)
		}
	}

	log.Info().
		Int("sellers", createdSellers).
		Int("listings", createdListings).
		Int("buyers", len(buyers)).
		Msg("seeding completed")
	return nil
}

// ensureAccount registers the account, or logs into it when the email is taken.
func ensureAccount(ctx context.Context, svc ports.AuthService, in ports.RegisterInput) (*domain.User, bool, error) {
	res, err := svc.Register(ctx, in)
	if err == nil {
		return res.User, true, nil
	}
	if !errors.Is(err, domain.ErrUserExists) {
		return nil, false, err
	}
	res, err = svc.Login(ctx, in.Email, in.Password)
	if err != nil {
		return nil, false, err
	}
	return res.User, false, nil
}

func createListing(ctx context.Context, svc ports.CatalogService, seller *domain.User, l listingSeed, log zerolog.Logger) (int, error) {
	img, err := placeholder(l.tint)
	if err != nil {
		return 0, err
	}
	view, err := svc.CreateListing(ctx, seller, ports.ListingInput{
		Name:        l.name,
		Description: l.description,
		Category:    l.category,
		Price:       l.price,
		Unit:        domain.UnitPerPiece,
		Stock:       domain.Stock{Quantity: l.stock, Unit: domain.StockPieces},
	}, []ports.ImageUpload{{Filename: "cover.png", ContentType: "image/png", Data: img}})
	if err != nil {
		return 0, err
	}
	log.Info().Str("product_id", view.Product.ID).Str("name", l.name).Msg("listing created")
	return 1, nil
}

// placeholder renders a flat-colored PNG used as the listing cover.
func placeholder(tint color.RGBA) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			canvas.SetRGBA(x, y, tint)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
