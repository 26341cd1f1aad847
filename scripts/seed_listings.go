package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"servicehub/internal/database"
	"servicehub/internal/models"
	"servicehub/internal/service"
	"servicehub/internal/session"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type SeedFile struct {
	Providers []SeedProvider `yaml:"providers"`
}

type SeedProvider struct {
	ID           string        `yaml:"id"`
	Email        string        `yaml:"email"`
	FullName     string        `yaml:"full_name"`
	Phone        string        `yaml:"phone"`
	City         string        `yaml:"city"`
	Bio          string        `yaml:"bio"`
	Availability []SeedWindow  `yaml:"availability"`
	Listings     []SeedListing `yaml:"listings"`
}

type SeedWindow struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type SeedListing struct {
	Title       string   `yaml:"title"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Price       float64  `yaml:"price"`
	PriceType   string   `yaml:"price_type"`
	ImageURL    string   `yaml:"image_url"`
	Latitude    *float64 `yaml:"latitude"`
	Longitude   *float64 `yaml:"longitude"`
}

type seedResult struct {
	providers int
	created   int
	updated   int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "configs/seed.yaml", "path to seed.yaml")
		dbPath   = flag.String("db", "./data/servicehub.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var file SeedFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if len(file.Providers) == 0 {
		return fmt.Errorf("no providers in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := seed(ctx, service.NewAccountService(db, &logger), service.NewListingService(db, &logger), &file)
	if err != nil {
		return err
	}

	fmt.Printf("done: providers=%d created=%d updated=%d\n", res.providers, res.created, res.updated)
	return nil
}

// seed upserts every provider profile and schedule. Listings are matched by title.
func seed(ctx context.Context, accounts *service.AccountService, listings *service.ListingService, file *SeedFile) (seedResult, error) {
	var res seedResult
	for i := range file.Providers {
		p := &file.Providers[i]
		if p.ID == "" {
			continue
		}
		sess, err := session.New(p.ID, models.RoleProvider)
		if err != nil {
			return res, err
		}
		sess.Email = p.Email

		if _, err := accounts.EnsureAccount(ctx, sess); err != nil {
			return res, fmt.Errorf("account %s: %w", p.ID, err)
		}
		if _, err := accounts.UpdateProfile(ctx, sess, profileOf(p)); err != nil {
			return res, fmt.Errorf("profile %s: %w", p.ID, err)
		}

		windows, err := windowsOf(p.Availability)
		if err != nil {
			return res, fmt.Errorf("availability %s: %w", p.ID, err)
		}
		if _, err := listings.SetAvailability(ctx, sess, windows); err != nil {
			return res, fmt.Errorf("availability %s: %w", p.ID, err)
		}

		existing, err := listings.ByProvider(ctx, sess, p.ID)
		if err != nil {
			return res, fmt.Errorf("list %s: %w", p.ID, err)
		}
		byTitle := make(map[string]string, len(existing))
		for _, l := range existing {
			byTitle[l.Title] = l.ID
		}

		for _, sl := range p.Listings {
			in := inputOf(sl)
			if id, ok := byTitle[sl.Title]; ok {
				if _, err := listings.Update(ctx, sess, id, in); err != nil {
					return res, fmt.Errorf("update %s: %w", sl.Title, err)
				}
				res.updated++
				continue
			}
			if _, err := listings.Create(ctx, sess, in); err != nil {
				return res, fmt.Errorf("create %s: %w", sl.Title, err)
			}
			res.created++
		}
		res.providers++
	}
	return res, nil
}

func profileOf(p *SeedProvider) service.ProfileUpdate {
	var upd service.ProfileUpdate
	if p.FullName != "" {
		upd.FullName = &p.FullName
	}
	if p.Phone != "" {
		upd.Phone = &p.Phone
	}
	if p.City != "" {
		upd.City = &p.City
	}
	if p.Bio != "" {
		upd.Bio = &p.Bio
	}
	return upd
}

func inputOf(sl SeedListing) service.ListingInput {
	in := service.ListingInput{
		Title:       sl.Title,
		Category:    sl.Category,
		Description: sl.Description,
		Price:       sl.Price,
		PriceType:   models.PriceType(sl.PriceType),
		ImageURL:    sl.ImageURL,
	}
	if in.PriceType == "" {
		in.PriceType = models.PriceFixed
	}
	if sl.Latitude != nil && sl.Longitude != nil {
		in.Location = &models.Location{Latitude: *sl.Latitude, Longitude: *sl.Longitude}
	}
	return in
}

func windowsOf(in []SeedWindow) ([]models.AvailabilityWindow, error) {
	out := make([]models.AvailabilityWindow, 0, len(in))
	for _, w := range in {
		day, err := parseWeekday(w.Day)
		if err != nil {
			return nil, err
		}
		out = append(out, models.AvailabilityWindow{DayOfWeek: day, Start: w.Start, End: w.End})
	}
	return out, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
