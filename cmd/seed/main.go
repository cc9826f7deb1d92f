package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"linkbio-billing/internal/config"
	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/infra/db/mongodb"
	"linkbio-billing/internal/infra/logging"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "admin account email")
	adminPass := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin account password")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		logging.New(config.LogConfig{}, true).Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := mongodb.Connect(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongo")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("indexes")
	}
	fmt.Println("indexes ensured")

	// ---- Admin ----
	if *adminEmail != "" {
		if err := seedAdmin(ctx, mongodb.NewUserRepo(db), *adminEmail, *adminPass); err != nil {
			logger.Fatal().Err(err).Msg("seed admin")
		}
	} else {
		fmt.Println("no -admin-email given; skipping admin account")
	}

	// ---- Coupons ----
	coupons := mongodb.NewCouponRepo(db)
	now := time.Now().UTC()
	launchEnd := now.AddDate(0, 3, 0)
	hundred := 100
	seed := []model.Coupon{
		{Code: "WELCOME10", Description: "10% off your first month", DiscountType: model.DiscountPercent, DiscountValue: 10, IsPublic: true},
		{Code: "LAUNCH50", Description: "Launch offer: 50% off", DiscountType: model.DiscountPercent, DiscountValue: 50, MaxUses: &hundred, ExpiresAt: &launchEnd, IsPublic: true},
		{Code: "FLAT20", Description: "INR 20 off", DiscountType: model.DiscountFixed, DiscountValue: 2000},
	}
	for _, c := range seed {
		if _, err := coupons.FindByCode(ctx, c.Code); err == nil {
			fmt.Printf("coupon %s already present\n", c.Code)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			logger.Fatal().Err(err).Str("code", c.Code).Msg("lookup coupon")
		}
		c.ID = uuid.NewString()
		c.IsActive = true
		c.CreatedAt, c.UpdatedAt = now, now
		if err := c.CheckDiscount(now); err != nil {
			logger.Fatal().Err(err).Str("code", c.Code).Msg("invalid seed coupon")
		}
		if err := coupons.Create(ctx, &c); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			logger.Fatal().Err(err).Str("code", c.Code).Msg("create coupon")
		}
		fmt.Printf("seeded coupon %s (%s %.0f)\n", c.Code, c.DiscountType, c.DiscountValue)
	}

	fmt.Println("Seeding complete.")
}

type userStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

func seedAdmin(ctx context.Context, users userStore, email, password string) error {
	if existing, err := users.FindByEmail(ctx, model.NormalizeEmail(email)); err == nil {
		fmt.Printf("admin %s already present (role=%s)\n", existing.Email, existing.Role)
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if len(password) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := model.NewUser(email, "admin", string(hash))
	if err != nil {
		return err
	}
	u.Role = model.RoleAdmin
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	fmt.Printf("seeded admin %s (id=%s)\n", u.Email, u.ID)
	return nil
}
