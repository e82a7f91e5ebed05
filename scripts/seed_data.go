//go:build ignore

package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/aditya/rideshare/internal/cache"
	"github.com/aditya/rideshare/internal/config"
	"github.com/aditya/rideshare/internal/database"
	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
)

// Kathmandu coordinates
const (
	baseLat = 27.7172
	baseLng = 85.3240
)

var (
	firstNames = []string{"Aarav", "Sita", "Bikash", "Anjali", "Suman", "Pooja", "Ramesh", "Nisha", "Prakash", "Kabita",
		"Sagar", "Srijana", "Rohan", "Manisha", "Dipesh", "Sabina", "Nabin", "Asmita", "Kiran", "Rekha"}
	lastNames    = []string{"Shrestha", "Gurung", "Thapa", "Rai", "Tamang", "Maharjan", "Adhikari", "Karki", "Magar", "Joshi"}
	vehicleTypes = []string{models.RideTypeStandard, models.RideTypePremium, models.RideTypeLuxury, models.RideTypeShared}
)

func randomName() string {
	return fmt.Sprintf("%s %s", firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))])
}

func main() {
	log := logger.New(logger.Config{Level: "info"})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to PostgreSQL")
	}
	defer db.Close()

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redis.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to apply schema")
	}

	userRepo := repository.NewUserRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	driverCache := cache.NewDriverLocationCache(redis.Client)
	auth := middleware.NewAuthenticator(cfg.JWTSecret)

	log.Info("creating 50 riders")
	riderIDs := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		user := &models.User{
			Phone:    fmt.Sprintf("98%08d", rand.Intn(100000000)),
			Name:     randomName(),
			UserType: models.RoleRider,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.WithError(err).Warn("failed to create rider")
			continue
		}
		riderIDs = append(riderIDs, user.ID)
	}

	log.Info("creating 100 drivers")
	driverIDs := make([]string, 0, 100)
	online := 0
	for i := 0; i < 100; i++ {
		user := &models.User{
			Phone:    fmt.Sprintf("97%08d", rand.Intn(100000000)),
			Name:     randomName(),
			UserType: models.RoleDriver,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.WithError(err).Warn("failed to create driver account")
			continue
		}

		driver := &models.Driver{
			ID:            user.ID,
			LicenseNumber: fmt.Sprintf("BA%07d", rand.Intn(10000000)),
			VehicleType:   vehicleTypes[rand.Intn(len(vehicleTypes))],
			VehicleMake:   "Suzuki",
			VehicleModel:  "Alto",
			VehicleNumber: fmt.Sprintf("BA %d PA %04d", rand.Intn(99), rand.Intn(10000)),
		}
		if err := driverRepo.Create(ctx, driver); err != nil {
			log.WithError(err).Warn("failed to create driver profile")
			continue
		}
		driverIDs = append(driverIDs, driver.ID)

		// Half the fleet starts online somewhere within ~5km of the centre
		if rand.Float64() > 0.5 {
			lat := baseLat + (rand.Float64()-0.5)*0.1
			lng := baseLng + (rand.Float64()-0.5)*0.1
			now := time.Now()

			driverRepo.SetAvailability(ctx, driver.ID, true)
			driverRepo.UpdateLocation(ctx, driver.ID, lat, lng, now)
			driverCache.UpdateLocation(ctx, driver.ID, lat, lng, nil, now)
			online++
		}
	}

	if len(riderIDs) == 0 || len(driverIDs) == 0 {
		log.Fatal("nothing was seeded")
	}

	riderToken, _ := auth.IssueToken(riderIDs[0], models.RoleRider, 24*time.Hour)
	driverToken, _ := auth.IssueToken(driverIDs[0], models.RoleDriver, 24*time.Hour)

	log.WithFields(map[string]interface{}{
		"riders":         len(riderIDs),
		"drivers":        len(driverIDs),
		"drivers_online": online,
	}).Info("seed complete")

	fmt.Println("\nSample rider:", riderIDs[0])
	fmt.Println("  token:", riderToken)
	fmt.Println("Sample driver:", driverIDs[0])
	fmt.Println("  token:", driverToken)
}
