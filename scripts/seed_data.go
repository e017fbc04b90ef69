//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/aditya/ridequote/internal/cache"
	"github.com/aditya/ridequote/internal/config"
	"github.com/aditya/ridequote/internal/database"
	"github.com/aditya/ridequote/internal/logging"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/repository"
	"github.com/aditya/ridequote/internal/service"
	"github.com/lib/pq"
)

// Central London
const (
	baseLat = 51.5074
	baseLng = -0.1278
)

type partnerSeed struct {
	company      string
	areas        []string
	types        []string
	baseRate     float64
	perKmRate    float64
	responseTime string
	status       string
}

var (
	partners = []partnerSeed{
		{"Thames Cars", []string{"london", "heathrow"}, []string{"standard", "premium"}, 3.00, 1.60, "5-10 minutes", "approved"},
		{"Capital Executive", []string{"london"}, []string{"premium"}, 6.50, 2.40, "10-15 minutes", "approved"},
		{"Big Smoke XL", []string{"london", "gatwick"}, []string{"xl", "standard"}, 4.00, 1.90, "8-12 minutes", "approved"},
		{"Access Cabs", []string{"london"}, []string{"wheelchair", "standard"}, 3.50, 1.70, "10-20 minutes", "approved"},
		{"Night Owl Minicabs", []string{"london"}, []string{"standard"}, 2.50, 1.40, "15-25 minutes", "pending"},
	}

	firstNames = []string{"Amir", "Bola", "Chloe", "Dev", "Elena", "Femi", "Grace", "Hassan", "Isla", "Jonah",
		"Kemi", "Luca", "Maya", "Nikhil", "Olu", "Priya", "Rhys", "Sana", "Tom", "Yusuf"}
	lastNames = []string{"Ahmed", "Brown", "Clarke", "Davies", "Evans", "Khan", "Mensah", "Novak", "Okafor", "Patel"}
	makes     = map[string][2]string{
		"standard":   {"Toyota", "Prius"},
		"premium":    {"Mercedes", "E-Class"},
		"xl":         {"Ford", "Galaxy"},
		"wheelchair": {"LEVC", "TX"},
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.DatabaseURL, cfg.DBMaxConnections, cfg.DBMaxIdleConnections)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	driverIDs := make([]string, 0)
	for _, p := range partners {
		var partnerID string
		err := db.QueryRowxContext(ctx, `
			INSERT INTO partner_applications (company_name, contact_name, email, phone, service_areas, service_types,
				base_rate, per_km_rate, average_response_time, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			p.company, randomName(), fmt.Sprintf("ops%d@example.com", rand.Intn(100000)), randomPhone(),
			pq.Array(p.areas), pq.Array(p.types), p.baseRate, p.perKmRate, p.responseTime, p.status,
		).Scan(&partnerID)
		if err != nil {
			log.Printf("Failed to create partner %s: %v", p.company, err)
			continue
		}

		for i := 0; i < 12; i++ {
			vt := p.types[i%len(p.types)]
			id, err := seedDriver(ctx, db, partnerID, vt)
			if err != nil {
				log.Printf("Failed to create driver: %v", err)
				continue
			}
			driverIDs = append(driverIDs, id)
		}
		log.Printf("Created partner %s (%s)", p.company, p.status)
	}
	log.Printf("Created %d drivers", len(driverIDs))

	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Printf("Skipping cache warm: %v", err)
		} else {
			defer rdb.Close()
			drivers := service.NewDriverService(service.DriverServiceDeps{
				DB:           db.DB,
				DriverRepo:   repository.NewDriverRepository(db.DB),
				RideRepo:     repository.NewRideRepository(db.DB),
				VehicleRepo:  repository.NewVehicleRepository(db.DB),
				LocationRepo: repository.NewLocationRepository(db.DB),
				DriverCache:  cache.NewDriverLocationCache(rdb.Client),
				Logger:       logging.Discard(),
			})
			n, err := drivers.WarmCache(ctx)
			if err != nil {
				log.Printf("Failed to warm cache: %v", err)
			}
			log.Printf("Indexed %d online drivers in redis", n)
		}
	}

	if len(driverIDs) > 0 {
		log.Println("Sample Driver ID:", driverIDs[0])
	}
}

func seedDriver(ctx context.Context, db *database.PostgresDB, partnerID, vehicleType string) (string, error) {
	mm := makes[vehicleType]
	seats := 4
	if vehicleType == models.RideClassXL {
		seats = 7
	}
	var vehicleID string
	err := db.QueryRowxContext(ctx, `
		INSERT INTO vehicles (partner_id, make, model, year, color, license_plate, vehicle_type, seats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		partnerID, mm[0], mm[1], 2018+rand.Intn(7), []string{"Black", "Silver", "White", "Blue"}[rand.Intn(4)],
		fmt.Sprintf("LD%02d %s", rand.Intn(99), randomLetters(3)), vehicleType, seats,
	).Scan(&vehicleID)
	if err != nil {
		return "", err
	}

	// Roughly two thirds online, scattered within ~6km of the centre.
	status := models.DriverStatusOffline
	var lat, lng interface{}
	if rand.Intn(3) > 0 {
		status = models.DriverStatusOnline
		lat = baseLat + (rand.Float64()-0.5)*0.1
		lng = baseLng + (rand.Float64()-0.5)*0.16
	}

	var id string
	err = db.QueryRowxContext(ctx, `
		INSERT INTO drivers (partner_id, name, phone, license_number, vehicle_id, status, rating, is_verified,
			current_lat, current_lng, location_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, CASE WHEN $8::float8 IS NULL THEN NULL ELSE NOW() END)
		RETURNING id`,
		partnerID, randomName(), randomPhone(), fmt.Sprintf("PHD%07d", rand.Intn(10000000)), vehicleID,
		status, 4.0+float64(rand.Intn(100))/100, lat, lng,
	).Scan(&id)
	return id, err
}

func randomName() string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}

func randomPhone() string {
	return fmt.Sprintf("+447%09d", rand.Intn(1000000000))
}

func randomLetters(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('A' + rand.Intn(26))
	}
	return string(b)
}
