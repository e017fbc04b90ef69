package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/aditya/ridequote/internal/cache"
	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/ingest"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/repository"
	"github.com/jmoiron/sqlx"
)

type DriverService interface {
	ListAvailable(ctx context.Context, lat, lng, radiusKm float64) ([]*models.DriverWithDistance, error)
	SetStatus(ctx context.Context, driverID, status string) (*models.Driver, error)
	RecordLocation(ctx context.Context, driverID string, req *models.UpdateDriverLocationRequest) (*models.DriverLocation, error)
	GetDriver(ctx context.Context, id string) (*models.DriverResponse, error)
	LatestLocation(ctx context.Context, id string) (*models.DriverLocation, error)
	WarmCache(ctx context.Context) (int, error)
}

type driverService struct {
	db           *sqlx.DB
	driverRepo   repository.DriverRepository
	rideRepo     repository.RideRepository
	vehicleRepo  repository.VehicleRepository
	locationRepo repository.LocationRepository
	driverCache  cache.DriverLocationCache
	stream       ingest.LocationPublisher
	events       realtime.Publisher
	logger       *slog.Logger
}

type DriverServiceDeps struct {
	DB           *sqlx.DB
	DriverRepo   repository.DriverRepository
	RideRepo     repository.RideRepository
	VehicleRepo  repository.VehicleRepository
	LocationRepo repository.LocationRepository

	// Optional collaborators
	DriverCache cache.DriverLocationCache
	Stream      ingest.LocationPublisher
	Events      realtime.Publisher
	Logger      *slog.Logger
}

func NewDriverService(deps DriverServiceDeps) DriverService {
	s := &driverService{
		db:           deps.DB,
		driverRepo:   deps.DriverRepo,
		rideRepo:     deps.RideRepo,
		vehicleRepo:  deps.VehicleRepo,
		locationRepo: deps.LocationRepo,
		driverCache:  deps.DriverCache,
		stream:       deps.Stream,
		events:       deps.Events,
		logger:       deps.Logger,
	}
	if s.events == nil {
		s.events = realtime.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListAvailable returns online drivers within radiusKm of the point, nearest
// first. The geo cache only nominates candidates; the database decides who is
// actually online.
func (s *driverService) ListAvailable(ctx context.Context, lat, lng, radiusKm float64) ([]*models.DriverWithDistance, error) {
	if radiusKm <= 0 {
		return nil, apperrors.InvalidArgument("radius must be positive")
	}

	if s.driverCache != nil {
		nearby, err := s.driverCache.GetNearbyDrivers(ctx, lat, lng, radiusKm)
		if err != nil {
			s.logger.Warn("geo cache lookup failed, using database", "error", err)
		} else if len(nearby) > 0 {
			ids := make([]string, 0, len(nearby))
			for _, n := range nearby {
				ids = append(ids, n.DriverID)
			}
			drivers, err := s.driverRepo.GetByIDs(ctx, ids, models.DriverStatusOnline)
			if err != nil {
				return nil, apperrors.Persistence("list available drivers", err)
			}
			if result := withinRadius(drivers, lat, lng, radiusKm); len(result) > 0 {
				return result, nil
			}
		}
	}

	drivers, err := s.driverRepo.ListOnlineInBox(ctx, boundingBox(lat, lng, radiusKm))
	if err != nil {
		return nil, apperrors.Persistence("list available drivers", err)
	}
	return withinRadius(drivers, lat, lng, radiusKm), nil
}

func (s *driverService) SetStatus(ctx context.Context, driverID, status string) (*models.Driver, error) {
	if !models.IsValidDriverStatus(status) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("invalid driver status %q", status))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence("begin driver status update", err)
	}
	defer tx.Rollback()

	driver, err := s.driverRepo.GetByIDForUpdate(ctx, tx, driverID)
	if err != nil {
		return nil, apperrors.Persistence("load driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	if driver.Status == status {
		return driver, nil
	}

	// A bound driver stays busy until its ride reaches a terminal state
	if driver.Status == models.DriverStatusBusy {
		active, err := s.rideRepo.GetActiveByDriverTx(ctx, tx, driverID)
		if err != nil {
			return nil, apperrors.Persistence("check active ride", err)
		}
		if active != nil {
			return nil, apperrors.Conflict(fmt.Sprintf("driver is assigned to ride %s", active.ID))
		}
	}

	if err := s.driverRepo.UpdateStatusTx(ctx, tx, driverID, status); err != nil {
		return nil, apperrors.Persistence("update driver status", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence("commit driver status", err)
	}

	driver.Status = status
	driver.UpdatedAt = time.Now()

	if s.driverCache != nil {
		if err := s.driverCache.SetDriverStatus(ctx, driverID, status); err != nil {
			s.logger.Warn("failed to cache driver status", "driver_id", driverID, "error", err)
		}
		if status == models.DriverStatusOnline && driver.CurrentLat != nil && driver.CurrentLng != nil {
			if err := s.driverCache.UpdateLocation(ctx, driverID, *driver.CurrentLat, *driver.CurrentLng, nil, nil); err != nil {
				s.logger.Warn("failed to index driver location", "driver_id", driverID, "error", err)
			}
		}
	}

	s.events.Publish(ctx, realtime.Event{
		Type:     realtime.EventDriverStatusUpdate,
		DriverID: driverID,
		Status:   status,
	})

	return driver, nil
}

func (s *driverService) RecordLocation(ctx context.Context, driverID string, req *models.UpdateDriverLocationRequest) (*models.DriverLocation, error) {
	if err := validateCoordinates(req.Lat, req.Lng); err != nil {
		return nil, err
	}

	now := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence("begin location update", err)
	}
	defer tx.Rollback()

	status, err := s.driverRepo.UpdateLocationTx(ctx, tx, driverID, req.Lat, req.Lng, now)
	if err != nil {
		return nil, apperrors.Persistence("update driver location", err)
	}
	if status == "" {
		return nil, apperrors.NotFound("driver")
	}

	loc := &models.DriverLocation{
		DriverID:   driverID,
		Lat:        req.Lat,
		Lng:        req.Lng,
		Heading:    req.Heading,
		Speed:      req.Speed,
		RecordedAt: now,
	}
	if err := s.locationRepo.AppendTx(ctx, tx, loc); err != nil {
		return nil, apperrors.Persistence("append driver location", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence("commit driver location", err)
	}

	var rideID string
	if s.driverCache != nil {
		if status != models.DriverStatusOffline {
			if err := s.driverCache.UpdateLocation(ctx, driverID, req.Lat, req.Lng, req.Heading, req.Speed); err != nil {
				s.logger.Warn("failed to update driver location in cache", "driver_id", driverID, "error", err)
			}
		}
		if status == models.DriverStatusBusy {
			rideID, _ = s.driverCache.GetActiveRide(ctx, driverID)
		}
	}

	if s.stream != nil {
		if err := s.stream.PublishLocation(ctx, loc); err != nil {
			s.logger.Warn("failed to stream driver location", "driver_id", driverID, "error", err)
		}
	}

	s.events.Publish(ctx, realtime.LocationEvent(driverID, rideID, req.Lat, req.Lng, req.Heading, req.Speed, now))

	return loc, nil
}

func (s *driverService) GetDriver(ctx context.Context, id string) (*models.DriverResponse, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver")
	}

	resp := driver.ToResponse()

	if driver.VehicleID != nil {
		vehicle, err := s.vehicleRepo.GetByID(ctx, *driver.VehicleID)
		if err != nil {
			s.logger.Warn("failed to load vehicle", "driver_id", id, "error", err)
		} else if vehicle != nil {
			resp.Vehicle = vehicle.ToResponse()
		}
	}

	// Cache may be fresher than the last committed ping
	if s.driverCache != nil {
		if loc, err := s.driverCache.GetDriverLocation(ctx, id); err == nil && loc != nil {
			resp.CurrentLat = &loc.Lat
			resp.CurrentLng = &loc.Lng
		}
	}

	return resp, nil
}

func (s *driverService) LatestLocation(ctx context.Context, id string) (*models.DriverLocation, error) {
	loc, err := s.locationRepo.LatestByDriver(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load driver location", err)
	}
	if loc == nil {
		return nil, apperrors.NotFound("driver location")
	}
	return loc, nil
}

// WarmCache indexes every online driver with a known position. Run at boot so
// a fresh Redis does not push all searches to the database fallback.
func (s *driverService) WarmCache(ctx context.Context) (int, error) {
	if s.driverCache == nil {
		return 0, nil
	}
	drivers, err := s.driverRepo.ListOnline(ctx)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, d := range drivers {
		if d.CurrentLat == nil || d.CurrentLng == nil {
			continue
		}
		if err := s.driverCache.UpdateLocation(ctx, d.ID, *d.CurrentLat, *d.CurrentLng, nil, nil); err != nil {
			return indexed, err
		}
		if err := s.driverCache.SetDriverStatus(ctx, d.ID, d.Status); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}

// withinRadius keeps drivers with a known position inside the radius and
// orders them with rankCandidates.
func withinRadius(drivers []*models.Driver, lat, lng, radiusKm float64) []*models.DriverWithDistance {
	result := make([]*models.DriverWithDistance, 0, len(drivers))
	for _, d := range drivers {
		if d.Status != models.DriverStatusOnline || d.CurrentLat == nil || d.CurrentLng == nil {
			continue
		}
		dist := haversineDistance(lat, lng, *d.CurrentLat, *d.CurrentLng)
		if dist > radiusKm {
			continue
		}
		result = append(result, &models.DriverWithDistance{Driver: d, Distance: round(dist)})
	}
	rankCandidates(result)
	return result
}

// rankCandidates orders nearest first, then higher rating, then id.
func rankCandidates(drivers []*models.DriverWithDistance) {
	sort.SliceStable(drivers, func(i, j int) bool {
		a, b := drivers[i], drivers[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Driver.Rating != b.Driver.Rating {
			return a.Driver.Rating > b.Driver.Rating
		}
		return a.Driver.ID < b.Driver.ID
	})
}

func boundingBox(lat, lng, radiusKm float64) repository.BoundingBox {
	const kmPerDegree = 111.32
	dLat := radiusKm / kmPerDegree
	cos := math.Cos(lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	dLng := radiusKm / (kmPerDegree * cos)
	return repository.BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperrors.InvalidArgument("coordinates out of range")
	}
	return nil
}
