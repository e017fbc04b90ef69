package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aditya/ridequote/internal/cache"
	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/geocode"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/observability"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/repository"
	"github.com/jmoiron/sqlx"
)

type DispatchService interface {
	Submit(ctx context.Context, req *models.CreateRideRequest) (*models.SubmitRideResponse, error)
	GetQuotes(ctx context.Context, rideID string) ([]*models.QuoteResponse, error)
	AcceptQuote(ctx context.Context, quoteID string) (*models.AcceptQuoteResponse, error)
	UpdateStatus(ctx context.Context, rideID string, req *models.UpdateRideStatusRequest) (*models.RideResponse, error)
	GetRide(ctx context.Context, id string) (*models.RideResponse, error)
	Estimate(ctx context.Context, req *models.EstimateRequest) (*models.EstimateResponse, error)
	ExpireQuotes(ctx context.Context) (int64, error)
	RunQuoteExpiry(ctx context.Context)
}

type DispatchConfig struct {
	SearchRadiusKM     float64
	MaxQuotes          int
	QuoteTTL           time.Duration
	QuoteSweepInterval time.Duration
}

type DispatchServiceDeps struct {
	DB          *sqlx.DB
	RideRepo    repository.RideRepository
	QuoteRepo   repository.QuoteRepository
	PartnerRepo repository.PartnerRepository
	DriverRepo  repository.DriverRepository
	Drivers     DriverService
	Pricing     PricingService

	// Optional collaborators
	EstimateCache cache.EstimateCache
	DriverCache   cache.DriverLocationCache
	Geocoder      geocode.Geocoder
	Events        realtime.Publisher
	Logger        *slog.Logger
}

type dispatchService struct {
	cfg           DispatchConfig
	db            *sqlx.DB
	rideRepo      repository.RideRepository
	quoteRepo     repository.QuoteRepository
	partnerRepo   repository.PartnerRepository
	driverRepo    repository.DriverRepository
	drivers       DriverService
	pricing       PricingService
	estimateCache cache.EstimateCache
	driverCache   cache.DriverLocationCache
	geocoder      geocode.Geocoder
	events        realtime.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

func NewDispatchService(cfg DispatchConfig, deps DispatchServiceDeps) DispatchService {
	if cfg.SearchRadiusKM <= 0 {
		cfg.SearchRadiusKM = 10
	}
	if cfg.MaxQuotes <= 0 {
		cfg.MaxQuotes = 5
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 5 * time.Minute
	}
	if cfg.QuoteSweepInterval <= 0 {
		cfg.QuoteSweepInterval = time.Minute
	}

	s := &dispatchService{
		cfg:           cfg,
		db:            deps.DB,
		rideRepo:      deps.RideRepo,
		quoteRepo:     deps.QuoteRepo,
		partnerRepo:   deps.PartnerRepo,
		driverRepo:    deps.DriverRepo,
		drivers:       deps.Drivers,
		pricing:       deps.Pricing,
		estimateCache: deps.EstimateCache,
		driverCache:   deps.DriverCache,
		geocoder:      deps.Geocoder,
		events:        deps.Events,
		logger:        deps.Logger,
		now:           time.Now,
	}
	if s.events == nil {
		s.events = realtime.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *dispatchService) Submit(ctx context.Context, req *models.CreateRideRequest) (*models.SubmitRideResponse, error) {
	if req == nil {
		return nil, apperrors.InvalidArgument("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.InvalidArgument(err.Error())
	}

	rideClass := req.RideClass
	if rideClass == "" {
		rideClass = models.RideClassStandard
	}

	s.fillAddress(ctx, req.Pickup)
	s.fillAddress(ctx, req.Destination)

	distanceKm, durationMin := s.tripEstimate(req.Pickup, req.Destination, req.EstimatedDistanceKm, req.EstimatedDurationMin)

	ride := &models.RideRequest{
		CustomerName:         req.CustomerName,
		CustomerPhone:        req.CustomerPhone,
		PickupLat:            req.Pickup.Lat,
		PickupLng:            req.Pickup.Lng,
		DestinationLat:       req.Destination.Lat,
		DestinationLng:       req.Destination.Lng,
		RideClass:            rideClass,
		ScheduledAt:          req.ScheduledAt,
		EstimatedDistanceKm:  distanceKm,
		EstimatedDurationMin: durationMin,
		MaxPrice:             req.MaxPrice,
	}
	if req.Pickup.Address != "" {
		ride.PickupAddress = &req.Pickup.Address
	}
	if req.Destination.Address != "" {
		ride.DestinationAddress = &req.Destination.Address
	}
	if req.Notes != "" {
		ride.Notes = &req.Notes
	}

	partners, err := s.servingPartners(ctx, rideClass)
	if err != nil {
		return nil, err
	}

	var candidates []*models.DriverWithDistance
	if len(partners) > 0 {
		candidates, err = s.drivers.ListAvailable(ctx, ride.PickupLat, ride.PickupLng, s.cfg.SearchRadiusKM)
		if err != nil {
			return nil, err
		}
	}

	// The ride and its quotes commit together.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence("begin ride request", err)
	}
	defer tx.Rollback()

	if err := s.rideRepo.CreateTx(ctx, tx, ride); err != nil {
		return nil, apperrors.Persistence("create ride request", err)
	}

	now := s.now()
	quotes := make([]*models.QuoteResponse, 0, s.cfg.MaxQuotes)
	for _, c := range candidates {
		if len(quotes) >= s.cfg.MaxQuotes {
			break
		}
		partner, ok := partners[c.Driver.PartnerID]
		if !ok || !c.Driver.IsVerified {
			continue
		}

		price := s.pricing.Price(partner, distanceKm)
		if ride.MaxPrice != nil && price > *ride.MaxPrice {
			continue
		}

		driverID := c.Driver.ID
		quote := &models.PriceQuote{
			RideRequestID:     ride.ID,
			PartnerID:         partner.ID,
			DriverID:          &driverID,
			Price:             price,
			EstimatedArrival:  s.pricing.PickupETA(partner),
			EstimatedDuration: durationMin,
			ValidUntil:        now.Add(s.cfg.QuoteTTL),
		}
		created, err := s.quoteRepo.CreateTx(ctx, tx, quote)
		if err != nil {
			return nil, apperrors.Persistence("create price quote", err)
		}
		if !created {
			// went busy or offline after it was listed
			continue
		}

		resp := quote.ToResponse(now)
		resp.CompanyName = partner.CompanyName
		resp.Driver = &models.QuoteDriver{ID: c.Driver.ID, Name: c.Driver.Name, Rating: c.Driver.Rating}
		quotes = append(quotes, resp)
	}

	if len(quotes) > 0 {
		moved, err := s.rideRepo.UpdateStatusTx(ctx, tx, ride.ID, models.RideStatusPending, models.RideStatusMatched)
		if err != nil {
			return nil, apperrors.Persistence("mark ride matched", err)
		}
		if moved {
			ride.Status = models.RideStatusMatched
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence("commit ride request", err)
	}

	if len(quotes) == 0 {
		observability.RideRequestsTotal.WithLabelValues("no_supply").Inc()
		return &models.SubmitRideResponse{RideRequest: ride.ToResponse(), Quotes: quotes}, nil
	}

	if ride.Status == models.RideStatusMatched {
		s.events.Publish(ctx, realtime.RideStatusEvent(ride.ID, "", "", ride.Status, now))
	}

	sortQuotes(quotes)
	s.tagQuotes(quotes)

	observability.QuotesGenerated.Add(float64(len(quotes)))
	observability.RideRequestsTotal.WithLabelValues("quoted").Inc()
	s.logger.Info("ride request quoted", "ride_id", ride.ID, "quotes", len(quotes), "candidates", len(candidates))

	return &models.SubmitRideResponse{RideRequest: ride.ToResponse(), Quotes: quotes}, nil
}

func (s *dispatchService) GetQuotes(ctx context.Context, rideID string) ([]*models.QuoteResponse, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, apperrors.Persistence("load ride request", err)
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride request")
	}

	rows, err := s.quoteRepo.ListByRide(ctx, rideID)
	if err != nil {
		return nil, apperrors.Persistence("list quotes", err)
	}

	now := s.now()
	quotes := make([]*models.QuoteResponse, 0, len(rows))
	actionable := make([]*models.QuoteResponse, 0, len(rows))
	for _, row := range rows {
		q := row.ToResponse(now)
		quotes = append(quotes, q)
		if q.Actionable {
			actionable = append(actionable, q)
		}
	}
	sortQuotes(quotes)
	sortQuotes(actionable)
	s.tagQuotes(actionable)
	return quotes, nil
}

// acceptAttempts bounds how often an accept aborted by Postgres deadlock
// detection or a serialization failure is replayed.
const acceptAttempts = 3

// AcceptQuote binds the quote's driver to the ride. All writes happen in one
// transaction; every guard is a conditional update so two racing accepts on
// the same ride or driver cannot both commit.
func (s *dispatchService) AcceptQuote(ctx context.Context, quoteID string) (resp *models.AcceptQuoteResponse, err error) {
	start := time.Now()
	defer func() {
		observability.AcceptLatency.Observe(time.Since(start).Seconds())
		observability.QuoteAccepts.WithLabelValues(resultCode(err, "accepted")).Inc()
	}()

	for attempt := 1; ; attempt++ {
		resp, err = s.acceptOnce(ctx, quoteID)
		if err == nil || !repository.IsLockConflict(err) {
			return resp, err
		}
		if attempt == acceptAttempts {
			s.logger.Warn("accept kept losing lock conflicts", "quote_id", quoteID, "attempts", attempt, "error", apperrors.Cause(err))
			return nil, apperrors.Conflict("quote is contended by concurrent accepts, retry")
		}
		s.logger.Info("retrying accept after lock conflict", "quote_id", quoteID, "attempt", attempt)
	}
}

func (s *dispatchService) acceptOnce(ctx context.Context, quoteID string) (*models.AcceptQuoteResponse, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence("begin accept", err)
	}
	defer tx.Rollback()

	// Lock order is ride, driver, quote, then competing quotes by id.
	peek, err := s.quoteRepo.GetByIDTx(ctx, tx, quoteID)
	if err != nil {
		return nil, apperrors.Persistence("load quote", err)
	}
	if peek == nil {
		return nil, apperrors.NotFound("quote")
	}

	ride, err := s.rideRepo.GetByIDForUpdate(ctx, tx, peek.RideRequestID)
	if err != nil {
		return nil, apperrors.Persistence("load ride request", err)
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride request")
	}
	if !ride.IsOpen() {
		return nil, apperrors.AlreadyMatched()
	}

	if peek.DriverID != nil {
		driver, err := s.driverRepo.GetByIDForUpdate(ctx, tx, *peek.DriverID)
		if err != nil {
			return nil, apperrors.Persistence("load driver", err)
		}
		if driver == nil {
			return nil, apperrors.QuoteInvalid("quote driver no longer exists")
		}
	}

	quote, err := s.quoteRepo.GetByIDForUpdate(ctx, tx, quoteID)
	if err != nil {
		return nil, apperrors.Persistence("load quote", err)
	}
	if quote == nil {
		return nil, apperrors.NotFound("quote")
	}

	now := s.now()
	switch {
	case quote.Status == models.QuoteStatusWithdrawn || quote.Status == models.QuoteStatusAccepted:
		return nil, apperrors.AlreadyMatched()
	case quote.IsExpired(now):
		return nil, apperrors.QuoteExpired()
	case quote.DriverID == nil:
		return nil, apperrors.QuoteInvalid("quote has no driver")
	}
	driverID := *quote.DriverID

	claimed, err := s.driverRepo.ClaimTx(ctx, tx, driverID)
	if err != nil {
		return nil, apperrors.Persistence("claim driver", err)
	}
	if !claimed {
		return nil, apperrors.DriverUnavailable()
	}

	accepted, err := s.quoteRepo.MarkAcceptedTx(ctx, tx, quote.ID)
	if err != nil {
		return nil, apperrors.Persistence("accept quote", err)
	}
	if !accepted {
		return nil, apperrors.AlreadyMatched()
	}

	assigned, err := s.rideRepo.AssignTx(ctx, tx, ride.ID, driverID, quote.ID)
	if err != nil {
		return nil, apperrors.Persistence("assign ride", err)
	}
	if !assigned {
		return nil, apperrors.AlreadyMatched()
	}

	if _, err := s.quoteRepo.WithdrawCompetingTx(ctx, tx, ride.ID, driverID); err != nil {
		return nil, apperrors.Persistence("withdraw competing quotes", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence("commit accept", err)
	}

	if s.driverCache != nil {
		if err := s.driverCache.SetDriverStatus(ctx, driverID, models.DriverStatusBusy); err != nil {
			s.logger.Warn("failed to cache driver status", "driver_id", driverID, "error", err)
		}
		if err := s.driverCache.SetActiveRide(ctx, driverID, ride.ID); err != nil {
			s.logger.Warn("failed to cache active ride", "driver_id", driverID, "error", err)
		}
	}
	s.events.Publish(ctx, realtime.RideStatusEvent(ride.ID, driverID, quote.ID, models.RideStatusAccepted, now))

	s.logger.Info("quote accepted", "quote_id", quote.ID, "ride_id", ride.ID, "driver_id", driverID)

	quote.Status = models.QuoteStatusAccepted
	return &models.AcceptQuoteResponse{Success: true, Quote: quote.ToResponse(now)}, nil
}

func (s *dispatchService) UpdateStatus(ctx context.Context, rideID string, req *models.UpdateRideStatusRequest) (*models.RideResponse, error) {
	if req == nil {
		return nil, apperrors.InvalidArgument("status is required")
	}
	to := req.Status

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperrors.Persistence("begin status update", err)
	}
	defer tx.Rollback()

	ride, err := s.rideRepo.GetByIDForUpdate(ctx, tx, rideID)
	if err != nil {
		return nil, apperrors.Persistence("load ride request", err)
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride request")
	}

	if req.DriverID != "" && (ride.DriverID == nil || *ride.DriverID != req.DriverID) {
		return nil, apperrors.Conflict("ride is not assigned to this driver")
	}

	from := ride.Status
	if !isProgressTarget(to) || !models.CanTransition(from, to) {
		return nil, apperrors.InvalidTransition(from, to)
	}

	moved, err := s.rideRepo.UpdateStatusTx(ctx, tx, ride.ID, from, to)
	if err != nil {
		return nil, apperrors.Persistence("update ride status", err)
	}
	if !moved {
		return nil, apperrors.InvalidTransition(from, to)
	}

	released := false
	var position *models.Location
	if models.IsTerminalRideStatus(to) && ride.DriverID != nil {
		released, position, err = s.driverRepo.ReleaseTx(ctx, tx, *ride.DriverID, to == models.RideStatusCompleted)
		if err != nil {
			return nil, apperrors.Persistence("release driver", err)
		}
		if !released {
			s.logger.Warn("bound driver was not busy at release", "ride_id", ride.ID, "driver_id", *ride.DriverID)
		}
	}

	if to == models.RideStatusCancelled && (from == models.RideStatusPending || from == models.RideStatusMatched) {
		if _, err := s.quoteRepo.WithdrawActiveForRideTx(ctx, tx, ride.ID); err != nil {
			return nil, apperrors.Persistence("withdraw quotes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Persistence("commit status update", err)
	}

	now := s.now()
	ride.Status = to
	ride.UpdatedAt = now

	var driverID string
	if ride.DriverID != nil {
		driverID = *ride.DriverID
	}
	if released {
		observability.DriverReleases.WithLabelValues(to).Inc()
		if s.driverCache != nil {
			if err := s.driverCache.SetDriverStatus(ctx, driverID, models.DriverStatusOnline); err != nil {
				s.logger.Warn("failed to cache driver status", "driver_id", driverID, "error", err)
			}
			if err := s.driverCache.ClearActiveRide(ctx, driverID); err != nil {
				s.logger.Warn("failed to clear active ride", "driver_id", driverID, "error", err)
			}
			// busy drivers were dropped from the geo index
			if position != nil {
				if err := s.driverCache.UpdateLocation(ctx, driverID, position.Lat, position.Lng, nil, nil); err != nil {
					s.logger.Warn("failed to index driver location", "driver_id", driverID, "error", err)
				}
			}
		}
	}

	var quoteID string
	if ride.AcceptedQuoteID != nil {
		quoteID = *ride.AcceptedQuoteID
	}
	s.events.Publish(ctx, realtime.RideStatusEvent(ride.ID, driverID, quoteID, to, now))

	s.logger.Info("ride status updated", "ride_id", ride.ID, "from", from, "to", to, "reason", req.Reason)

	return ride.ToResponse(), nil
}

func (s *dispatchService) GetRide(ctx context.Context, id string) (*models.RideResponse, error) {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Persistence("load ride request", err)
	}
	if ride == nil {
		return nil, apperrors.NotFound("ride request")
	}

	resp := ride.ToResponse()
	if ride.DriverID != nil && s.drivers != nil {
		driver, err := s.drivers.GetDriver(ctx, *ride.DriverID)
		if err != nil {
			s.logger.Warn("failed to load ride driver", "ride_id", id, "error", err)
		} else {
			resp.Driver = driver
		}
	}
	return resp, nil
}

// Estimate prices a corridor against every serving partner without binding a
// driver. Results are cached per corridor unless the caller supplies its own
// distance or duration.
func (s *dispatchService) Estimate(ctx context.Context, req *models.EstimateRequest) (*models.EstimateResponse, error) {
	if req == nil || req.Pickup == nil || req.Destination == nil {
		return nil, apperrors.InvalidArgument("pickup and destination are required")
	}
	if !req.Pickup.InRange() || !req.Destination.InRange() {
		return nil, apperrors.InvalidArgument("coordinates out of range")
	}
	rideClass := req.RideClass
	if rideClass == "" {
		rideClass = models.RideClassStandard
	}
	if !models.IsValidRideClass(rideClass) {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("unknown ride class %q", rideClass))
	}

	cacheable := s.estimateCache != nil && req.EstimatedDistanceKm == nil && req.EstimatedDurationMin == nil
	var key string
	if cacheable {
		key = cache.CorridorKey(req.Pickup.Lat, req.Pickup.Lng, req.Destination.Lat, req.Destination.Lng, rideClass)
		cached, err := s.estimateCache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("estimate cache read failed", "key", key, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	partners, err := s.servingPartners(ctx, rideClass)
	if err != nil {
		return nil, err
	}

	distanceKm, durationMin := s.tripEstimate(req.Pickup, req.Destination, req.EstimatedDistanceKm, req.EstimatedDurationMin)

	options := make([]*models.EstimateOption, 0, len(partners))
	for _, p := range partners {
		options = append(options, &models.EstimateOption{
			PartnerID:         p.ID,
			CompanyName:       p.CompanyName,
			Price:             s.pricing.Price(p, distanceKm),
			EstimatedArrival:  s.pricing.PickupETA(p),
			EstimatedDuration: durationMin,
		})
	}
	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i], options[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.EstimatedArrival != b.EstimatedArrival {
			return a.EstimatedArrival < b.EstimatedArrival
		}
		return a.PartnerID < b.PartnerID
	})

	candidates := make([]*QuoteCandidate, len(options))
	for i, o := range options {
		candidates[i] = &QuoteCandidate{Price: o.Price, EstimatedArrival: o.EstimatedArrival}
	}
	s.pricing.AssignTags(candidates)
	for i, c := range candidates {
		options[i].Tag = c.Tag
	}

	estimate := &models.EstimateResponse{
		RideClass:   rideClass,
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Options:     options,
		GeneratedAt: s.now(),
	}

	if cacheable && len(options) > 0 {
		if err := s.estimateCache.Set(ctx, key, estimate); err != nil {
			s.logger.Warn("estimate cache write failed", "key", key, "error", err)
		}
	}

	return estimate, nil
}

// ExpireQuotes flips active quotes past their deadline to expired. Accept
// checks the deadline itself, so this only keeps stored state tidy.
func (s *dispatchService) ExpireQuotes(ctx context.Context) (int64, error) {
	n, err := s.quoteRepo.ExpireStale(ctx, s.now())
	if err != nil {
		return 0, apperrors.Persistence("expire quotes", err)
	}
	if n > 0 {
		observability.QuotesExpired.Add(float64(n))
	}
	return n, nil
}

func (s *dispatchService) RunQuoteExpiry(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.QuoteSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireQuotes(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error("quote expiry sweep failed", "error", err)
				}
				continue
			}
			if n > 0 {
				s.logger.Info("expired stale quotes", "count", n)
			}
		}
	}
}

// servingPartners returns approved partners offering rideClass, keyed by id.
func (s *dispatchService) servingPartners(ctx context.Context, rideClass string) (map[string]*models.Partner, error) {
	partners, err := s.partnerRepo.ListApproved(ctx)
	if err != nil {
		return nil, apperrors.Persistence("list partners", err)
	}
	serving := make(map[string]*models.Partner, len(partners))
	for _, p := range partners {
		if p.IsApproved() && p.Serves(rideClass) {
			serving[p.ID] = p
		}
	}
	return serving, nil
}

func (s *dispatchService) tripEstimate(pickup, destination *models.Location, distanceKm *float64, durationMin *int) (float64, int) {
	var km float64
	if distanceKm != nil {
		km = *distanceKm
	} else {
		km = s.pricing.EstimateDistance(pickup.Lat, pickup.Lng, destination.Lat, destination.Lng)
	}
	var mins int
	if durationMin != nil {
		mins = *durationMin
	} else {
		mins = s.pricing.EstimateDuration(km)
	}
	return km, mins
}

func (s *dispatchService) fillAddress(ctx context.Context, loc *models.Location) {
	if s.geocoder == nil || loc.Address != "" {
		return
	}
	resolved, err := s.geocoder.Reverse(ctx, loc.Lat, loc.Lng)
	if err != nil {
		s.logger.Debug("reverse geocode failed", "lat", loc.Lat, "lng", loc.Lng, "error", err)
		return
	}
	loc.Address = resolved.Address
}

func (s *dispatchService) tagQuotes(quotes []*models.QuoteResponse) {
	candidates := make([]*QuoteCandidate, len(quotes))
	for i, q := range quotes {
		candidates[i] = &QuoteCandidate{Price: q.Price, EstimatedArrival: q.EstimatedArrival}
	}
	s.pricing.AssignTags(candidates)
	for i, c := range candidates {
		quotes[i].Tag = c.Tag
	}
}

// sortQuotes orders by price, then pickup ETA. Equal quotes keep their
// incoming order.
func sortQuotes(quotes []*models.QuoteResponse) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].Price != quotes[j].Price {
			return quotes[i].Price < quotes[j].Price
		}
		return quotes[i].EstimatedArrival < quotes[j].EstimatedArrival
	})
}

func isProgressTarget(status string) bool {
	return status == models.RideStatusPickedUp || status == models.RideStatusCompleted || status == models.RideStatusCancelled
}

func resultCode(err error, ok string) string {
	if err == nil {
		return ok
	}
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "error"
}
