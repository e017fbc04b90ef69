package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aditya/ridequote/internal/cache"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/repository"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

type fakeRideRepo struct {
	repository.RideRepository
	rides   map[string]*models.RideRequest
	created []*models.RideRequest
}

func newFakeRideRepo() *fakeRideRepo {
	return &fakeRideRepo{rides: map[string]*models.RideRequest{}}
}

func (f *fakeRideRepo) CreateTx(_ context.Context, _ *sqlx.Tx, ride *models.RideRequest) error {
	if ride.ID == "" {
		ride.ID = fmt.Sprintf("r%d", len(f.created)+1)
	}
	ride.Status = models.RideStatusPending
	f.created = append(f.created, ride)
	f.rides[ride.ID] = ride
	return nil
}

func (f *fakeRideRepo) GetByID(_ context.Context, id string) (*models.RideRequest, error) {
	return f.rides[id], nil
}

func (f *fakeRideRepo) UpdateStatusTx(_ context.Context, _ *sqlx.Tx, id, from, to string) (bool, error) {
	ride := f.rides[id]
	if ride == nil || ride.Status != from {
		return false, nil
	}
	ride.Status = to
	return true, nil
}

type fakeQuoteRepo struct {
	repository.QuoteRepository
	created []*models.PriceQuote
	rows    []*models.QuoteWithDetails
	expired int64
	err     error

	// drivers that went busy between listing and quoting
	claimed map[string]bool
}

func (f *fakeQuoteRepo) CreateTx(_ context.Context, _ *sqlx.Tx, q *models.PriceQuote) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if q.DriverID != nil && f.claimed[*q.DriverID] {
		return false, nil
	}
	q.ID = fmt.Sprintf("q%d", len(f.created)+1)
	q.Status = models.QuoteStatusActive
	f.created = append(f.created, q)
	return true, nil
}

func (f *fakeQuoteRepo) ListByRide(_ context.Context, _ string) ([]*models.QuoteWithDetails, error) {
	return f.rows, nil
}

func (f *fakeQuoteRepo) ExpireStale(_ context.Context, _ time.Time) (int64, error) {
	return f.expired, f.err
}

type fakePartnerRepo struct {
	repository.PartnerRepository
	partners []*models.Partner
	calls    int
}

func (f *fakePartnerRepo) ListApproved(_ context.Context) ([]*models.Partner, error) {
	f.calls++
	return f.partners, nil
}

type fakeDriverRepo struct {
	repository.DriverRepository
	byID    map[string]*models.Driver
	inBox   []*models.Driver
	boxUsed bool
}

func (f *fakeDriverRepo) GetByIDs(_ context.Context, ids []string, status string) ([]*models.Driver, error) {
	var out []*models.Driver
	for _, id := range ids {
		if d, ok := f.byID[id]; ok && d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDriverRepo) ListOnlineInBox(_ context.Context, _ repository.BoundingBox) ([]*models.Driver, error) {
	f.boxUsed = true
	return f.inBox, nil
}

type fakeDriverService struct {
	DriverService
	available []*models.DriverWithDistance
	calls     int
}

func (f *fakeDriverService) ListAvailable(_ context.Context, _, _, _ float64) ([]*models.DriverWithDistance, error) {
	f.calls++
	return f.available, nil
}

type fakeDriverCache struct {
	nearby     []cache.DriverWithDistance
	nearbyErr  error
	statuses   map[string]string
	activeRide map[string]string
	located    map[string]bool
}

func newFakeDriverCache() *fakeDriverCache {
	return &fakeDriverCache{
		statuses:   map[string]string{},
		activeRide: map[string]string{},
		located:    map[string]bool{},
	}
}

func (f *fakeDriverCache) UpdateLocation(_ context.Context, driverID string, _, _ float64, _, _ *float64) error {
	f.located[driverID] = true
	return nil
}

func (f *fakeDriverCache) GetDriverLocation(_ context.Context, _ string) (*cache.DriverLocation, error) {
	return nil, nil
}

func (f *fakeDriverCache) GetNearbyDrivers(_ context.Context, _, _, _ float64) ([]cache.DriverWithDistance, error) {
	return f.nearby, f.nearbyErr
}

func (f *fakeDriverCache) RemoveDriver(_ context.Context, driverID string) error {
	delete(f.located, driverID)
	return nil
}

func (f *fakeDriverCache) SetDriverStatus(_ context.Context, driverID, status string) error {
	f.statuses[driverID] = status
	return nil
}

func (f *fakeDriverCache) GetDriverStatus(_ context.Context, driverID string) (string, error) {
	return f.statuses[driverID], nil
}

func (f *fakeDriverCache) SetActiveRide(_ context.Context, driverID, rideID string) error {
	f.activeRide[driverID] = rideID
	return nil
}

func (f *fakeDriverCache) GetActiveRide(_ context.Context, driverID string) (string, error) {
	return f.activeRide[driverID], nil
}

func (f *fakeDriverCache) ClearActiveRide(_ context.Context, driverID string) error {
	delete(f.activeRide, driverID)
	return nil
}

type fakeEstimateCache struct {
	entries map[string]*models.EstimateResponse
	sets    int
}

func (f *fakeEstimateCache) Get(_ context.Context, key string) (*models.EstimateResponse, error) {
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	copied := *e
	copied.Cached = true
	return &copied, nil
}

func (f *fakeEstimateCache) Set(_ context.Context, key string, e *models.EstimateResponse) error {
	f.sets++
	f.entries[key] = e
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) last() (realtime.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return realtime.Event{}, false
	}
	return p.events[len(p.events)-1], true
}

type recordingStream struct {
	published []*models.DriverLocation
}

func (s *recordingStream) PublishLocation(_ context.Context, loc *models.DriverLocation) error {
	s.published = append(s.published, loc)
	return nil
}

func (s *recordingStream) Close() error { return nil }
