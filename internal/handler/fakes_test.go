package handler

import (
	"context"
	"sync"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/service"
)

const (
	rideUUID   = "6f1c2b9e-8a7d-4c3e-9b1a-2d4e6f8a0b1c"
	quoteUUID  = "0a9b8c7d-6e5f-4a3b-2c1d-0e9f8a7b6c5d"
	driverUUID = "3c5e7a9b-1d2f-4e6a-8b0c-2d4f6a8c0e1b"
)

type fakeDispatch struct {
	service.DispatchService

	mu         sync.Mutex
	submitted  []*models.CreateRideRequest
	submitResp *models.SubmitRideResponse
	quotes     []*models.QuoteResponse
	acceptResp *models.AcceptQuoteResponse
	ride       *models.RideResponse
	estimate   *models.EstimateResponse
	updates    []*models.UpdateRideStatusRequest
	err        error
}

func (f *fakeDispatch) Submit(_ context.Context, req *models.CreateRideRequest) (*models.SubmitRideResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	return f.submitResp, f.err
}

func (f *fakeDispatch) GetQuotes(context.Context, string) ([]*models.QuoteResponse, error) {
	return f.quotes, f.err
}

func (f *fakeDispatch) AcceptQuote(context.Context, string) (*models.AcceptQuoteResponse, error) {
	return f.acceptResp, f.err
}

func (f *fakeDispatch) GetRide(context.Context, string) (*models.RideResponse, error) {
	return f.ride, f.err
}

func (f *fakeDispatch) Estimate(context.Context, *models.EstimateRequest) (*models.EstimateResponse, error) {
	return f.estimate, f.err
}

func (f *fakeDispatch) UpdateStatus(_ context.Context, _ string, req *models.UpdateRideStatusRequest) (*models.RideResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.ride, nil
}

func (f *fakeDispatch) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDispatch) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeDispatch) lastUpdate() *models.UpdateRideStatusRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

type recordedLocation struct {
	driverID string
	req      models.UpdateDriverLocationRequest
}

type fakeDrivers struct {
	service.DriverService

	mu        sync.Mutex
	nearby    []*models.DriverWithDistance
	radius    float64
	driver    *models.Driver
	locations []recordedLocation
	err       error
}

func (f *fakeDrivers) ListAvailable(_ context.Context, _, _, radiusKm float64) ([]*models.DriverWithDistance, error) {
	f.radius = radiusKm
	return f.nearby, f.err
}

func (f *fakeDrivers) SetStatus(_ context.Context, _ string, status string) (*models.Driver, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := *f.driver
	d.Status = status
	return &d, nil
}

func (f *fakeDrivers) GetDriver(context.Context, string) (*models.DriverResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.driver.ToResponse(), nil
}

func (f *fakeDrivers) RecordLocation(_ context.Context, driverID string, req *models.UpdateDriverLocationRequest) (*models.DriverLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.locations = append(f.locations, recordedLocation{driverID: driverID, req: *req})
	return &models.DriverLocation{ID: int64(len(f.locations)), DriverID: driverID, Lat: req.Lat, Lng: req.Lng}, nil
}

func (f *fakeDrivers) LatestLocation(_ context.Context, driverID string) (*models.DriverLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.locations) == 0 {
		return nil, apperrors.NotFound("driver location")
	}
	last := f.locations[len(f.locations)-1]
	return &models.DriverLocation{ID: int64(len(f.locations)), DriverID: driverID, Lat: last.req.Lat, Lng: last.req.Lng}, nil
}

func (f *fakeDrivers) recorded() []recordedLocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedLocation(nil), f.locations...)
}

type fakeGeocoder struct {
	loc *models.Location
	err error
}

func (f *fakeGeocoder) Geocode(context.Context, string) (*models.Location, error) {
	return f.loc, f.err
}

func (f *fakeGeocoder) Reverse(context.Context, float64, float64) (*models.Location, error) {
	return f.loc, f.err
}
