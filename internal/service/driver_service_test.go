package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aditya/ridequote/internal/cache"
	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/logging"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/aditya/ridequote/internal/repository"
)

func onlineDriver(id string, lat, lng, rating float64) *models.Driver {
	return &models.Driver{
		ID:         id,
		PartnerID:  "p1",
		Status:     models.DriverStatusOnline,
		Rating:     rating,
		IsVerified: true,
		CurrentLat: floatPtr(lat),
		CurrentLng: floatPtr(lng),
	}
}

func TestRankCandidates(t *testing.T) {
	drivers := []*models.DriverWithDistance{
		{Driver: &models.Driver{ID: "c", Rating: 4.0}, Distance: 1.2},
		{Driver: &models.Driver{ID: "b", Rating: 4.8}, Distance: 1.2},
		{Driver: &models.Driver{ID: "a", Rating: 4.8}, Distance: 1.2},
		{Driver: &models.Driver{ID: "z", Rating: 3.0}, Distance: 0.4},
	}
	rankCandidates(drivers)

	want := []string{"z", "a", "b", "c"}
	for i, id := range want {
		if drivers[i].Driver.ID != id {
			t.Errorf("position %d = %s, want %s", i, drivers[i].Driver.ID, id)
		}
	}
}

func TestListAvailableConfirmsCacheAgainstDatabase(t *testing.T) {
	// Trafalgar Square
	lat, lng := 51.5080, -0.1281

	near := onlineDriver("near", 51.5090, -0.1290, 4.5)
	far := onlineDriver("far", 51.6000, -0.1281, 4.9)
	busy := onlineDriver("busy", 51.5081, -0.1282, 5.0)
	busy.Status = models.DriverStatusBusy

	repo := &fakeDriverRepo{byID: map[string]*models.Driver{"near": near, "far": far, "busy": busy}}
	driverCache := newFakeDriverCache()
	driverCache.nearby = []cache.DriverWithDistance{
		{DriverID: "busy", Distance: 0.01},
		{DriverID: "near", Distance: 0.1},
		{DriverID: "far", Distance: 9.9},
		{DriverID: "ghost", Distance: 0.2},
	}

	svc := NewDriverService(DriverServiceDeps{DriverRepo: repo, DriverCache: driverCache, Logger: logging.Discard()})

	got, err := svc.ListAvailable(context.Background(), lat, lng, 5)
	if err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}
	if len(got) != 1 || got[0].Driver.ID != "near" {
		ids := make([]string, 0, len(got))
		for _, d := range got {
			ids = append(ids, d.Driver.ID)
		}
		t.Fatalf("ListAvailable() = %v, want [near]", ids)
	}
	if got[0].Distance <= 0 || got[0].Distance > 1 {
		t.Errorf("distance = %v", got[0].Distance)
	}
	if repo.boxUsed {
		t.Error("database fallback used although the cache produced a match")
	}
}

func TestListAvailableFallsBackToDatabase(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *fakeDriverCache)
		nilc  bool
	}{
		{"cache error", func(c *fakeDriverCache) { c.nearbyErr = errors.New("connection refused") }, false},
		{"cache empty", func(c *fakeDriverCache) {}, false},
		{"no cache", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeDriverRepo{inBox: []*models.Driver{
				onlineDriver("d2", 51.5100, -0.1300, 4.0),
				onlineDriver("d1", 51.5081, -0.1282, 4.0),
			}}
			deps := DriverServiceDeps{DriverRepo: repo, Logger: logging.Discard()}
			if !tt.nilc {
				c := newFakeDriverCache()
				tt.setup(c)
				deps.DriverCache = c
			}
			svc := NewDriverService(deps)

			got, err := svc.ListAvailable(context.Background(), 51.5080, -0.1281, 3)
			if err != nil {
				t.Fatalf("ListAvailable() error = %v", err)
			}
			if !repo.boxUsed {
				t.Fatal("bounding box query not used")
			}
			if len(got) != 2 || got[0].Driver.ID != "d1" {
				t.Errorf("unexpected ranking: %+v", got)
			}
		})
	}
}

func TestListAvailableRejectsBadRadius(t *testing.T) {
	svc := NewDriverService(DriverServiceDeps{DriverRepo: &fakeDriverRepo{}})
	if _, err := svc.ListAvailable(context.Background(), 0, 0, 0); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("error = %v, want invalid argument", err)
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	box := boundingBox(51.5, -0.12, 10)
	if box.MinLat >= 51.5 || box.MaxLat <= 51.5 || box.MinLng >= -0.12 || box.MaxLng <= -0.12 {
		t.Fatalf("box does not contain center: %+v", box)
	}
	// a point 9.9 km due north must fall inside
	if north := 51.5 + 9.9/111.32; north > box.MaxLat {
		t.Errorf("point at 9.9 km outside box: %v > %v", north, box.MaxLat)
	}
}

func newSQLDriverService(t *testing.T) (DriverService, sqlmock.Sqlmock, *fakeDriverCache, *recordingStream, *recordingPublisher) {
	t.Helper()
	db, mock := newMockDB(t)
	driverCache := newFakeDriverCache()
	stream := &recordingStream{}
	events := &recordingPublisher{}
	svc := NewDriverService(DriverServiceDeps{
		DB:           db,
		DriverRepo:   repository.NewDriverRepository(db),
		RideRepo:     repository.NewRideRepository(db),
		VehicleRepo:  repository.NewVehicleRepository(db),
		LocationRepo: repository.NewLocationRepository(db),
		DriverCache:  driverCache,
		Stream:       stream,
		Events:       events,
		Logger:       logging.Discard(),
	})
	return svc, mock, driverCache, stream, events
}

var (
	driverForUpdate = regexp.QuoteMeta("SELECT * FROM drivers WHERE id = $1 FOR UPDATE")
	activeRide      = `SELECT \* FROM ride_requests\s+WHERE driver_id = \$1 AND status = ANY\(\$2\)`
	setStatus       = regexp.QuoteMeta("UPDATE drivers SET status = $1, updated_at = $2 WHERE id = $3")
	updateLocation  = `UPDATE drivers\s+SET current_lat = \$1, current_lng = \$2`
	appendLocation  = `INSERT INTO driver_locations`
)

func driverRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "partner_id", "name", "status", "rating", "is_verified"}).
		AddRow("d1", "p1", "Asha", status, 4.9, true)
}

func TestSetStatusGoesOnline(t *testing.T) {
	svc, mock, driverCache, _, events := newSQLDriverService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(driverForUpdate).WithArgs("d1").WillReturnRows(driverRow(models.DriverStatusOffline))
	mock.ExpectExec(setStatus).
		WithArgs(models.DriverStatusOnline, sqlmock.AnyArg(), "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	driver, err := svc.SetStatus(context.Background(), "d1", models.DriverStatusOnline)
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if driver.Status != models.DriverStatusOnline {
		t.Errorf("status = %q", driver.Status)
	}
	if driverCache.statuses["d1"] != models.DriverStatusOnline {
		t.Errorf("cached status = %q", driverCache.statuses["d1"])
	}
	e, ok := events.last()
	if !ok || e.Type != realtime.EventDriverStatusUpdate || e.DriverID != "d1" {
		t.Errorf("event = %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatusKeepsBoundDriverBusy(t *testing.T) {
	svc, mock, _, _, _ := newSQLDriverService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(driverForUpdate).WithArgs("d1").WillReturnRows(driverRow(models.DriverStatusBusy))
	mock.ExpectQuery(activeRide).WithArgs("d1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "driver_id"}).AddRow("r1", models.RideStatusAccepted, "d1"))
	mock.ExpectRollback()

	_, err := svc.SetStatus(context.Background(), "d1", models.DriverStatusOnline)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetStatusValidation(t *testing.T) {
	tests := []struct {
		name   string
		status string
		setup  func(mock sqlmock.Sqlmock)
		want   error
	}{
		{"unknown status", "sleeping", func(sqlmock.Sqlmock) {}, apperrors.ErrInvalidArgument},
		{
			name:   "unknown driver",
			status: models.DriverStatusOnline,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(driverForUpdate).WithArgs("d1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectRollback()
			},
			want: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _, _, _ := newSQLDriverService(t)
			tt.setup(mock)

			_, err := svc.SetStatus(context.Background(), "d1", tt.status)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRecordLocationFansOut(t *testing.T) {
	svc, mock, driverCache, stream, events := newSQLDriverService(t)
	driverCache.activeRide["d1"] = "r1"

	mock.ExpectBegin()
	mock.ExpectQuery(updateLocation).
		WithArgs(51.5081, -0.1282, sqlmock.AnyArg(), "d1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.DriverStatusBusy))
	mock.ExpectQuery(appendLocation).
		WithArgs("d1", 51.5081, -0.1282, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	loc, err := svc.RecordLocation(context.Background(), "d1", &models.UpdateDriverLocationRequest{
		Lat: 51.5081, Lng: -0.1282, Heading: floatPtr(90),
	})
	if err != nil {
		t.Fatalf("RecordLocation() error = %v", err)
	}
	if loc.ID != 42 {
		t.Errorf("location id = %d, want 42", loc.ID)
	}
	if !driverCache.located["d1"] {
		t.Error("busy driver position not cached")
	}
	if len(stream.published) != 1 || stream.published[0].DriverID != "d1" {
		t.Errorf("stream = %+v", stream.published)
	}
	e, ok := events.last()
	if !ok || e.Type != realtime.EventLocationUpdate || e.RideID != "r1" || e.Lat == nil || *e.Lat != 51.5081 {
		t.Errorf("event = %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordLocationUnknownDriver(t *testing.T) {
	svc, mock, _, stream, events := newSQLDriverService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(updateLocation).WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := svc.RecordLocation(context.Background(), "nobody", &models.UpdateDriverLocationRequest{Lat: 1, Lng: 1})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	if len(stream.published) != 0 || len(events.events) != 0 {
		t.Error("nothing should be fanned out for an unknown driver")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWarmCacheIndexesPositionedDrivers(t *testing.T) {
	db, mock := newMockDB(t)
	driverCache := newFakeDriverCache()
	svc := NewDriverService(DriverServiceDeps{
		DB:          db,
		DriverRepo:  repository.NewDriverRepository(db),
		DriverCache: driverCache,
		Logger:      logging.Discard(),
	})

	mock.ExpectQuery(`SELECT \* FROM drivers\s+WHERE status = \$1 AND current_lat IS NOT NULL`).
		WithArgs(models.DriverStatusOnline).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "current_lat", "current_lng"}).
			AddRow("d1", "online", 51.5, -0.12).
			AddRow("d2", "online", 51.6, -0.10))

	n, err := svc.WarmCache(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("WarmCache() = %d, %v", n, err)
	}
	if !driverCache.located["d1"] || driverCache.statuses["d2"] != models.DriverStatusOnline {
		t.Errorf("cache = %+v %+v", driverCache.located, driverCache.statuses)
	}
}
