package booking_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-bookings/internal/booking"
	"ms-bookings/internal/logger"
	"ms-bookings/internal/models"
)

// Mock implementations

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockDBLayer) GetPropertyBySlug(ctx context.Context, slug string) (*models.Property, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockDBLayer) GetRateRules(ctx context.Context, propertyID string) ([]models.RateRule, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RateRule), args.Error(1)
}

func (m *MockDBLayer) GetPaidReservations(ctx context.Context, propertyID string) ([]models.Reservation, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockDBLayer) GetExternalBlocks(ctx context.Context, propertyID string) ([]models.ExternalBlock, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExternalBlock), args.Error(1)
}

func (m *MockDBLayer) CreateHold(ctx context.Context, res models.Reservation, staleBefore time.Time) error {
	args := m.Called(ctx, res, staleBefore)
	return args.Error(0)
}

func (m *MockDBLayer) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockDBLayer) GetReservationBySession(ctx context.Context, sessionID string) (*models.Reservation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockDBLayer) SetPaymentSession(ctx context.Context, reservationID, sessionID string) error {
	args := m.Called(ctx, reservationID, sessionID)
	return args.Error(0)
}

func (m *MockDBLayer) MarkPaid(ctx context.Context, reservationID string) (bool, error) {
	args := m.Called(ctx, reservationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) DeleteReservation(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDBLayer) ExpireStaleHolds(ctx context.Context, staleBefore time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type MockHoldLock struct {
	mock.Mock
}

func (m *MockHoldLock) LockProperty(propertyID, token string) (bool, error) {
	args := m.Called(propertyID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldLock) UnlockProperty(propertyID, token string) error {
	args := m.Called(propertyID, token)
	return args.Error(0)
}

func (m *MockHoldLock) TrackHold(reservationID string, ttl time.Duration) error {
	args := m.Called(reservationID, ttl)
	return args.Error(0)
}

func (m *MockHoldLock) DropHold(reservationID string) error {
	args := m.Called(reservationID)
	return args.Error(0)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) CreateCheckoutSession(ctx context.Context, res *models.Reservation, property *models.Property) (string, string, error) {
	args := m.Called(ctx, res, property)
	return args.String(0), args.String(1), args.Error(2)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBookingCreated(res models.Reservation) error {
	args := m.Called(res)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBookingConfirmed(res models.Reservation) error {
	args := m.Called(res)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBookingExpired(res models.Reservation) error {
	args := m.Called(res)
	return args.Error(0)
}

func newTestService(db *MockDBLayer, lock *MockHoldLock, payment *MockPaymentProvider, events *MockEventPublisher) *booking.BookingService {
	return booking.NewBookingService(db, lock, payment, events, 30*time.Minute, &logger.Logger{})
}

func validBookingRequest() models.BookingRequest {
	return models.BookingRequest{
		PropertyID: "prop-1",
		CheckIn:    "2025-11-20",
		CheckOut:   "2025-11-23",
		Guests:     2,
		GuestName:  "Jamie Rivera",
		GuestEmail: "jamie@example.com",
	}
}

func TestPlaceHold_HappyPath(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	payment := new(MockPaymentProvider)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, payment, events)

	db.On("GetPropertyByID", mock.Anything, "prop-1").Return(testProperty(), nil)
	db.On("GetRateRules", mock.Anything, "prop-1").Return([]models.RateRule{}, nil)
	lock.On("LockProperty", "prop-1", mock.AnythingOfType("string")).Return(true, nil)
	lock.On("UnlockProperty", "prop-1", mock.AnythingOfType("string")).Return(nil)
	db.On("CreateHold", mock.Anything, mock.AnythingOfType("models.Reservation"), mock.AnythingOfType("time.Time")).Return(nil)
	payment.On("CreateCheckoutSession", mock.Anything, mock.AnythingOfType("*models.Reservation"), testProperty()).
		Return("cs_test_123", "https://checkout.example.com/cs_test_123", nil)
	db.On("SetPaymentSession", mock.Anything, mock.AnythingOfType("string"), "cs_test_123").Return(nil)
	lock.On("TrackHold", mock.AnythingOfType("string"), 30*time.Minute).Return(nil)
	events.On("PublishBookingCreated", mock.AnythingOfType("models.Reservation")).Return(nil)

	resp, err := svc.PlaceHold(context.Background(), validBookingRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ReservationID)
	assert.Equal(t, "prop-1", resp.PropertyID)
	assert.Equal(t, 600.0, resp.Total)
	assert.Equal(t, "https://checkout.example.com/cs_test_123", resp.PaymentURL)

	db.AssertExpectations(t)
	lock.AssertExpectations(t)
	payment.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestPlaceHold_PropertyLockBusy(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	payment := new(MockPaymentProvider)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, payment, events)

	db.On("GetPropertyByID", mock.Anything, "prop-1").Return(testProperty(), nil)
	db.On("GetRateRules", mock.Anything, "prop-1").Return([]models.RateRule{}, nil)
	lock.On("LockProperty", "prop-1", mock.AnythingOfType("string")).Return(false, nil)

	_, err := svc.PlaceHold(context.Background(), validBookingRequest())
	var conflictErr *booking.ConcurrencyConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "prop-1", conflictErr.PropertyID)

	db.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything, mock.Anything)
	payment.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceHold_DateConflictReleasesLock(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	payment := new(MockPaymentProvider)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, payment, events)

	conflict := &booking.DateRangeUnavailableError{Conflict: models.CalendarRange{
		Start: date("2025-11-21"),
		End:   date("2025-11-22"),
		Kind:  models.RangeKindReservation,
		Label: models.RangeLabelBooked,
	}}

	db.On("GetPropertyByID", mock.Anything, "prop-1").Return(testProperty(), nil)
	db.On("GetRateRules", mock.Anything, "prop-1").Return([]models.RateRule{}, nil)
	lock.On("LockProperty", "prop-1", mock.AnythingOfType("string")).Return(true, nil)
	lock.On("UnlockProperty", "prop-1", mock.AnythingOfType("string")).Return(nil)
	db.On("CreateHold", mock.Anything, mock.Anything, mock.Anything).Return(conflict)

	_, err := svc.PlaceHold(context.Background(), validBookingRequest())
	var unavailableErr *booking.DateRangeUnavailableError
	require.ErrorAs(t, err, &unavailableErr)

	lock.AssertCalled(t, "UnlockProperty", "prop-1", mock.AnythingOfType("string"))
	payment.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceHold_PaymentFailureRollsBackHold(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	payment := new(MockPaymentProvider)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, payment, events)

	db.On("GetPropertyByID", mock.Anything, "prop-1").Return(testProperty(), nil)
	db.On("GetRateRules", mock.Anything, "prop-1").Return([]models.RateRule{}, nil)
	lock.On("LockProperty", "prop-1", mock.AnythingOfType("string")).Return(true, nil)
	lock.On("UnlockProperty", "prop-1", mock.AnythingOfType("string")).Return(nil)
	db.On("CreateHold", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	payment.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).
		Return("", "", errors.New("stripe unavailable"))
	db.On("DeleteReservation", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.PlaceHold(context.Background(), validBookingRequest())
	require.Error(t, err)

	db.AssertCalled(t, "DeleteReservation", mock.Anything, mock.AnythingOfType("string"))
	events.AssertNotCalled(t, "PublishBookingCreated", mock.Anything)
}

func TestPlaceHold_Validation(t *testing.T) {
	svc := newTestService(new(MockDBLayer), new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	cases := []struct {
		name   string
		mutate func(*models.BookingRequest)
	}{
		{"missing property", func(r *models.BookingRequest) { r.PropertyID = "" }},
		{"missing guest name", func(r *models.BookingRequest) { r.GuestName = " " }},
		{"missing guest email", func(r *models.BookingRequest) { r.GuestEmail = "" }},
		{"zero guests", func(r *models.BookingRequest) { r.Guests = 0 }},
		{"bad check-in", func(r *models.BookingRequest) { r.CheckIn = "20-11-2025" }},
		{"checkout before checkin", func(r *models.BookingRequest) { r.CheckOut = "2025-11-19" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validBookingRequest()
			tc.mutate(&req)
			_, err := svc.PlaceHold(context.Background(), req)
			var validationErr *booking.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestConfirm_MarksPaidAndPublishes(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, new(MockPaymentProvider), events)

	res := &models.Reservation{
		ID:               "res-1",
		PropertyID:       "prop-1",
		Status:           models.ReservationPending,
		PaymentSessionID: "cs_test_123",
	}

	db.On("GetReservationBySession", mock.Anything, "cs_test_123").Return(res, nil)
	db.On("MarkPaid", mock.Anything, "res-1").Return(true, nil)
	lock.On("DropHold", "res-1").Return(nil)
	events.On("PublishBookingConfirmed", mock.MatchedBy(func(r models.Reservation) bool {
		return r.ID == "res-1" && r.Status == models.ReservationPaid
	})).Return(nil)

	err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)

	db.AssertExpectations(t)
	lock.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestConfirm_AlreadyPaidIsNoOp(t *testing.T) {
	db := new(MockDBLayer)
	events := new(MockEventPublisher)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), events)

	res := &models.Reservation{ID: "res-1", Status: models.ReservationPaid}
	db.On("GetReservationBySession", mock.Anything, "cs_test_123").Return(res, nil)

	err := svc.Confirm(context.Background(), "cs_test_123")
	require.NoError(t, err)

	db.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishBookingConfirmed", mock.Anything)
}

func TestConfirm_ExpiredHoldNotResurrected(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	// The row still existed when looked up but the expiry sweep deleted it
	// before MarkPaid ran.
	res := &models.Reservation{ID: "res-1", Status: models.ReservationPending}
	db.On("GetReservationBySession", mock.Anything, "cs_test_123").Return(res, nil)
	db.On("MarkPaid", mock.Anything, "res-1").Return(false, nil)

	err := svc.Confirm(context.Background(), "cs_test_123")
	var notFoundErr *booking.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestConfirm_UnknownSession(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	db.On("GetReservationBySession", mock.Anything, "cs_missing").Return(nil, sql.ErrNoRows)

	err := svc.Confirm(context.Background(), "cs_missing")
	var notFoundErr *booking.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestExpireStale_PublishesPerHold(t *testing.T) {
	db := new(MockDBLayer)
	lock := new(MockHoldLock)
	events := new(MockEventPublisher)
	svc := newTestService(db, lock, new(MockPaymentProvider), events)

	stale := []models.Reservation{
		{ID: "res-1", Status: models.ReservationPending},
		{ID: "res-2", Status: models.ReservationPending},
	}
	db.On("ExpireStaleHolds", mock.Anything, mock.AnythingOfType("time.Time")).Return(stale, nil)
	lock.On("DropHold", "res-1").Return(nil)
	lock.On("DropHold", "res-2").Return(nil)
	events.On("PublishBookingExpired", mock.AnythingOfType("models.Reservation")).Return(nil).Twice()

	count, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events.AssertExpectations(t)
}

func TestExpireHold_PaidReservationUntouched(t *testing.T) {
	db := new(MockDBLayer)
	events := new(MockEventPublisher)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), events)

	res := &models.Reservation{ID: "res-1", Status: models.ReservationPaid}
	db.On("GetReservationByID", mock.Anything, "res-1").Return(res, nil)

	err := svc.ExpireHold(context.Background(), "res-1")
	require.NoError(t, err)

	db.AssertNotCalled(t, "DeleteReservation", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "PublishBookingExpired", mock.Anything)
}

func TestExpireHold_MissingReservationIgnored(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	db.On("GetReservationByID", mock.Anything, "res-gone").Return(nil, sql.ErrNoRows)

	err := svc.ExpireHold(context.Background(), "res-gone")
	assert.NoError(t, err)
}

func TestQuote_PropertyNotFound(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	db.On("GetPropertyByID", mock.Anything, "nope").Return(nil, sql.ErrNoRows)

	_, err := svc.Quote(context.Background(), models.QuoteRequest{
		PropertyID: "nope",
		CheckIn:    "2025-11-20",
		CheckOut:   "2025-11-22",
	})
	var notFoundErr *booking.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestAvailability_AggregatesStoreData(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockHoldLock), new(MockPaymentProvider), new(MockEventPublisher))

	property := testProperty()
	db.On("GetPropertyBySlug", mock.Anything, "lakeside-cabin").Return(property, nil)
	db.On("GetPaidReservations", mock.Anything, "prop-1").Return([]models.Reservation{
		{ID: "res-1", CheckIn: date("2025-10-25"), CheckOut: date("2025-10-28")},
	}, nil)
	db.On("GetExternalBlocks", mock.Anything, "prop-1").Return([]models.ExternalBlock{
		{ID: "blk-1", StartDate: date("2025-11-26"), EndDate: date("2025-11-30")},
	}, nil)

	ranges, err := svc.Availability(context.Background(), "lakeside-cabin")
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, date("2025-10-27"), ranges[0].End)
	assert.Equal(t, models.RangeKindExternal, ranges[1].Kind)
}
