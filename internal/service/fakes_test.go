package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore backs the in-memory repositories. Every compare-and-set runs under
// one mutex so concurrent tests see the same atomicity Postgres gives.
type memStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	requests      map[string]*models.RideRequest
	rides         map[string]*models.Ride
	drivers       map[string]*models.Driver
	locations     []*models.RideLocation
	payments      map[string]*models.Payment
	notifications []*models.Notification
	wallet        []*models.WalletTransaction
	promos        map[string]*models.PromoCode
	chat          []*models.ChatMessage
	nextLocation  int64
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*models.User),
		requests: make(map[string]*models.RideRequest),
		rides:    make(map[string]*models.Ride),
		drivers:  make(map[string]*models.Driver),
		payments: make(map[string]*models.Payment),
		promos:   make(map[string]*models.PromoCode),
	}
}

func (m *memStore) addDriver(id string, available bool, lat, lng float64) *models.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := &models.Driver{
		ID:               id,
		Name:             "Driver " + id,
		VehicleType:      models.RideTypeStandard,
		VehicleNumber:    "BA-" + id,
		IsAvailable:      available,
		CurrentLatitude:  &lat,
		CurrentLongitude: &lng,
		Rating:           decimal.NewFromInt(5),
		TotalEarnings:    decimal.Zero,
	}
	m.drivers[id] = d
	return d
}

func (m *memStore) addRequest(req *models.RideRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	m.requests[req.ID] = req
}

func (m *memStore) addRide(ride *models.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	m.rides[ride.ID] = ride
}

func (m *memStore) driver(id string) models.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.drivers[id]
}

func (m *memStore) request(id string) models.RideRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

func (m *memStore) rideCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rides)
}

func (m *memStore) freeDriver(id string) {
	if d, ok := m.drivers[id]; ok {
		d.IsAvailable = true
	}
}

// rideRepo implements repository.RideRepository.
type rideRepo struct{ *memStore }

func (r rideRepo) GetByID(_ context.Context, id string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[id]
	if !ok {
		return nil, nil
	}
	cp := *ride
	return &cp, nil
}

func (r rideRepo) ListForActor(_ context.Context, actor models.Actor, limit int) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Ride{}
	for _, ride := range r.rides {
		if actor.IsAdmin() || ride.IsParticipant(actor.UserID) {
			cp := *ride
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r rideRepo) GetActiveByDriverID(_ context.Context, driverID string) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ride := range r.rides {
		if ride.IsAssignedTo(driverID) &&
			(ride.Status == models.RideStatusAccepted || ride.Status == models.RideStatusInProgress) {
			cp := *ride
			return &cp, nil
		}
	}
	return nil, nil
}

func (r rideRepo) CountActiveSince(_ context.Context, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ride := range r.rides {
		if (ride.Status == models.RideStatusAccepted || ride.Status == models.RideStatusInProgress) &&
			!ride.RequestedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r rideRepo) AcceptRequest(_ context.Context, requestID, driverID string, now time.Time) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[requestID]
	if !ok || req.Status != models.RequestStatusPending || !now.Before(req.ExpiresAt) {
		return nil, apperrors.ErrRideNotPending
	}
	d, ok := r.drivers[driverID]
	if !ok || !d.IsAvailable {
		return nil, apperrors.ErrDriverUnavailable
	}

	req.Status = models.RequestStatusAccepted
	d.IsAvailable = false

	ride := models.NewRideFromRequest(req, driverID, now)
	ride.ID = uuid.New().String()
	r.rides[ride.ID] = ride

	cp := *ride
	return &cp, nil
}

func (r rideRepo) Start(_ context.Context, rideID, driverID string, now time.Time) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || !ride.IsAssignedTo(driverID) || ride.Status != models.RideStatusAccepted {
		return nil, nil
	}
	ride.Status = models.RideStatusInProgress
	ride.StartedAt = &now
	ride.UpdatedAt = now
	cp := *ride
	return &cp, nil
}

func (r rideRepo) Complete(_ context.Context, rideID, driverID string, fare, distance decimal.NullDecimal, now time.Time) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || !ride.IsAssignedTo(driverID) || ride.Status != models.RideStatusInProgress {
		return nil, nil
	}
	ride.Status = models.RideStatusCompleted
	ride.CompletedAt = &now
	ride.UpdatedAt = now
	if fare.Valid {
		ride.Fare = fare.Decimal
	}
	if distance.Valid {
		ride.Distance = distance.Decimal
	}
	if d, ok := r.drivers[driverID]; ok {
		d.IsAvailable = true
		d.TotalRides++
	}
	cp := *ride
	return &cp, nil
}

func (r rideRepo) Cancel(_ context.Context, rideID, reason string, now time.Time) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || !ride.IsActive() {
		return nil, nil
	}
	ride.Status = models.RideStatusCancelled
	ride.CancelledAt = &now
	ride.UpdatedAt = now
	if reason != "" {
		ride.CancellationReason = &reason
	}
	if ride.DriverID != nil {
		r.freeDriver(*ride.DriverID)
	}
	cp := *ride
	return &cp, nil
}

func (r rideRepo) Rate(_ context.Context, rideID string, role models.Role, raterID string, score int, comment string, now time.Time) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ride, ok := r.rides[rideID]
	if !ok || ride.Status != models.RideStatusCompleted {
		return nil, nil
	}
	switch role {
	case models.RoleRider:
		if ride.RiderID != raterID || ride.RatingByRider != nil {
			return nil, nil
		}
		ride.RatingByRider = &score
		ride.RiderNotes = &comment
	case models.RoleDriver:
		if !ride.IsAssignedTo(raterID) || ride.RatingByDriver != nil {
			return nil, nil
		}
		ride.RatingByDriver = &score
		ride.DriverNotes = &comment
	default:
		return nil, fmt.Errorf("role %q cannot rate rides", role)
	}
	ride.UpdatedAt = now
	cp := *ride
	return &cp, nil
}

// requestRepo implements repository.RideRequestRepository.
type requestRepo struct{ *memStore }

func (r requestRepo) Create(_ context.Context, req *models.RideRequest) error {
	req.Status = models.RequestStatusPending
	r.addRequest(req)
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*models.RideRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r requestRepo) Cancel(_ context.Context, id, riderID string) (*models.RideRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.RiderID != riderID || req.Status != models.RequestStatusPending {
		return nil, nil
	}
	req.Status = models.RequestStatusCancelled
	cp := *req
	return &cp, nil
}

func (r requestRepo) MarkExpired(_ context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok && req.Status == models.RequestStatusPending && !now.Before(req.ExpiresAt) {
		req.Status = models.RequestStatusExpired
	}
	return nil
}

func (r requestRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.Status == models.RequestStatusPending && !now.Before(req.ExpiresAt) {
			req.Status = models.RequestStatusExpired
			n++
		}
	}
	return n, nil
}

// locationRepo implements repository.RideLocationRepository.
type locationRepo struct{ *memStore }

func (r locationRepo) Create(_ context.Context, loc *models.RideLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextLocation++
	loc.ID = r.nextLocation
	cp := *loc
	r.locations = append(r.locations, &cp)
	return nil
}

func (r locationRepo) ListByRide(_ context.Context, rideID string, limit int) ([]*models.RideLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.RideLocation{}
	for i := len(r.locations) - 1; i >= 0 && len(out) < limit; i-- {
		if r.locations[i].RideID == rideID {
			cp := *r.locations[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// driverRepo implements repository.DriverRepository.
type driverRepo struct{ *memStore }

func (r driverRepo) Create(_ context.Context, d *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drivers[d.ID] = &cp
	return nil
}

func (r driverRepo) GetByID(_ context.Context, id string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r driverRepo) GetByLicense(_ context.Context, license string) (*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drivers {
		if d.LicenseNumber == license {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r driverRepo) UpdateLocation(_ context.Context, id string, lat, lng float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drivers[id]; ok {
		d.CurrentLatitude = &lat
		d.CurrentLongitude = &lng
		d.LastLocationUpdate = &at
	}
	return nil
}

func (r driverRepo) SetAvailability(_ context.Context, id string, available bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drivers[id]
	if !ok {
		return false, nil
	}
	if available {
		for _, ride := range r.rides {
			if ride.IsAssignedTo(id) &&
				(ride.Status == models.RideStatusAccepted || ride.Status == models.RideStatusInProgress) {
				return false, nil
			}
		}
	}
	d.IsAvailable = available
	return true, nil
}

func (r driverRepo) ListAvailableWithLocation(_ context.Context) ([]*models.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Driver
	for _, d := range r.drivers {
		if d.IsAvailable && d.HasLocation() {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// userRepo implements repository.UserRepository.
type userRepo struct{ *memStore }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.IsActive = true
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// paymentRepo implements repository.PaymentRepository.
type paymentRepo struct{ *memStore }

func (r paymentRepo) Settle(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.RideID == p.RideID {
			return apperrors.ErrConflict
		}
	}
	if p.Method == models.PaymentMethodWallet {
		u, ok := r.users[p.RiderID]
		if !ok || u.WalletBalance.LessThan(p.Amount) {
			return apperrors.ErrInsufficientFunds
		}
		u.WalletBalance = u.WalletBalance.Sub(p.Amount)
		p.Outcome = models.Outcome{PaymentOutcome: models.WalletOutcome{BalanceAfter: u.WalletBalance}}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Status = models.PaymentStatusCompleted
	if p.DriverID != nil {
		if d, ok := r.drivers[*p.DriverID]; ok {
			d.TotalEarnings = d.TotalEarnings.Add(p.Amount)
		}
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r paymentRepo) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r paymentRepo) GetByRideID(_ context.Context, rideID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.RideID == rideID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// notificationRepo implements repository.NotificationRepository.
type notificationRepo struct{ *memStore }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	cp := *n
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r notificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Notification{}
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if r.notifications[i].UserID == userID {
			cp := *r.notifications[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r notificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.notifications {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (r notificationRepo) MarkRead(_ context.Context, userID string, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, item := range r.notifications {
		if item.UserID == userID && want[item.ID] && !item.IsRead {
			item.IsRead = true
			n++
		}
	}
	return n, nil
}

// walletRepo implements repository.WalletRepository.
type walletRepo struct{ *memStore }

func (r walletRepo) TopUp(_ context.Context, userID string, amount decimal.Decimal, method string) (*models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || !u.IsActive {
		return nil, nil
	}
	u.WalletBalance = u.WalletBalance.Add(amount)
	entry := &models.WalletTransaction{
		ID:           uuid.New().String(),
		UserID:       userID,
		Type:         models.WalletCredit,
		Amount:       amount,
		BalanceAfter: u.WalletBalance,
		Reference:    method,
	}
	r.wallet = append(r.wallet, entry)
	return entry, nil
}

func (r walletRepo) ListTransactions(_ context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.WalletTransaction{}
	for i := len(r.wallet) - 1; i >= 0 && len(out) < limit; i-- {
		if r.wallet[i].UserID == userID {
			out = append(out, r.wallet[i])
		}
	}
	return out, nil
}

// promoRepo implements repository.PromoRepository.
type promoRepo struct{ *memStore }

func (r promoRepo) ListActive(_ context.Context, now time.Time) ([]*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.PromoCode{}
	for _, p := range r.promos {
		if p.Usable(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r promoRepo) GetByCode(_ context.Context, code string) (*models.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.promos[code], nil
}

// chatRepo implements repository.ChatRepository.
type chatRepo struct{ *memStore }

func (r chatRepo) Create(_ context.Context, msg *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	cp := *msg
	r.chat = append(r.chat, &cp)
	return nil
}

func (r chatRepo) ListByRide(_ context.Context, rideID string, limit int) ([]*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.ChatMessage
	for _, m := range r.chat {
		if m.RideID == rideID {
			matched = append(matched, m)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return append([]*models.ChatMessage{}, matched...), nil
}

// recordingNotifier captures ride offers, status changes and payments.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
	payments []string
	offered  map[string][]string
}

func (n *recordingNotifier) RideRequested(_ context.Context, req *models.RideRequest, driverIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offered == nil {
		n.offered = make(map[string][]string)
	}
	n.offered[req.ID] = append([]string(nil), driverIDs...)
}

func (n *recordingNotifier) offersFor(requestID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.offered[requestID]
}

func (n *recordingNotifier) RideStatusChanged(_ context.Context, ride *models.Ride) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, ride.Status)
}

func (n *recordingNotifier) PaymentCompleted(_ context.Context, p *models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, p.ID)
}

func (n *recordingNotifier) List(context.Context, models.Actor, int) (*models.NotificationListResponse, error) {
	return &models.NotificationListResponse{Notifications: []*models.Notification{}}, nil
}

func (n *recordingNotifier) MarkRead(context.Context, models.Actor, []string) (int64, error) {
	return 0, nil
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.statuses...)
}
