package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"servicehub/internal/domain"
	"servicehub/internal/events"
	"servicehub/internal/models"
)

// Fake keeps every collection in maps and publishes changes to its own hub.
// Fail makes every following call return the given error until Fail(nil).
type Fake struct {
	mu  sync.Mutex
	err error
	hub *events.Hub
	now func() time.Time

	accounts      map[string]models.Account
	listings      map[string]models.Listing
	windows       map[string][]models.AvailabilityWindow
	blocked       map[string]map[string]models.BlockedDate
	bookings      map[string]models.Booking
	codes         map[string]models.VerificationCode
	reviews       map[string]models.Review
	messages      []models.Message
	notifications map[string]models.Notification
	order         map[string]int
	seq           int
}

var _ domain.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		hub:           events.NewHub(events.DefaultBuffer, nil),
		now:           time.Now,
		accounts:      make(map[string]models.Account),
		listings:      make(map[string]models.Listing),
		windows:       make(map[string][]models.AvailabilityWindow),
		blocked:       make(map[string]map[string]models.BlockedDate),
		bookings:      make(map[string]models.Booking),
		codes:         make(map[string]models.VerificationCode),
		reviews:       make(map[string]models.Review),
		notifications: make(map[string]models.Notification),
		order:         make(map[string]int),
	}
}

// Fail injects err into every subsequent call. Pass nil to heal.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// SetClock overrides the clock used for created/updated timestamps.
func (f *Fake) SetClock(now func() time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *Fake) Hub() *events.Hub { return f.hub }

// Notifications returns every stored notification in insert order.
func (f *Fake) Notifications() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Notification, 0, len(f.notifications))
	for _, n := range f.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return f.order[out[i].ID] < f.order[out[j].ID] })
	return out
}

func (f *Fake) failure(op string) error {
	if f.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrGatewayFailure, op, f.err)
}

func (f *Fake) nextSeq(key string) {
	f.seq++
	f.order[key] = f.seq
}

func (f *Fake) publish(collection string, typ events.ChangeType, key string, fields map[string]string, record any) {
	change, err := events.NewChange(collection, typ, key, fields, record)
	if err != nil {
		return
	}
	f.hub.Publish(change)
}

func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure("ping")
}

func (f *Fake) Subscribe(collection string, match map[string]string, types ...events.ChangeType) *events.Subscription {
	return f.hub.Subscribe(collection, match, types...)
}

// Accounts

func (f *Fake) GetAccount(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get account"); err != nil {
		return nil, err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (f *Fake) UpsertAccount(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	if err := f.failure("upsert account"); err != nil {
		f.mu.Unlock()
		return err
	}
	now := f.now().UTC()
	typ := events.ChangeUpdate
	if existing, ok := f.accounts[account.ID]; ok {
		account.CreatedAt = existing.CreatedAt
	} else {
		typ = events.ChangeInsert
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	f.accounts[account.ID] = *account
	f.mu.Unlock()

	f.publish(events.CollectionAccounts, typ, account.ID, map[string]string{"id": account.ID}, account)
	return nil
}

// Listings

func (f *Fake) GetListing(_ context.Context, id string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get listing"); err != nil {
		return nil, err
	}
	l, ok := f.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (f *Fake) CreateListing(_ context.Context, listing *models.Listing) error {
	f.mu.Lock()
	if err := f.failure("create listing"); err != nil {
		f.mu.Unlock()
		return err
	}
	if _, ok := f.listings[listing.ID]; ok {
		f.mu.Unlock()
		return domain.Invalid("listing already exists")
	}
	now := f.now().UTC()
	listing.CreatedAt = now
	listing.UpdatedAt = now
	f.listings[listing.ID] = *listing
	f.nextSeq(listing.ID)
	f.mu.Unlock()

	f.publish(events.CollectionListings, events.ChangeInsert, listing.ID, map[string]string{"id": listing.ID, "provider_id": listing.ProviderID}, listing)
	return nil
}

func (f *Fake) UpdateListing(_ context.Context, listing *models.Listing) error {
	f.mu.Lock()
	if err := f.failure("update listing"); err != nil {
		f.mu.Unlock()
		return err
	}
	existing, ok := f.listings[listing.ID]
	if !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	listing.CreatedAt = existing.CreatedAt
	listing.UpdatedAt = f.now().UTC()
	f.listings[listing.ID] = *listing
	f.mu.Unlock()

	f.publish(events.CollectionListings, events.ChangeUpdate, listing.ID, map[string]string{"id": listing.ID, "provider_id": listing.ProviderID}, listing)
	return nil
}

func (f *Fake) ListListings(_ context.Context, q domain.Query) ([]*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list listings"); err != nil {
		return nil, err
	}
	var out []*models.Listing
	for _, l := range f.listings {
		l := l
		fields := map[string]any{
			"id": l.ID, "provider_id": l.ProviderID, "category": l.Category, "archived": l.Archived,
			"price": l.Price, "title": l.Title, "created_at": l.CreatedAt,
		}
		ok, err := matches(q, fields)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &l)
		}
	}
	return finish(q, out, f.order, func(l *models.Listing) (string, map[string]any) {
		return l.ID, map[string]any{"created_at": l.CreatedAt, "price": l.Price, "title": l.Title}
	})
}

// Availability

func (f *Fake) ReplaceAvailability(_ context.Context, providerID string, windows []models.AvailabilityWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("replace availability"); err != nil {
		return err
	}
	seen := make(map[string]bool, len(windows))
	copied := make([]models.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		key := fmt.Sprintf("%d/%s", w.DayOfWeek, w.Start)
		if seen[key] {
			return domain.Invalid(fmt.Sprintf("duplicate window %s %s", w.DayOfWeek, w.Start))
		}
		seen[key] = true
		w.ProviderID = providerID
		copied = append(copied, w)
	}
	sort.Slice(copied, func(i, j int) bool {
		if copied[i].DayOfWeek != copied[j].DayOfWeek {
			return copied[i].DayOfWeek < copied[j].DayOfWeek
		}
		return copied[i].Start < copied[j].Start
	})
	f.windows[providerID] = copied
	return nil
}

func (f *Fake) ListAvailability(_ context.Context, providerID string) ([]models.AvailabilityWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list availability"); err != nil {
		return nil, err
	}
	return append([]models.AvailabilityWindow(nil), f.windows[providerID]...), nil
}

func (f *Fake) BlockDate(_ context.Context, blocked *models.BlockedDate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("block date"); err != nil {
		return err
	}
	if f.blocked[blocked.ProviderID] == nil {
		f.blocked[blocked.ProviderID] = make(map[string]models.BlockedDate)
	}
	key := blocked.Date.Format(models.DateLayout)
	if existing, ok := f.blocked[blocked.ProviderID][key]; ok {
		blocked.CreatedAt = existing.CreatedAt
	} else if blocked.CreatedAt.IsZero() {
		blocked.CreatedAt = f.now().UTC()
	}
	f.blocked[blocked.ProviderID][key] = *blocked
	return nil
}

func (f *Fake) UnblockDate(_ context.Context, providerID string, date time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("unblock date"); err != nil {
		return err
	}
	key := date.Format(models.DateLayout)
	if _, ok := f.blocked[providerID][key]; !ok {
		return domain.ErrNotFound
	}
	delete(f.blocked[providerID], key)
	return nil
}

func (f *Fake) ListBlockedDates(_ context.Context, providerID string, from, to time.Time) ([]*models.BlockedDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list blocked dates"); err != nil {
		return nil, err
	}
	var out []*models.BlockedDate
	for key, b := range f.blocked[providerID] {
		b := b
		if !from.IsZero() && key < from.Format(models.DateLayout) {
			continue
		}
		if !to.IsZero() && key > to.Format(models.DateLayout) {
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Bookings

func (f *Fake) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get booking"); err != nil {
		return nil, err
	}
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (f *Fake) CreateBooking(_ context.Context, booking *models.Booking) error {
	f.mu.Lock()
	if err := f.failure("create booking"); err != nil {
		f.mu.Unlock()
		return err
	}
	date := booking.Date.Format(models.DateLayout)
	if _, ok := f.blocked[booking.ProviderID][date]; ok {
		f.mu.Unlock()
		return domain.ErrDateBlocked
	}
	for _, b := range f.bookings {
		if b.ProviderID == booking.ProviderID && b.Date.Format(models.DateLayout) == date &&
			b.TimeSlot == booking.TimeSlot && b.Status.Active() {
			f.mu.Unlock()
			return domain.ErrSlotTaken
		}
	}
	now := f.now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	f.bookings[booking.ID] = *booking
	f.nextSeq(booking.ID)
	f.mu.Unlock()

	f.publish(events.CollectionBookings, events.ChangeInsert, booking.ID, bookingFields(booking), booking)
	return nil
}

func (f *Fake) UpdateBookingStatus(_ context.Context, id string, fromVersion int64, status models.BookingStatus) (*models.Booking, error) {
	f.mu.Lock()
	if err := f.failure("update booking status"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	b, ok := f.bookings[id]
	if !ok {
		f.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	if b.Version != fromVersion {
		f.mu.Unlock()
		return nil, domain.ErrConcurrentModification
	}
	b.Status = status
	b.Version++
	b.UpdatedAt = f.now().UTC()
	f.bookings[id] = b
	f.mu.Unlock()

	f.publish(events.CollectionBookings, events.ChangeUpdate, id, bookingFields(&b), b)
	return &b, nil
}

func (f *Fake) UpdateBookingLocation(_ context.Context, id string, role models.Role, loc models.Location) (*models.Booking, error) {
	f.mu.Lock()
	if err := f.failure("update booking location"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	b, ok := f.bookings[id]
	if !ok {
		f.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	switch role {
	case models.RoleCustomer:
		b.CustomerLocation = &loc
	case models.RoleProvider:
		b.ProviderLocation = &loc
	default:
		f.mu.Unlock()
		return nil, domain.Invalid("unknown role")
	}
	b.UpdatedAt = f.now().UTC()
	f.bookings[id] = b
	f.mu.Unlock()

	f.publish(events.CollectionBookings, events.ChangeUpdate, id, bookingFields(&b), b)
	return &b, nil
}

func (f *Fake) ListBookings(_ context.Context, q domain.Query) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list bookings"); err != nil {
		return nil, err
	}
	var out []*models.Booking
	for _, b := range f.bookings {
		b := b
		fields := map[string]any{
			"id": b.ID, "listing_id": b.ListingID, "customer_id": b.CustomerID, "provider_id": b.ProviderID,
			"date": b.Date.Format(models.DateLayout), "time_slot": b.TimeSlot, "status": b.Status,
			"created_at": b.CreatedAt, "updated_at": b.UpdatedAt,
		}
		ok, err := matches(q, fields)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &b)
		}
	}
	return finish(q, out, f.order, func(b *models.Booking) (string, map[string]any) {
		return b.ID, map[string]any{"created_at": b.CreatedAt, "updated_at": b.UpdatedAt, "date": b.Date.Format(models.DateLayout)}
	})
}

func bookingFields(b *models.Booking) map[string]string {
	return map[string]string{
		"id":          b.ID,
		"customer_id": b.CustomerID,
		"provider_id": b.ProviderID,
		"listing_id":  b.ListingID,
		"status":      string(b.Status),
	}
}

// Verification codes

func (f *Fake) GetVerificationCode(_ context.Context, bookingID string) (*models.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get verification code"); err != nil {
		return nil, err
	}
	c, ok := f.codes[bookingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (f *Fake) UpsertVerificationCode(_ context.Context, code *models.VerificationCode) error {
	f.mu.Lock()
	if err := f.failure("upsert verification code"); err != nil {
		f.mu.Unlock()
		return err
	}
	now := f.now().UTC()
	if existing, ok := f.codes[code.BookingID]; ok {
		code.CreatedAt = existing.CreatedAt
	} else if code.CreatedAt.IsZero() {
		code.CreatedAt = now
	}
	code.Verified = false
	code.VerifiedAt = nil
	code.UpdatedAt = now
	f.codes[code.BookingID] = *code
	f.mu.Unlock()

	f.publish(events.CollectionVerificationCodes, events.ChangeUpdate, code.BookingID, map[string]string{"booking_id": code.BookingID}, code)
	return nil
}

func (f *Fake) CompleteWithCode(_ context.Context, bookingID, code string, fromVersion int64, at time.Time) (*models.Booking, error) {
	f.mu.Lock()
	if err := f.failure("complete with code"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	c, ok := f.codes[bookingID]
	switch {
	case !ok:
		f.mu.Unlock()
		return nil, domain.ErrNotFound
	case c.Verified:
		f.mu.Unlock()
		return nil, domain.ErrAlreadyVerified
	case c.Code != code:
		f.mu.Unlock()
		return nil, domain.ErrMismatch
	}
	b, ok := f.bookings[bookingID]
	if !ok || b.Version != fromVersion {
		f.mu.Unlock()
		return nil, domain.ErrConcurrentModification
	}

	now := f.now().UTC()
	c.Verified = true
	verifiedAt := at.UTC()
	c.VerifiedAt = &verifiedAt
	c.UpdatedAt = now
	f.codes[bookingID] = c

	b.Status = models.StatusCompleted
	b.Version++
	b.UpdatedAt = now
	f.bookings[bookingID] = b
	f.mu.Unlock()

	f.publish(events.CollectionVerificationCodes, events.ChangeUpdate, bookingID, map[string]string{"booking_id": bookingID}, c)
	f.publish(events.CollectionBookings, events.ChangeUpdate, bookingID, bookingFields(&b), b)
	return &b, nil
}

// Reviews

func (f *Fake) CreateReview(_ context.Context, review *models.Review) error {
	f.mu.Lock()
	if err := f.failure("create review"); err != nil {
		f.mu.Unlock()
		return err
	}
	for _, r := range f.reviews {
		if r.BookingID == review.BookingID {
			f.mu.Unlock()
			return domain.ErrAlreadyReviewed
		}
	}
	review.CreatedAt = f.now().UTC()
	f.reviews[review.ID] = *review
	f.nextSeq(review.ID)
	f.mu.Unlock()

	f.publish(events.CollectionReviews, events.ChangeInsert, review.ID, reviewFields(review), review)
	return nil
}

func (f *Fake) GetReview(_ context.Context, id string) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("get review"); err != nil {
		return nil, err
	}
	r, ok := f.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (f *Fake) UpdateReviewResponse(_ context.Context, id, response string, at time.Time) (*models.Review, error) {
	f.mu.Lock()
	if err := f.failure("update review response"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	r, ok := f.reviews[id]
	if !ok {
		f.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	r.ProviderResponse = response
	respondedAt := at.UTC()
	r.RespondedAt = &respondedAt
	f.reviews[id] = r
	f.mu.Unlock()

	f.publish(events.CollectionReviews, events.ChangeUpdate, id, reviewFields(&r), r)
	return &r, nil
}

func (f *Fake) ListReviews(_ context.Context, q domain.Query) ([]*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list reviews"); err != nil {
		return nil, err
	}
	var out []*models.Review
	for _, r := range f.reviews {
		r := r
		fields := map[string]any{
			"id": r.ID, "booking_id": r.BookingID, "listing_id": r.ListingID, "provider_id": r.ProviderID,
			"customer_id": r.CustomerID, "rating": r.Rating, "created_at": r.CreatedAt,
		}
		ok, err := matches(q, fields)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &r)
		}
	}
	return finish(q, out, f.order, func(r *models.Review) (string, map[string]any) {
		return r.ID, map[string]any{"created_at": r.CreatedAt, "rating": r.Rating}
	})
}

func (f *Fake) RatingSummaries(_ context.Context, listingIDs []string) (map[string]models.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("rating summaries"); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(listingIDs))
	for _, id := range listingIDs {
		wanted[id] = true
	}
	sums := make(map[string]int)
	out := make(map[string]models.RatingSummary)
	for _, r := range f.reviews {
		if !wanted[r.ListingID] {
			continue
		}
		s := out[r.ListingID]
		s.Count++
		sums[r.ListingID] += r.Rating
		out[r.ListingID] = s
	}
	for id, s := range out {
		s.Average = float64(sums[id]) / float64(s.Count)
		out[id] = s
	}
	return out, nil
}

func reviewFields(r *models.Review) map[string]string {
	return map[string]string{
		"id":          r.ID,
		"booking_id":  r.BookingID,
		"listing_id":  r.ListingID,
		"provider_id": r.ProviderID,
	}
}

// Messages

func (f *Fake) CreateMessage(_ context.Context, msg *models.Message) error {
	f.mu.Lock()
	if err := f.failure("create message"); err != nil {
		f.mu.Unlock()
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = f.now().UTC()
	}
	f.messages = append(f.messages, *msg)
	f.nextSeq(msg.ID)
	f.mu.Unlock()

	f.publish(events.CollectionMessages, events.ChangeInsert, msg.ID, map[string]string{
		"booking_id":  msg.BookingID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
	}, msg)
	return nil
}

func (f *Fake) ListMessages(_ context.Context, q domain.Query) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list messages"); err != nil {
		return nil, err
	}
	var out []*models.Message
	for _, m := range f.messages {
		m := m
		fields := map[string]any{
			"id": m.ID, "booking_id": m.BookingID, "sender_id": m.SenderID,
			"receiver_id": m.ReceiverID, "created_at": m.CreatedAt,
		}
		ok, err := matches(q, fields)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &m)
		}
	}
	return finish(q, out, f.order, func(m *models.Message) (string, map[string]any) {
		return m.ID, map[string]any{"created_at": m.CreatedAt}
	})
}

// Notifications

func (f *Fake) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	if err := f.failure("create notification"); err != nil {
		f.mu.Unlock()
		return err
	}
	now := f.now().UTC()
	n.CreatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = now
	}
	f.notifications[n.ID] = *n
	f.nextSeq(n.ID)
	f.mu.Unlock()

	f.publish(events.CollectionNotifications, events.ChangeInsert, n.ID, map[string]string{"account_id": n.AccountID, "type": n.Type}, n)
	return nil
}

func (f *Fake) ListDueNotifications(_ context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("list due notifications"); err != nil {
		return nil, err
	}
	var out []*models.Notification
	for _, n := range f.notifications {
		n := n
		if n.Status == models.NotificationPending && !n.NextAttemptAt.After(now) {
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextAttemptAt.Equal(out[j].NextAttemptAt) {
			return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
		}
		return f.order[out[i].ID] < f.order[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) MarkNotificationSent(_ context.Context, id string, at time.Time) error {
	return f.updateNotification("mark notification sent", id, func(n *models.Notification) {
		n.Status = models.NotificationSent
		n.Attempts++
		sentAt := at.UTC()
		n.SentAt = &sentAt
	})
}

func (f *Fake) MarkNotificationRetry(_ context.Context, id, lastErr string, next time.Time) error {
	return f.updateNotification("mark notification retry", id, func(n *models.Notification) {
		n.Attempts++
		n.LastError = lastErr
		n.NextAttemptAt = next.UTC()
	})
}

func (f *Fake) MarkNotificationFailed(_ context.Context, id, lastErr string) error {
	return f.updateNotification("mark notification failed", id, func(n *models.Notification) {
		n.Status = models.NotificationFailed
		n.Attempts++
		n.LastError = lastErr
	})
}

func (f *Fake) updateNotification(op, id string, apply func(*models.Notification)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(op); err != nil {
		return err
	}
	n, ok := f.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	apply(&n)
	f.notifications[id] = n
	return nil
}

// query evaluation

func matches(q domain.Query, fields map[string]any) (bool, error) {
	for _, c := range q.Conditions {
		v, ok := fields[c.Field]
		if !ok {
			return false, domain.Invalid(fmt.Sprintf("unknown field %q", c.Field))
		}
		if !c.Op.Valid() {
			return false, domain.Invalid(fmt.Sprintf("unsupported operator %q", c.Op))
		}
		if c.Op == domain.OpIn {
			found := false
			for _, candidate := range flatten(c.Value) {
				if compare(v, candidate) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
			continue
		}
		cmp := compare(v, c.Value)
		var keep bool
		switch c.Op {
		case domain.OpEq:
			keep = cmp == 0
		case domain.OpNeq:
			keep = cmp != 0
		case domain.OpGt:
			keep = cmp > 0
		case domain.OpGte:
			keep = cmp >= 0
		case domain.OpLt:
			keep = cmp < 0
		case domain.OpLte:
			keep = cmp <= 0
		}
		if !keep {
			return false, nil
		}
	}
	return true, nil
}

func flatten(v any) []any {
	switch t := v.(type) {
	case []any:
		if len(t) == 1 {
			switch inner := t[0].(type) {
			case []string, []any, []models.BookingStatus:
				return flatten(inner)
			}
		}
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []models.BookingStatus:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return []any{v}
}

// compare orders a and b the way sqlite would for the value kinds the gateway stores.
func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case float64:
		return compareFloat(av, toFloat(b))
	case int:
		return compareFloat(float64(av), toFloat(b))
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// finish applies ordering and limit. Ties and the default order follow insertion order.
func finish[T any](q domain.Query, items []*T, order map[string]int, key func(*T) (string, map[string]any)) ([]*T, error) {
	field := q.OrderBy
	if field == "" {
		field = "created_at"
	}
	if len(items) > 0 {
		if _, fields := key(items[0]); fields[field] == nil {
			return nil, domain.Invalid(fmt.Sprintf("unknown order field %q", field))
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		idI, fi := key(items[i])
		idJ, fj := key(items[j])
		cmp := compare(fi[field], fj[field])
		if cmp == 0 {
			cmp = order[idI] - order[idJ]
		}
		if q.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}
