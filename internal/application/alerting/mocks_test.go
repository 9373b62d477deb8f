package alerting

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/MallLedger/internal/domain/billing"
	"github.com/turtacn/MallLedger/internal/domain/leasing"
	"github.com/turtacn/MallLedger/internal/domain/notification"
	"github.com/turtacn/MallLedger/internal/domain/workforce"
	"github.com/turtacn/MallLedger/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// notification store
// ---------------------------------------------------------------------------

type memNotifications struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*notification.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: map[int64]*notification.Notification{}}
}

func clone(n *notification.Notification) *notification.Notification {
	cp := *n
	if n.Metadata != nil {
		cp.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func (r *memNotifications) insert(n *notification.Notification) {
	r.nextID++
	n.ID = r.nextID
	n.Version = 1
	r.rows[n.ID] = clone(n)
}

func (r *memNotifications) Create(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(n)
	return nil
}

func (r *memNotifications) FindUnreadByIdentity(_ context.Context, id notification.Identity) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.rows {
		if !n.IsRead && n.Identity() == id {
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Severity.Rank() > out[j].Severity.Rank() })
	return out, nil
}

func (r *memNotifications) Supersede(_ context.Context, old []*notification.Notification, n *notification.Notification, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(n)
	for _, o := range old {
		row := r.rows[o.ID]
		row.MarkRead(at)
		row.SetMeta(notification.MetaSupersededBy, itoa(n.ID))
		row.Version++
	}
	return nil
}

func (r *memNotifications) GetByID(_ context.Context, id int64) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
	}
	return clone(n), nil
}

func (r *memNotifications) List(_ context.Context, f notification.ListFilter) ([]*notification.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.rows {
		if n.RecipientType == f.Recipient.Type && n.RecipientID == f.Recipient.ID && (!f.UnreadOnly || !n.IsRead) {
			out = append(out, clone(n))
		}
	}
	return out, int64(len(out)), nil
}

func (r *memNotifications) CountUnread(_ context.Context, rc notification.Recipient) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c int64
	for _, n := range r.rows {
		if n.RecipientType == rc.Type && n.RecipientID == rc.ID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (r *memNotifications) UpdateRead(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[n.ID] = clone(n)
	return nil
}

func (r *memNotifications) MarkAllRead(_ context.Context, rc notification.Recipient, at time.Time) (int64, error) {
	return 0, nil
}

func (r *memNotifications) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *memNotifications) PurgeReadBefore(_ context.Context, _ notification.Severity, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *memNotifications) all() []*notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.Notification, 0, len(r.rows))
	for _, n := range r.rows {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memNotifications) unread() []*notification.Notification {
	var out []*notification.Notification
	for _, n := range r.all() {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}

func itoa(i int64) string { return strconv.FormatInt(i, 10) }

// ---------------------------------------------------------------------------
// channels and directory
// ---------------------------------------------------------------------------

type sentMessage struct {
	To   string
	Text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{To: to, Text: text})
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) PhoneFor(ctx context.Context, rt notification.RecipientType, id int64) (string, error) {
	args := m.Called(ctx, rt, id)
	return args.String(0), args.Error(1)
}

type countingDispatchMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingDispatchMetrics) RecordChannelSend(channel, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[channel+"/"+status]++
}

// ---------------------------------------------------------------------------
// domain sources
// ---------------------------------------------------------------------------

type fakeWorkforce struct {
	employees   map[int64]*workforce.Employee
	contracts   []*workforce.EmploymentContract
	records     map[int64]map[string]string // employee -> date -> status
	failOn      map[int64]error
	listErr     error
	contractErr error
}

func newFakeWorkforce() *fakeWorkforce {
	return &fakeWorkforce{
		employees: map[int64]*workforce.Employee{},
		records:   map[int64]map[string]string{},
		failOn:    map[int64]error{},
	}
}

func (f *fakeWorkforce) addEmployee(id int64, name, phone string) {
	f.employees[id] = &workforce.Employee{ID: id, Name: name, Phone: phone, IsActive: true}
}

func (f *fakeWorkforce) record(id int64, date time.Time, status string) {
	if f.records[id] == nil {
		f.records[id] = map[string]string{}
	}
	f.records[id][date.Format("2006-01-02")] = status
}

func (f *fakeWorkforce) ActiveEmployees(context.Context) ([]*workforce.Employee, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*workforce.Employee
	for _, e := range f.employees {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWorkforce) GetEmployee(_ context.Context, id int64) (*workforce.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeEmployeeNotFound, "employee not found")
	}
	return e, nil
}

func (f *fakeWorkforce) ActiveContractsCovering(_ context.Context, employeeID int64, asOf time.Time) ([]*workforce.EmploymentContract, error) {
	var out []*workforce.EmploymentContract
	for _, c := range f.contracts {
		if c.EmployeeID == employeeID && c.IsActive() && c.Covers(asOf) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeWorkforce) ActiveContractsEndingBetween(_ context.Context, from, to time.Time) ([]*workforce.EmploymentContract, error) {
	if f.contractErr != nil {
		return nil, f.contractErr
	}
	var out []*workforce.EmploymentContract
	for _, c := range f.contracts {
		if c.IsActive() && !c.EndDate.Before(from) && !c.EndDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeWorkforce) HasRecordOn(_ context.Context, employeeID int64, date time.Time) (bool, error) {
	if err := f.failOn[employeeID]; err != nil {
		return false, err
	}
	_, ok := f.records[employeeID][date.Format("2006-01-02")]
	return ok, nil
}

func (f *fakeWorkforce) CountAbsencesSince(_ context.Context, employeeID int64, since time.Time) (int, error) {
	if err := f.failOn[employeeID]; err != nil {
		return 0, err
	}
	n := 0
	for d, status := range f.records[employeeID] {
		t, _ := time.Parse("2006-01-02", d)
		if !t.Before(since) && status == workforce.StatusAbsent {
			n++
		}
	}
	return n, nil
}

type fakeLeasing struct {
	stores    map[int64]*leasing.Store
	renters   map[int64]*leasing.Renter
	contracts []*leasing.StoreRentContract
}

func newFakeLeasing() *fakeLeasing {
	return &fakeLeasing{stores: map[int64]*leasing.Store{}, renters: map[int64]*leasing.Renter{}}
}

func (f *fakeLeasing) GetStore(_ context.Context, id int64) (*leasing.Store, error) {
	s, ok := f.stores[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeStoreNotFound, "store not found")
	}
	return s, nil
}

func (f *fakeLeasing) RenterForStore(_ context.Context, _, preferred int64) (*leasing.Renter, error) {
	return f.GetRenter(context.Background(), preferred)
}

func (f *fakeLeasing) GetRenter(_ context.Context, id int64) (*leasing.Renter, error) {
	r, ok := f.renters[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRenterNotFound, "renter not found")
	}
	return r, nil
}

func (f *fakeLeasing) ActiveContractsCovering(context.Context, int64, time.Time, time.Time) ([]*leasing.StoreRentContract, error) {
	return nil, nil
}

func (f *fakeLeasing) StoresWithCoverage(context.Context, time.Time, time.Time) ([]int64, error) {
	return nil, nil
}

func (f *fakeLeasing) ActiveContractsEndingBetween(_ context.Context, from, to time.Time) ([]*leasing.StoreRentContract, error) {
	var out []*leasing.StoreRentContract
	for _, c := range f.contracts {
		if c.IsActive() && !c.EndDate.Before(from) && !c.EndDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeInvoices struct {
	billing.InvoiceRepository
	unpaid []*billing.Invoice
}

func (f *fakeInvoices) ListUnpaid(context.Context) ([]*billing.Invoice, error) {
	return f.unpaid, nil
}

//Personal.AI order the ending
