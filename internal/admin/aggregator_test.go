package admin

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/session"
)

type fakeSource struct {
	fees     []models.AdminFee
	stats    *models.PaymentStatistics
	feesErr  error
	statsErr error
	calls    atomic.Int32
}

func (s *fakeSource) GetAllFees(context.Context) ([]models.AdminFee, error) {
	s.calls.Add(1)
	return s.fees, s.feesErr
}

func (s *fakeSource) GetPaymentStatistics(context.Context) (*models.PaymentStatistics, error) {
	s.calls.Add(1)
	return s.stats, s.statsErr
}

var adminSession = session.Static{BearerToken: "tok", ActorID: "a-1", ActorRole: models.RoleAdmin}

func intPtr(v int) *int { return &v }

func TestLoadDashboard(t *testing.T) {
	src := &fakeSource{
		fees: []models.AdminFee{
			{ID: "f1", Title: "Tuition", Type: "tuition_fee", Amount: 45000, Deadline: models.NewDate(2020, time.January, 1)},
			{ID: "f2", Title: "Admission", Type: "admission", Amount: 5000, Deadline: models.NewDate(2030, time.January, 1)},
			{ID: "f3", Title: "Lab", Type: "lab", Amount: 900, IsInstallmentAvailable: true, InstallmentCount: intPtr(3)},
		},
		stats: &models.PaymentStatistics{
			TotalDue:         50900,
			TotalPaid:        1054,
			PaidFeesCount:    1,
			PendingFeesCount: 4,
			OverdueFeesCount: 2,
			PaymentHistory:   []models.PaymentRecord{{ID: "p1", StudentName: "Rahim", AmountPaid: 1054}},
		},
	}

	d, err := New(src, adminSession, nil, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, f := range d.Fees {
		if f.Status != models.StatusPending {
			t.Errorf("fee %s status = %s, want pending default", f.ID, f.Status)
		}
	}
	if len(d.Categories[models.CategoryTuition]) != 1 || len(d.Categories[models.CategoryAdmission]) != 1 || len(d.Categories[models.CategoryOther]) != 1 {
		t.Errorf("Categories = %v, want one tuition, admission and other", d.Categories)
	}
	if len(d.Categories[models.CategoryDevelopment]) != 0 {
		t.Errorf("development bucket = %v, want empty", d.Categories[models.CategoryDevelopment])
	}

	// counts come from the statistics payload, not from the listed fees
	paid, pending, overdue := d.Counts()
	if paid != 1 || pending != 4 || overdue != 2 {
		t.Errorf("Counts = %d/%d/%d, want 1/4/2", paid, pending, overdue)
	}
	if d.Stats.TotalDue != 50900 || len(d.Stats.PaymentHistory) != 1 {
		t.Errorf("Stats = %+v, want backend totals unchanged", d.Stats)
	}

	byStatus := d.ByStatus()
	if len(byStatus[models.StatusPending]) != 3 || len(byStatus[models.StatusPaid]) != 0 || len(byStatus[models.StatusOverdue]) != 0 {
		t.Errorf("ByStatus = %v, want every listed fee pending", byStatus)
	}

	lab := d.Categories[models.CategoryOther][0]
	if lab.InstallmentOptions == nil || lab.InstallmentOptions.Count != 3 || lab.InstallmentOptions.Amount != 300 {
		t.Errorf("InstallmentOptions = %+v, want {3 300}", lab.InstallmentOptions)
	}
}

func TestLoadRequiresAdmin(t *testing.T) {
	for _, s := range []session.Session{
		nil,
		session.Anonymous(),
		session.Static{ActorID: "s-1", ActorRole: models.RoleStudent},
		session.Static{ActorID: "f-1", ActorRole: models.RoleFaculty},
	} {
		src := &fakeSource{}
		if _, err := New(src, s, nil, nil).Load(context.Background()); err == nil {
			t.Error("Load succeeded for non-admin session")
		}
		if n := src.calls.Load(); n != 0 {
			t.Errorf("source calls = %d, want 0", n)
		}
	}
}

func TestLoadPropagatesErrors(t *testing.T) {
	boom := errors.New("HTTP error! status: 500")
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{name: "fees", src: &fakeSource{feesErr: boom, stats: &models.PaymentStatistics{}}},
		{name: "stats", src: &fakeSource{statsErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.src, adminSession, nil, nil).Load(context.Background())
			if !errors.Is(err, boom) {
				t.Errorf("Load error = %v, want %v", err, boom)
			}
			if d != nil {
				t.Errorf("Dashboard = %+v, want nil on error", d)
			}
		})
	}
}
