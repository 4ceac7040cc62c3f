package presenter

import (
	"testing"

	"github.com/mmynk/deptportal/internal/models"
)

func TestPartition(t *testing.T) {
	fees := []models.Fee{
		fee("dev", "development", models.StatusPending, 1),
		fee("adm", "admission", models.StatusPending, 1),
		fee("tui", "tuition", models.StatusPending, 1),
		fee("tuf", "tuition_fee", models.StatusPending, 1),
		fee("oth", "other", models.StatusPending, 1),
		fee("mis", "", models.StatusPending, 1),
	}

	got := Partition(fees)

	want := map[models.Category][]string{
		models.CategoryDevelopment: {"dev"},
		models.CategoryAdmission:   {"adm"},
		models.CategoryTuition:     {"tui", "tuf"},
		models.CategoryOther:       {"oth", "mis"},
	}
	if len(got) != len(want) {
		t.Fatalf("buckets = %d, want %d", len(got), len(want))
	}
	total := 0
	for category, ids := range want {
		bucket := got[category]
		total += len(bucket)
		if len(bucket) != len(ids) {
			t.Errorf("%s bucket = %d fees, want %d", category, len(bucket), len(ids))
			continue
		}
		for i, id := range ids {
			if bucket[i].ID != id {
				t.Errorf("%s bucket[%d] = %s, want %s", category, i, bucket[i].ID, id)
			}
		}
	}
	if total != len(fees) {
		t.Errorf("partitioned %d fees, want %d", total, len(fees))
	}
}

func TestPartitionEmpty(t *testing.T) {
	got := Partition(nil)
	for _, c := range models.Categories {
		bucket, ok := got[c]
		if !ok || len(bucket) != 0 {
			t.Errorf("%s bucket = %v (present %v), want empty", c, bucket, ok)
		}
	}
}

func TestByStatusAndPayable(t *testing.T) {
	fees := []models.Fee{
		fee("a", "tuition", models.StatusPending, 100),
		fee("b", "tuition", models.StatusPaid, 200),
		fee("c", "other", models.StatusOverdue, 300),
		fee("d", "other", models.StatusPending, 400),
	}

	groups := ByStatus(fees)
	if len(groups[models.StatusPending]) != 2 || len(groups[models.StatusPaid]) != 1 || len(groups[models.StatusOverdue]) != 1 {
		t.Errorf("ByStatus = %v, want 2 pending, 1 paid, 1 overdue", groups)
	}

	payable := Payable(fees)
	if len(payable) != 3 {
		t.Fatalf("Payable = %d fees, want 3", len(payable))
	}
	for _, f := range payable {
		if f.Status == models.StatusPaid {
			t.Errorf("paid fee %s offered for payment", f.ID)
		}
	}
}

func TestSummarize(t *testing.T) {
	fees := []models.Fee{
		fee("a", "tuition", models.StatusPending, 100.10),
		fee("b", "tuition", models.StatusPaid, 200),
		fee("c", "other", models.StatusOverdue, 300.20),
	}
	history := []models.PaymentRecord{{AmountPaid: 230.8}}

	got := Summarize(fees, history)
	want := Totals{TotalDue: 400.3, TotalPaid: 230.8, OverdueAmount: 300.2, PendingCount: 1, PaidCount: 1, OverdueCount: 1}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
}
