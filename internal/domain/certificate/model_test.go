package certificate_test

import (
	"errors"
	"testing"
	"time"

	"frsm/internal/domain/certificate"
)

var today = time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

func TestNumber(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "CERT-20260520-0001"},
		{42, "CERT-20260520-0042"},
		{9999, "CERT-20260520-9999"},
		{0, "CERT-20260520-0001"},
		{10000, "CERT-20260520-0002"},
	}
	for _, tt := range tests {
		if got := certificate.Number(today, tt.seq); got != tt.want {
			t.Errorf("Number(%d) = %s, want %s", tt.seq, got, tt.want)
		}
	}
}

func TestIssue(t *testing.T) {
	c := certificate.Issue("c1", "r1", "v1", "t1", "adm-1", today, 7)
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if c.IssueDate.Format("2006-01-02") != "2026-05-20" {
		t.Errorf("IssueDate = %v", c.IssueDate)
	}
	if c.ExpiryDate.Format("2006-01-02") != "2027-05-20" {
		t.Errorf("ExpiryDate = %v, want one year later", c.ExpiryDate)
	}
	if !c.Verified {
		t.Error("issued certificates are verified")
	}
}

// TestCertificate_ExpiryStatus tests expiry buckets around their boundaries.
func TestCertificate_ExpiryStatus(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		want   string
	}{
		{"no expiry", time.Time{}, certificate.ExpiryNoExpiry},
		{"yesterday", today.AddDate(0, 0, -1), certificate.ExpiryExpired},
		{"today", today, certificate.ExpiryWithin30},
		{"30 days", today.AddDate(0, 0, 30), certificate.ExpiryWithin30},
		{"31 days", today.AddDate(0, 0, 31), certificate.ExpiryWithin60},
		{"60 days", today.AddDate(0, 0, 60), certificate.ExpiryWithin60},
		{"90 days", today.AddDate(0, 0, 90), certificate.ExpiryWithin90},
		{"91 days", today.AddDate(0, 0, 91), certificate.ExpiryValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := certificate.Certificate{ExpiryDate: tt.expiry}
			if got := c.ExpiryStatus(today); got != tt.want {
				t.Errorf("ExpiryStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFilterRange(t *testing.T) {
	from, to, err := certificate.FilterRange(certificate.ExpiryWithin60, today)
	if err != nil {
		t.Fatal(err)
	}
	if from.Format("2006-01-02") != "2026-06-20" || to.Format("2006-01-02") != "2026-07-19" {
		t.Errorf("expiring_60 range = %v..%v", from, to)
	}

	from, to, err = certificate.FilterRange(certificate.ExpiryExpired, today)
	if err != nil {
		t.Fatal(err)
	}
	if !from.IsZero() || to.Format("2006-01-02") != "2026-05-19" {
		t.Errorf("expired range = %v..%v", from, to)
	}

	if _, _, err := certificate.FilterRange("soon", today); !errors.Is(err, certificate.ErrInvalidFilter) {
		t.Errorf("FilterRange(soon) = %v, want ErrInvalidFilter", err)
	}
}
