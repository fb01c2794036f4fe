package projections

import (
	"context"
	"time"

	certificateStore "frsm/internal/adapters/storage/certificate"
	"frsm/internal/domain/certificate"
)

// expiryPanelSize bounds the upcoming and recently-expired panels.
const expiryPanelSize = 10

// ExpiryRow is a certificate record with its days until expiry and bucket.
type ExpiryRow struct {
	certificateStore.Record
	Days    int
	HasDays bool
	Bucket  string
}

// ExpiryStats counts certificates per expiry bucket.
type ExpiryStats struct {
	Total     int
	Expired   int
	Within30  int
	Within60  int
	Within90  int
	ValidOver int
}

// ExpiryTrackingQuery carries the expiry page filters. Filter is one of the
// certificate expiry buckets or empty for all.
type ExpiryTrackingQuery struct {
	Filter      string
	VolunteerID string
	TrainingID  string
	Search      string
	Today       time.Time
}

// ExpiryTrackingDeps holds dependencies for the expiry query.
type ExpiryTrackingDeps struct {
	Certificates CertificateReader
}

// ExpiryTracking is the admin certificate expiry page.
type ExpiryTracking struct {
	Rows            []ExpiryRow
	Stats           ExpiryStats
	Upcoming        []ExpiryRow // expiring within 30 days, soonest first
	RecentlyExpired []ExpiryRow // most recently expired first
}

// QueryExpiryTracking lists certificates by expiry, with bucket counters.
// PRE: Filter is empty or a known bucket
// POST: Rows ordered by expiry date ascending; stats ignore the page filters
func QueryExpiryTracking(ctx context.Context, q ExpiryTrackingQuery, deps ExpiryTrackingDeps) (ExpiryTracking, error) {
	var res ExpiryTracking
	today := q.Today

	filter := certificateStore.ListFilter{
		VolunteerID: q.VolunteerID,
		TrainingID:  q.TrainingID,
		Search:      q.Search,
		OrderBy:     certificateStore.OrderExpiryAsc,
	}
	if q.Filter != "" {
		from, to, err := certificate.FilterRange(q.Filter, today)
		if err != nil {
			return res, err
		}
		filter.ExpiryFrom, filter.ExpiryTo = from, to
	}
	records, err := deps.Certificates.ListRecords(ctx, filter)
	if err != nil {
		return res, err
	}
	res.Rows = expiryRows(records, today)

	if res.Stats, err = expiryStats(ctx, deps.Certificates, certificateStore.ListFilter{}, today); err != nil {
		return res, err
	}

	from, to, _ := certificate.FilterRange(certificate.ExpiryWithin30, today)
	upcoming, err := deps.Certificates.ListRecords(ctx, certificateStore.ListFilter{
		ExpiryFrom: from, ExpiryTo: to, OrderBy: certificateStore.OrderExpiryAsc, Limit: expiryPanelSize,
	})
	if err != nil {
		return res, err
	}
	res.Upcoming = expiryRows(upcoming, today)

	_, to, _ = certificate.FilterRange(certificate.ExpiryExpired, today)
	expired, err := deps.Certificates.ListRecords(ctx, certificateStore.ListFilter{
		ExpiryTo: to, OrderBy: certificateStore.OrderExpiryDesc, Limit: expiryPanelSize,
	})
	if err != nil {
		return res, err
	}
	res.RecentlyExpired = expiryRows(expired, today)
	return res, nil
}

func expiryRows(records []certificateStore.Record, today time.Time) []ExpiryRow {
	rows := make([]ExpiryRow, 0, len(records))
	for _, rec := range records {
		days, ok := rec.Certificate.DaysUntilExpiry(today)
		rows = append(rows, ExpiryRow{Record: rec, Days: days, HasDays: ok, Bucket: rec.Certificate.ExpiryStatus(today)})
	}
	return rows
}

// expiryStats counts the certificates matching base, in total and per bucket.
func expiryStats(ctx context.Context, certs CertificateReader, base certificateStore.ListFilter, today time.Time) (ExpiryStats, error) {
	var stats ExpiryStats
	var err error
	if stats.Total, err = certs.Count(ctx, base); err != nil {
		return stats, err
	}
	buckets := []struct {
		dst    *int
		bucket string
	}{
		{&stats.Expired, certificate.ExpiryExpired},
		{&stats.Within30, certificate.ExpiryWithin30},
		{&stats.Within60, certificate.ExpiryWithin60},
		{&stats.Within90, certificate.ExpiryWithin90},
		{&stats.ValidOver, certificate.ExpiryValid},
	}
	for _, b := range buckets {
		f := base
		f.ExpiryFrom, f.ExpiryTo, _ = certificate.FilterRange(b.bucket, today)
		if *b.dst, err = certs.Count(ctx, f); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
