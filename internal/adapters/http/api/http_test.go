package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voicemetrics/callbridge/internal/adapters/http/api"
	service "github.com/voicemetrics/callbridge/internal/app"
	"github.com/voicemetrics/callbridge/internal/domain/insights"
	"github.com/voicemetrics/callbridge/internal/domain/record"
	logging "github.com/voicemetrics/callbridge/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logging.Init()
	m.Run()
}

type mockDeps struct {
	summary    insights.Summary
	buckets    []insights.Bucket
	coupons    []insights.CouponUse
	rows       []record.Reconciled
	report     service.RunReport
	err        error
	lastWindow insights.Window
	lastGran   insights.Granularity
}

func (m *mockDeps) Window(from, to time.Time) insights.Window {
	if to.IsZero() {
		to = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return insights.Window{From: from, To: to}
}

func (m *mockDeps) Summary(ctx context.Context, w insights.Window) (insights.Summary, error) {
	m.lastWindow = w
	return m.summary, m.err
}

func (m *mockDeps) Series(ctx context.Context, w insights.Window, g insights.Granularity) ([]insights.Bucket, error) {
	m.lastWindow, m.lastGran = w, g
	return m.buckets, m.err
}

func (m *mockDeps) Coupons(ctx context.Context, w insights.Window) ([]insights.CouponUse, error) {
	m.lastWindow = w
	return m.coupons, m.err
}

func (m *mockDeps) Reconciled(ctx context.Context, w insights.Window) ([]record.Reconciled, error) {
	m.lastWindow = w
	return m.rows, m.err
}

func (m *mockDeps) RunPipeline(ctx context.Context) (service.RunReport, error) {
	return m.report, m.err
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *mockDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestSummaryEndpoint(t *testing.T) {
	Convey("Given the summary endpoint", t, func() {
		deps := &mockDeps{summary: insights.Summary{TotalCalls: 7, ConversionRate: 50}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When querying with explicit dates", func() {
			resp, err := http.Get(srv.URL + "/api/summary?from=2024-01-01&to=2024-01-31")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the summary is returned for that window", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got insights.Summary
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.TotalCalls, ShouldEqual, 7)
				So(deps.lastWindow.From.Format("2006-01-02"), ShouldEqual, "2024-01-01")
				So(deps.lastWindow.To.Format("2006-01-02"), ShouldEqual, "2024-01-31")
			})
		})

		Convey("When dates are omitted", func() {
			resp, err := http.Get(srv.URL + "/api/summary")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the default trailing window applies", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastWindow.To.Format("2006-01-02"), ShouldEqual, "2024-03-31")
			})
		})

		Convey("When a date is malformed", func() {
			resp, err := http.Get(srv.URL + "/api/summary?from=01-31-2024")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When from is after to", func() {
			resp, err := http.Get(srv.URL + "/api/summary?from=2024-02-01&to=2024-01-01")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store fails", func() {
			deps.err = errors.New("store unavailable")
			resp, err := http.Get(srv.URL + "/api/summary")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the failure maps to 500", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Post(srv.URL+"/api/summary", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the route is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSeriesEndpoint(t *testing.T) {
	Convey("Given the series endpoint", t, func() {
		deps := &mockDeps{buckets: []insights.Bucket{
			{PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Revenue: 100, Customers: 1},
		}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When querying weekly buckets", func() {
			resp, err := http.Get(srv.URL + "/api/series?granularity=week&from=2024-01-01&to=2024-01-31")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the buckets are returned with the parsed granularity", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastGran, ShouldEqual, insights.Week)
				var got []insights.Bucket
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Revenue, ShouldEqual, 100)
			})
		})

		Convey("When granularity is omitted", func() {
			resp, err := http.Get(srv.URL + "/api/series")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then day buckets are assumed", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.lastGran, ShouldEqual, insights.Day)
			})
		})

		Convey("When granularity is unknown", func() {
			resp, err := http.Get(srv.URL + "/api/series?granularity=fortnight")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the window is empty of data", func() {
			deps.buckets = nil
			resp, err := http.Get(srv.URL + "/api/series")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then an empty list is returned, not null", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got []insights.Bucket
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})
	})
}

func TestCouponsEndpoint(t *testing.T) {
	Convey("Given the coupons endpoint", t, func() {
		deps := &mockDeps{coupons: []insights.CouponUse{
			{CustomerName: "Asha", Email: "asha@example.com", OrderNumber: "1001", Code: "OFF5"},
		}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When querying the report", func() {
			resp, err := http.Get(srv.URL + "/api/coupons?from=2024-01-01&to=2024-01-31")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the coupon rows are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got []insights.CouponUse
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Code, ShouldEqual, "OFF5")
			})
		})
	})
}

func TestReconciledEndpoint(t *testing.T) {
	Convey("Given the reconciled endpoint", t, func() {
		deps := &mockDeps{rows: []record.Reconciled{
			{PhoneKey: "5109411358", Email: "asha@example.com", OrderNumber: "1001"},
		}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When querying the dataset", func() {
			resp, err := http.Get(srv.URL + "/api/reconciled?from=2024-01-01&to=2024-01-31")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the rows are returned with their count", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got struct {
					Count int                 `json:"count"`
					Rows  []record.Reconciled `json:"rows"`
				}
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.Count, ShouldEqual, 1)
				So(got.Rows, ShouldHaveLength, 1)
				So(got.Rows[0].PhoneKey, ShouldEqual, "5109411358")
			})
		})
	})
}

func TestPipelineEndpoint(t *testing.T) {
	Convey("Given the pipeline trigger endpoint", t, func() {
		deps := &mockDeps{report: service.RunReport{CallsFetched: 3, RowsStored: 2}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When triggering a run", func() {
			resp, err := http.Post(srv.URL+"/api/pipeline/run", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the run report is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got service.RunReport
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got.CallsFetched, ShouldEqual, 3)
				So(got.RowsStored, ShouldEqual, 2)
			})
		})

		Convey("When a run is already in progress", func() {
			deps.err = service.ErrPipelineRunning
			resp, err := http.Post(srv.URL+"/api/pipeline/run", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the trigger conflicts", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When triggering with GET", func() {
			resp, err := http.Get(srv.URL + "/api/pipeline/run")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the route is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		deps := &mockDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When querying stats", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the service stats are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.NewDecoder(resp.Body).Decode(&got), ShouldBeNil)
				So(got["started"], ShouldEqual, true)
			})
		})
	})
}
