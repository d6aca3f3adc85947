// internal/gateway/cache/cache_test.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloudwise/internal/gateway"
	"cloudwise/internal/gateway/gatewaytest"
	"cloudwise/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("[DEBUG] %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("[WARN] %s %v", msg, fields)
}

// ==========================
// Test Helper Functions
// ==========================

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func sameJSON(t *testing.T, a, b any) {
	t.Helper()
	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func listingWith(ids ...string) *models.InstanceListing {
	instances := make([]models.Instance, 0, len(ids))
	for _, id := range ids {
		instances = append(instances, models.Instance{ID: id, State: "running"})
	}
	return models.NewInstanceListing(map[string][]models.Instance{"us-east-1": instances}, nil)
}

// ==========================
// Read-through behaviour
// ==========================

func TestCache_IdenticalArgumentsHit(t *testing.T) {
	_, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	inner.Instances = listingWith("i-1", "i-2")
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	q := gateway.InstanceQuery{Filters: []models.Filter{{Name: "instance-state-name", Values: []string{"running"}}}}
	first, err := c.ListInstances(context.Background(), q)
	require.NoError(t, err)
	second, err := c.ListInstances(context.Background(), q)
	require.NoError(t, err)

	sameJSON(t, first, second)
	assert.Equal(t, []string{"list_instances"}, inner.Operations())

	// Different arguments are a different entry.
	_, err = c.ListInstances(context.Background(), gateway.InstanceQuery{Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Len(t, inner.Operations(), 2)
}

func TestCache_CostReportRoundTrip(t *testing.T) {
	_, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAzure)
	report := models.NewCostReport(models.Period{Start: "2024-01-01", End: "2024-01-31"}, "USD")
	report.Add("Virtual Machines", "eastus", decimal.RequireFromString("12.34"))
	inner.Costs = report
	c := New(inner, rdb, time.Minute, "", &TestLogger{t: t})

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	q := gateway.CostQuery{Start: start, End: start.AddDate(0, 0, 30), Timeframe: gateway.TimeframeLastMonth}
	first, err := c.GetCostAndUsage(context.Background(), q)
	require.NoError(t, err)

	// Same dates, later in the day.
	q.Start = q.Start.Add(3 * time.Hour)
	q.End = q.End.Add(3 * time.Hour)
	second, err := c.GetCostAndUsage(context.Background(), q)
	require.NoError(t, err)

	sameJSON(t, first, second)
	assert.True(t, decimal.RequireFromString("12.34").Equal(second.TotalCost))
	assert.Len(t, inner.Operations(), 1)

	// The timeframe label is not part of the window.
	q.Timeframe = gateway.TimeframeLastWeek
	_, err = c.GetCostAndUsage(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, inner.Operations(), 1)
}

func TestCache_ResultsWithWarningsAreNotStored(t *testing.T) {
	_, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	inner.Storage = models.NewStorageListing([]models.Bucket{{Name: "b1"}}, []string{"bucket b2: location unavailable"})
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	for i := 0; i < 2; i++ {
		_, err := c.ListStorage(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, inner.Operations(), 2)
}

func TestCache_ErrorsAreNotStored(t *testing.T) {
	_, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	inner.Errors["list_groups"] = errors.New("AccessDenied")
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	_, err := c.ListGroups(context.Background())
	require.Error(t, err)

	delete(inner.Errors, "list_groups")
	inner.Groups = []models.Group{{Name: "prod"}}
	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prod", groups[0].Name)
}

func TestCache_LiveViewsBypass(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	for i := 0; i < 2; i++ {
		_, err := c.GetMetrics(context.Background(), gateway.MetricQuery{ResourceID: "i-1"})
		require.NoError(t, err)
		_, err = c.GetResourceStatus(context.Background(), gateway.ResourceRef{ID: "i-1"})
		require.NoError(t, err)
	}
	assert.Len(t, inner.Operations(), 4)
	assert.Empty(t, mr.Keys())
}

// ==========================
// Invalidation
// ==========================

func TestCache_ActionsStartNewGeneration(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	inner.Instances = listingWith("i-1")
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})
	ctx := context.Background()

	_, err := c.ListInstances(ctx, gateway.InstanceQuery{})
	require.NoError(t, err)
	assert.True(t, mr.Exists(c.Key(0, "list_instances", gateway.InstanceQuery{})))

	_, err = c.Stop(ctx, gateway.ResourceRef{ID: "i-1"})
	require.NoError(t, err)
	gen, err := mr.Get("test:aws:generation")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)

	inner.Instances = listingWith("i-1", "i-2")
	listing, err := c.ListInstances(ctx, gateway.InstanceQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, []string{"list_instances", "stop", "list_instances"}, inner.Operations())
}

func TestCache_FailedActionKeepsGeneration(t *testing.T) {
	mr, rdb := setupMiniredis(t)
	inner := gatewaytest.New(gateway.PlatformAWS)
	inner.Errors["start"] = errors.New("IncorrectInstanceState")
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	_, err := c.Start(context.Background(), gateway.ResourceRef{ID: "i-1"})
	require.Error(t, err)
	assert.False(t, mr.Exists("test:aws:generation"))
}

// ==========================
// Redis failures
// ==========================

func TestCache_RedisDownReadsThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := gatewaytest.New(gateway.PlatformAzure)
	inner.Groups = []models.Group{{Name: "rg-web"}}
	c := New(inner, rdb, time.Minute, "test", &TestLogger{t: t})

	mock.ExpectGet("test:azure:generation").SetErr(errors.New("connection refused"))

	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rg-web", groups[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_MissStoresWithTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	inner := gatewaytest.New(gateway.PlatformAzure)
	inner.Groups = []models.Group{{Name: "rg-web"}}
	c := New(inner, rdb, 5*time.Minute, "test", &TestLogger{t: t})

	key := c.Key(3, "list_groups", nil)
	data, err := json.Marshal(inner.Groups)
	require.NoError(t, err)

	mock.ExpectGet("test:azure:generation").SetVal("3")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, data, 5*time.Minute).SetErr(errors.New("OOM"))

	groups, err := c.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "test:azure:g3:list_groups:none", key)
}
