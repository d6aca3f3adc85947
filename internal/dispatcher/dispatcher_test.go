// internal/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloudwise/internal/gateway"
	"cloudwise/internal/gateway/gatewaytest"
	"cloudwise/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t     *testing.T
	warns []string
}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {
	l.t.Logf("[DEBUG] %s %v", msg, fields)
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("[INFO] %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.warns = append(l.warns, msg)
	l.t.Logf("[WARN] %s %v", msg, fields)
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *TestLogger) {
	log := &TestLogger{t: t}
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return New(log, opts...), log
}

func command(platforms []string, resources []string, action string, params models.Parameters) models.Command {
	cmd := models.NewCommand()
	cmd.Platforms = platforms
	cmd.Resources = resources
	cmd.Action = action
	if params != nil {
		cmd.Parameters = params
	}
	return cmd
}

func runningInstances() *models.InstanceListing {
	return models.NewInstanceListing(map[string][]models.Instance{
		"us-east-1": {{ID: "i-1", State: "running"}, {ID: "i-2", State: "running"}},
	}, nil)
}

type recordingObserver struct {
	events []models.ActionEvent
	err    error
}

func (o *recordingObserver) Record(ctx context.Context, event models.ActionEvent) error {
	o.events = append(o.events, event)
	return o.err
}

type stubAdvisor struct {
	sections models.Sections
	err      error
	calls    int
}

func (a *stubAdvisor) Optimize(ctx context.Context, details map[string]any, costs map[string]*models.CostReport) (models.Sections, error) {
	a.calls++
	return a.sections, a.err
}

type countingRecorder struct {
	dispatched []string
}

func (r *countingRecorder) RecordDispatch(ctx context.Context, platform, operation string) {
	r.dispatched = append(r.dispatched, platform+":"+operation)
}

// ==========================
// Planning
// ==========================

func TestPlan(t *testing.T) {
	tests := []struct {
		name      string
		resources []string
		action    string
		want      []string
	}{
		{"ec2 list", []string{"ec2"}, "list", []string{OpListInstances}},
		{"vm describe", []string{"VMs"}, "describe", []string{OpListInstances}},
		{"compute without verb", []string{"instances"}, "", []string{OpListInstances}},
		{"vm status", []string{"vm"}, "get_status", []string{OpGetResourceStatus}},
		{"restart before start", []string{"vm"}, "restart", []string{OpRestart}},
		{"reboot", []string{"ec2"}, "reboot", []string{OpRestart}},
		{"start", []string{"instance"}, "start", []string{OpStart}},
		{"stop", []string{"instance"}, "stop_instance", []string{OpStop}},
		{"storage", []string{"s3"}, "list", []string{OpListStorage}},
		{"blob", []string{"blobs"}, "show", []string{OpListStorage}},
		{"costs", []string{"costs"}, "get", []string{OpGetCostAndUsage}},
		{"cost verb on compute", []string{"ec2"}, "get_costs", []string{OpGetCostAndUsage}},
		{"metrics", []string{"cpu"}, "get", []string{OpGetMetrics}},
		{"metric verb on compute", []string{"ec2"}, "get_metrics", []string{OpGetMetrics}},
		{"groups", []string{"resourcegroup"}, "list", []string{OpListGroups}},
		{"merge without short circuit", []string{"ec2", "costs", "s3"}, "list", []string{OpListInstances, OpGetCostAndUsage, OpListStorage}},
		{"duplicates collapse", []string{"ec2", "instances", "vm"}, "list", []string{OpListInstances}},
		{"unknown tokens skipped", []string{"lambda", "s3"}, "list", []string{OpListStorage}},
		{"cost verb with unknown token", []string{"lambda"}, "get_costs", []string{OpGetCostAndUsage}},
		{"unknown verb on compute", []string{"ec2"}, "terminate", []string{}},
		{"list wins over stop", []string{"ec2"}, "list_stopped", []string{OpListInstances}},
		{"describe wins over start", []string{"ec2"}, "describe_started", []string{OpListInstances}},
		{"show stopped instances", []string{"instances"}, "show stopped instances", []string{OpListInstances}},
		{"list wins over restart", []string{"vm"}, "list_restarted", []string{OpListInstances}},
		{"lifecycle needs whole word", []string{"ec2"}, "stopping", []string{}},
		{"read noun alone", []string{"ec2"}, "costs", []string{OpGetCostAndUsage}},
		{"delete storage", []string{"s3"}, "delete", []string{}},
		{"delete costs", []string{"costs"}, "delete_costs", []string{}},
		{"delete groups", []string{"resourcegroups"}, "delete", []string{}},
		{"stop on storage", []string{"s3", "metrics"}, "stop", []string{}},
		{"only unknown tokens", []string{"lambda"}, "list", []string{}},
		{"no resources", []string{}, "get_costs", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(command([]string{"AWS"}, tt.resources, tt.action, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "ec2", Label(gateway.PlatformAWS, OpListInstances))
	assert.Equal(t, "vms", Label(gateway.PlatformAzure, OpListInstances))
	assert.Equal(t, "storage", Label(gateway.PlatformAzure, OpListStorage))
	assert.Equal(t, "vm_action", Label(gateway.PlatformAzure, OpStop))
	assert.Equal(t, "instance_status", Label(gateway.PlatformAWS, OpGetResourceStatus))
}

// ==========================
// Parameters
// ==========================

func TestToFilters(t *testing.T) {
	params := models.Parameters{
		"tag:env":             models.List("prod", " ", "staging"),
		"instance-state-name": models.Scalar("running"),
		"instance-type":       models.Scalar(""),
		"empty-list":          models.List(),
		"region":              models.Scalar("us-east-1"),
		"timeframe":           models.Scalar("LastWeek"),
		"vm_name":             models.Scalar("web"),
		"instance-id":         models.Scalar("i-1"),
	}

	filters := ToFilters(params)
	assert.Equal(t, []models.Filter{
		{Name: "instance-id", Values: []string{"i-1"}},
		{Name: "instance-state-name", Values: []string{"running"}},
		{Name: "tag:env", Values: []string{"prod", "staging"}},
	}, filters)
}

func TestCostWindow(t *testing.T) {
	tests := []struct {
		name          string
		params        models.Parameters
		start, end    string
		wantStart     time.Time
		wantEnd       time.Time
		wantTimeframe string
		wantErr       bool
	}{
		{
			name:          "default trailing 30 days",
			params:        models.Parameters{},
			wantStart:     fixedNow.AddDate(0, 0, -30),
			wantEnd:       fixedNow,
			wantTimeframe: gateway.TimeframeLastMonth,
		},
		{
			name:          "last week",
			params:        models.Parameters{"timeframe": models.Scalar("LastWeek")},
			wantStart:     fixedNow.AddDate(0, 0, -7),
			wantEnd:       fixedNow,
			wantTimeframe: gateway.TimeframeLastWeek,
		},
		{
			name:          "last month case insensitive",
			params:        models.Parameters{"timeframe": models.Scalar("lastmonth")},
			wantStart:     fixedNow.AddDate(0, 0, -30),
			wantEnd:       fixedNow,
			wantTimeframe: gateway.TimeframeLastMonth,
		},
		{
			name:          "request dates win over parameters",
			params:        models.Parameters{"start_date": models.Scalar("2024-01-01"), "timeframe": models.Scalar("LastMonth")},
			start:         "2024-06-01",
			end:           "2024-06-10",
			wantStart:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:       time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			wantTimeframe: gateway.TimeframeLastWeek,
		},
		{
			name:          "parameter dates",
			params:        models.Parameters{"start_date": models.Scalar("2024-05-01"), "end_date": models.Scalar("2024-05-31")},
			wantStart:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:       time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
			wantTimeframe: gateway.TimeframeLastMonth,
		},
		{
			name:          "start only runs to now",
			params:        models.Parameters{},
			start:         "2024-06-10",
			wantStart:     time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:       fixedNow,
			wantTimeframe: gateway.TimeframeLastWeek,
		},
		{
			name:    "malformed date",
			params:  models.Parameters{},
			start:   "06/01/2024",
			wantErr: true,
		},
		{
			name:    "inverted window",
			params:  models.Parameters{},
			start:   "2024-06-10",
			end:     "2024-06-01",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := CostWindow(tt.params, tt.start, tt.end, fixedNow)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(q.Start), "start %s", q.Start)
			assert.True(t, tt.wantEnd.Equal(q.End), "end %s", q.End)
			assert.Equal(t, tt.wantTimeframe, q.Timeframe)
		})
	}
}

// ==========================
// Dispatch
// ==========================

func TestDispatch_UnsupportedMakesNoCalls(t *testing.T) {
	tests := []struct {
		name      string
		resources []string
		action    string
	}{
		{"empty resources", []string{}, "list"},
		{"unknown action", []string{"ec2"}, "terminate"},
		{"unknown resource", []string{"dynamodb"}, "list"},
		{"unknown verb on storage", []string{"s3"}, "delete"},
		{"unknown verb on costs", []string{"costs"}, "delete"},
		{"unknown verb on groups", []string{"resourcegroups"}, "delete"},
		{"lifecycle verb on metrics", []string{"metrics"}, "restart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDispatcher(t)
			aws := gatewaytest.New(gateway.PlatformAWS)
			env, err := d.Dispatch(context.Background(),
				command([]string{"AWS"}, tt.resources, tt.action, nil),
				map[string]gateway.Gateway{gateway.PlatformAWS: aws},
				Options{})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedCommand)
			assert.Nil(t, env)
			assert.Empty(t, aws.Calls())
		})
	}
}

func TestDispatch_ReadVerbNeverMutates(t *testing.T) {
	for _, action := range []string{"list_stopped", "describe_started", "show stopped instances", "list_restarted"} {
		t.Run(action, func(t *testing.T) {
			observer := &recordingObserver{}
			d, _ := newDispatcher(t, WithObservers(observer))
			aws := gatewaytest.New(gateway.PlatformAWS)
			aws.Instances = runningInstances()

			_, err := d.Dispatch(context.Background(),
				command([]string{"AWS"}, []string{"ec2"}, action, models.Parameters{"instance-id": models.Scalar("i-123")}),
				map[string]gateway.Gateway{gateway.PlatformAWS: aws},
				Options{})

			require.NoError(t, err)
			assert.Equal(t, []string{OpListInstances}, aws.Operations())
			assert.Empty(t, observer.events)
		})
	}
}

func TestDispatch_RunningInstances(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Instances = runningInstances()

	cmd := command([]string{"AWS"}, []string{"ec2"}, "list",
		models.Parameters{"instance-state-name": models.List("running")})
	env, err := d.Dispatch(context.Background(), cmd,
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{RequestID: "req-1", LLMAvailable: true})
	require.NoError(t, err)

	calls := aws.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, OpListInstances, calls[0].Operation)
	q := calls[0].Arg.(gateway.InstanceQuery)
	assert.Equal(t, []models.Filter{{Name: "instance-state-name", Values: []string{"running"}}}, q.Filters)

	assert.Equal(t, "Success", env.Message)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, aws.Instances, env.Data["aws_ec2"])
	assert.Nil(t, env.Details)
	assert.Empty(t, env.Errors)
	assert.Equal(t, map[string]bool{"aws": true, "azure": false, "llm": true}, env.AvailableServices)
	require.NotNil(t, env.CommandInterpreted)
	assert.Equal(t, []string{"ec2"}, env.CommandInterpreted.Resources)
}

func TestDispatch_MissingGatewayIsPerPlatform(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Instances = runningInstances()

	env, err := d.Dispatch(context.Background(),
		command([]string{"Azure", "AWS"}, []string{"vm"}, "list", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{})
	require.NoError(t, err)

	require.Len(t, env.Errors, 1)
	assert.Equal(t, "azure_error", env.Errors[0].Key)
	assert.Equal(t, "Azure client not initialized", env.Errors[0].Message)
	assert.Contains(t, env.Data, "aws_ec2")
	assert.Equal(t, "Partial success", env.Message)
	assert.False(t, env.AvailableServices["azure"])
}

func TestDispatch_OperationErrorsAreIsolated(t *testing.T) {
	d, log := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Instances = runningInstances()
	aws.Errors[OpListStorage] = errors.New("AccessDenied: s3:ListAllMyBuckets")
	azure := gatewaytest.New(gateway.PlatformAzure)
	azure.Errors[OpListStorage] = errors.New("AuthorizationFailed")
	azure.Storage = models.NewStorageListing([]models.Bucket{{Name: "acct1", Region: "eastus"}}, nil)

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS", "Azure"}, []string{"s3", "ec2"}, "list", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws, gateway.PlatformAzure: azure},
		Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{OpListStorage, OpListInstances}, aws.Operations())
	assert.Equal(t, []string{OpListStorage, OpListInstances}, azure.Operations())

	require.Len(t, env.Errors, 2)
	assert.Equal(t, models.OperationError{
		Key:       "aws_error",
		Platform:  "aws",
		Operation: OpListStorage,
		Message:   "AccessDenied: s3:ListAllMyBuckets",
	}, env.Errors[0])
	assert.Equal(t, "azure_error", env.Errors[1].Key)
	assert.Contains(t, env.Data, "aws_ec2")
	assert.NotContains(t, env.Data, "aws_s3")
	assert.Len(t, log.warns, 2)
}

func TestDispatch_ZeroBucketsIsEmptyNotFailure(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS"}, []string{"s3"}, "list", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{})
	require.NoError(t, err)

	assert.Empty(t, env.Data)
	assert.NotNil(t, env.Data)
	assert.Empty(t, env.Errors)
	require.NotNil(t, env.Details)
	assert.Equal(t, models.StatusEmpty, env.Details.Status)
	assert.Equal(t, []string{
		"No S3 buckets exist in your AWS account",
		"Buckets exist but are not accessible with current permissions",
		"Buckets exist in regions not currently accessible",
	}, env.Details.PossibleReasons)
	assert.Equal(t, "No S3 buckets found", env.Message)
}

func TestDispatch_EmptyInstancesCarryFilters(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	azure := gatewaytest.New(gateway.PlatformAzure)

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS", "Azure"}, []string{"instances"}, "list", models.Parameters{
			"instance-type":  models.Scalar("t3.micro"),
			"resource_group": models.Scalar("rg-web"),
		}),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws, gateway.PlatformAzure: azure},
		Options{})
	require.NoError(t, err)

	require.NotNil(t, env.Details)
	assert.Equal(t, models.StatusEmpty, env.Details.Status)
	assert.Contains(t, env.Details.PossibleReasons, "No instances match the specified filters")
	assert.Contains(t, env.Details.PossibleReasons, "No VMs exist in the specified resource group")
	assert.Equal(t, []models.Filter{{Name: "instance-type", Values: []string{"t3.micro"}}}, env.Details.Context["aws_applied_filters"])
	assert.Equal(t, "rg-web", env.Details.Context["azure_resource_group"])
	assert.Equal(t, "No EC2 instances found", env.Message)

	azureQuery := azure.Calls()[0].Arg.(gateway.InstanceQuery)
	assert.Equal(t, "rg-web", azureQuery.ResourceGroup)
}

func TestDispatch_AzureCostsLastWeek(t *testing.T) {
	advisor := &stubAdvisor{sections: models.Sections{"opportunities": {"Rightsize idle VMs"}}}
	d, _ := newDispatcher(t, WithCostAdvisor(advisor))
	azure := gatewaytest.New(gateway.PlatformAzure)
	azure.Costs = models.NewCostReport(models.Period{}, "USD")
	azure.Costs.Add("Virtual Machines", "eastus", decimal.NewFromInt(42))

	env, err := d.Dispatch(context.Background(),
		command([]string{"Azure"}, []string{"costs"}, "get", models.Parameters{"timeframe": models.Scalar("LastWeek")}),
		map[string]gateway.Gateway{gateway.PlatformAzure: azure},
		Options{})
	require.NoError(t, err)

	q := azure.Calls()[0].Arg.(gateway.CostQuery)
	assert.True(t, fixedNow.AddDate(0, 0, -7).Equal(q.Start))
	assert.True(t, fixedNow.Equal(q.End))
	assert.Equal(t, gateway.TimeframeLastWeek, q.Timeframe)

	report, ok := env.Data["azure_costs"].(*models.CostReport)
	require.True(t, ok)
	require.NotNil(t, report.Optimization)
	assert.Equal(t, []string{"Rightsize idle VMs"}, report.Optimization.Get("opportunities"))
	assert.Equal(t, 1, advisor.calls)
}

func TestDispatch_CostAdvisorFailureIsIgnored(t *testing.T) {
	d, _ := newDispatcher(t, WithCostAdvisor(&stubAdvisor{err: errors.New("model down")}))
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Costs = models.NewCostReport(models.Period{}, "USD")
	aws.Costs.Add("Amazon EC2", "us-east-1", decimal.NewFromInt(10))

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS"}, []string{"cost"}, "get", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{StartDate: "2024-06-01", EndDate: "2024-06-14"})
	require.NoError(t, err)

	report := env.Data["aws_costs"].(*models.CostReport)
	assert.Nil(t, report.Optimization)
	assert.Empty(t, env.Errors)

	q := aws.Calls()[0].Arg.(gateway.CostQuery)
	assert.Equal(t, models.Period{Start: "2024-06-01", End: "2024-06-14"}, q.Period())
}

func TestDispatch_InvalidCostDateIsOperationError(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS"}, []string{"costs"}, "get", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{StartDate: "yesterday"})
	require.NoError(t, err)

	assert.Empty(t, aws.Calls())
	require.Len(t, env.Errors, 1)
	assert.Contains(t, env.Errors[0].Message, "INVALID_PARAMETER")
	assert.Equal(t, "All operations failed", env.Message)
}

func TestDispatch_Metrics(t *testing.T) {
	t.Run("aws defaults", func(t *testing.T) {
		d, _ := newDispatcher(t)
		aws := gatewaytest.New(gateway.PlatformAWS)
		aws.Metrics = &models.MetricSeries{ResourceID: "i-1", Points: []models.MetricPoint{{Timestamp: fixedNow, Value: 12.5}}}

		env, err := d.Dispatch(context.Background(),
			command([]string{"AWS"}, []string{"metrics"}, "get", models.Parameters{"instance-id": models.Scalar(`"i-1"`)}),
			map[string]gateway.Gateway{gateway.PlatformAWS: aws},
			Options{})
		require.NoError(t, err)

		q := aws.Calls()[0].Arg.(gateway.MetricQuery)
		assert.Equal(t, "i-1", q.ResourceID)
		assert.Equal(t, "CPUUtilization", q.MetricName)
		assert.Equal(t, 24*time.Hour, q.End.Sub(q.Start))
		assert.Contains(t, env.Data, "aws_metrics")
	})

	t.Run("azure defaults", func(t *testing.T) {
		d, _ := newDispatcher(t)
		azure := gatewaytest.New(gateway.PlatformAzure)

		env, err := d.Dispatch(context.Background(),
			command([]string{"Azure"}, []string{"cpu"}, "get", models.Parameters{
				"resource_group": models.Scalar("rg"),
				"vm_name":        models.Scalar("web-1"),
			}),
			map[string]gateway.Gateway{gateway.PlatformAzure: azure},
			Options{})
		require.NoError(t, err)

		q := azure.Calls()[0].Arg.(gateway.MetricQuery)
		assert.Equal(t, "Percentage CPU", q.MetricName)
		assert.Equal(t, "rg", q.ResourceGroup)
		assert.Equal(t, "web-1", q.ResourceName)

		require.NotNil(t, env.Details)
		assert.Equal(t, models.StatusEmpty, env.Details.Status)
		assert.Contains(t, env.Details.Context, "azure_time_range")
	})

	t.Run("instance not found", func(t *testing.T) {
		d, _ := newDispatcher(t)
		aws := gatewaytest.New(gateway.PlatformAWS)
		aws.Errors[OpGetMetrics] = fmt.Errorf("%w: instance i-404", gateway.ErrNotFound)

		env, err := d.Dispatch(context.Background(),
			command([]string{"AWS"}, []string{"metrics"}, "get", models.Parameters{"instance-id": models.Scalar("i-404")}),
			map[string]gateway.Gateway{gateway.PlatformAWS: aws},
			Options{})
		require.NoError(t, err)

		assert.Empty(t, env.Errors)
		require.NotNil(t, env.Details)
		assert.Equal(t, models.StatusError, env.Details.Status)
		assert.Contains(t, env.Details.PossibleReasons, "The instance has been terminated")
		assert.Equal(t, "i-404", env.Details.Context["aws_instance_id"])
		assert.Equal(t, "Instance not found", env.Message)
	})

	t.Run("missing parameter is an operation error", func(t *testing.T) {
		d, _ := newDispatcher(t)
		aws := gatewaytest.New(gateway.PlatformAWS)
		aws.Errors[OpGetMetrics] = fmt.Errorf("%w: instance-id", gateway.ErrMissingParameter)

		env, err := d.Dispatch(context.Background(),
			command([]string{"AWS"}, []string{"metrics"}, "get", nil),
			map[string]gateway.Gateway{gateway.PlatformAWS: aws},
			Options{})
		require.NoError(t, err)

		require.Len(t, env.Errors, 1)
		assert.Equal(t, "MISSING_PARAMETER: instance-id", env.Errors[0].Message)
	})
}

func TestDispatch_ErrorOutranksEmpty(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Errors[OpGetResourceStatus] = fmt.Errorf("%w: i-9", gateway.ErrNotFound)

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS"}, []string{"s3", "ec2"}, "status", models.Parameters{"instance-id": models.Scalar("i-9")}),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{})
	require.NoError(t, err)

	require.NotNil(t, env.Details)
	assert.Equal(t, models.StatusError, env.Details.Status)
	assert.Contains(t, env.Details.PossibleReasons, "No S3 buckets exist in your AWS account")
	assert.Contains(t, env.Details.PossibleReasons, "The instance ID is incorrect")
	assert.Equal(t, "Instance not found", env.Message)
}

func TestDispatch_ActionsNotifyObservers(t *testing.T) {
	audit := &recordingObserver{}
	failing := &recordingObserver{err: errors.New("sns throttled")}
	d, log := newDispatcher(t, WithObservers(audit, failing))

	azure := gatewaytest.New(gateway.PlatformAzure)
	azure.Action = &models.ActionResult{
		ResourceID:    "rg/web-1",
		Action:        OpStop,
		Status:        models.StatusSuccess,
		PreviousState: "running",
		CurrentState:  "stopped",
	}

	env, err := d.Dispatch(context.Background(),
		command([]string{"Azure"}, []string{"vm"}, "stop", models.Parameters{
			"resource_group": models.Scalar("rg"),
			"vm_name":        models.Scalar("web-1"),
		}),
		map[string]gateway.Gateway{gateway.PlatformAzure: azure},
		Options{RequestID: "req-9"})
	require.NoError(t, err)

	assert.Equal(t, azure.Action, env.Data["azure_vm_action"])
	assert.Empty(t, env.Errors)

	require.Len(t, audit.events, 1)
	event := audit.events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "req-9", event.RequestID)
	assert.Equal(t, "azure", event.Platform)
	assert.Equal(t, "rg/web-1", event.ResourceID)
	assert.Equal(t, OpStop, event.Action)
	assert.Equal(t, models.StatusSuccess, event.Status)
	assert.Equal(t, "stopped", event.CurrentState)
	assert.Equal(t, fixedNow, event.OccurredAt)

	assert.Len(t, failing.events, 1)
	assert.Contains(t, log.warns, "Action observer failed")
}

func TestDispatch_FailedActionIsRecorded(t *testing.T) {
	audit := &recordingObserver{}
	d, _ := newDispatcher(t, WithObservers(audit))
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Errors[OpStart] = errors.New("IncorrectInstanceState")

	env, err := d.Dispatch(context.Background(),
		command([]string{"AWS"}, []string{"ec2"}, "start", models.Parameters{"instance-id": models.Scalar("i-1")}),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws},
		Options{})
	require.NoError(t, err)

	require.Len(t, env.Errors, 1)
	assert.Equal(t, OpStart, env.Errors[0].Operation)
	require.Len(t, audit.events, 1)
	assert.Equal(t, models.StatusError, audit.events[0].Status)
	assert.Equal(t, "IncorrectInstanceState", audit.events[0].Message)
	assert.Equal(t, "i-1", audit.events[0].ResourceID)
}

func TestDispatch_GroupsAndRecorder(t *testing.T) {
	rec := &countingRecorder{}
	d, _ := newDispatcher(t, WithRecorder(rec))
	aws := gatewaytest.New(gateway.PlatformAWS)
	azure := gatewaytest.New(gateway.PlatformAzure)
	azure.Groups = []models.Group{{Name: "rg-web", Location: "eastus"}}

	env, err := d.Dispatch(context.Background(),
		command(nil, []string{"groups"}, "list", nil),
		map[string]gateway.Gateway{gateway.PlatformAWS: aws, gateway.PlatformAzure: azure},
		Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"aws:list_groups", "azure:list_groups"}, rec.dispatched)
	assert.Equal(t, azure.Groups, env.Data["azure_groups"])
	require.NotNil(t, env.Details)
	assert.Contains(t, env.Details.PossibleReasons, "No resource groups exist in your AWS account")
	assert.Equal(t, "Success", env.Message)
}

func TestDispatch_FreshEnvelopePerCall(t *testing.T) {
	d, _ := newDispatcher(t)
	aws := gatewaytest.New(gateway.PlatformAWS)
	aws.Instances = runningInstances()
	gateways := map[string]gateway.Gateway{gateway.PlatformAWS: aws}
	cmd := command([]string{"AWS"}, []string{"ec2"}, "list", nil)

	first, err := d.Dispatch(context.Background(), cmd, gateways, Options{})
	require.NoError(t, err)
	first.Data["tampered"] = true

	second, err := d.Dispatch(context.Background(), cmd, gateways, Options{})
	require.NoError(t, err)
	assert.NotContains(t, second.Data, "tampered")
}

func TestAvailableServices(t *testing.T) {
	got := AvailableServices(map[string]gateway.Gateway{
		gateway.PlatformAzure: gatewaytest.New(gateway.PlatformAzure),
	}, false)
	assert.Equal(t, map[string]bool{"aws": false, "azure": true, "llm": false}, got)
}
