// internal/gateway/aws/fakes_test.go
package aws

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroups"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"
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

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("[INFO] %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("[WARN] %s %v", msg, fields)
}

// ==========================
// SDK Client Fakes
// ==========================

type MockEC2 struct {
	mock.Mock
}

func (m *MockEC2) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.DescribeRegionsOutput](args.Get(0)), args.Error(1)
}

func (m *MockEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.DescribeInstancesOutput](args.Get(0)), args.Error(1)
}

func (m *MockEC2) DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.DescribeInstanceStatusOutput](args.Get(0)), args.Error(1)
}

func (m *MockEC2) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.StartInstancesOutput](args.Get(0)), args.Error(1)
}

func (m *MockEC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.StopInstancesOutput](args.Get(0)), args.Error(1)
}

func (m *MockEC2) RebootInstances(ctx context.Context, params *ec2.RebootInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RebootInstancesOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[ec2.RebootInstancesOutput](args.Get(0)), args.Error(1)
}

type MockS3 struct {
	mock.Mock
}

func (m *MockS3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[s3.ListBucketsOutput](args.Get(0)), args.Error(1)
}

func (m *MockS3) GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	args := m.Called(ctx, params)
	return outOrNil[s3.GetBucketLocationOutput](args.Get(0)), args.Error(1)
}

func (m *MockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	return outOrNil[s3.ListObjectsV2Output](args.Get(0)), args.Error(1)
}

type fakeCostExplorer struct {
	mu     sync.Mutex
	pages  []*costexplorer.GetCostAndUsageOutput
	inputs []costexplorer.GetCostAndUsageInput
	err    error
}

func (f *fakeCostExplorer) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, *params)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[len(f.inputs)-1]
	return page, nil
}

type fakeCloudWatch struct {
	input *cloudwatch.GetMetricStatisticsInput
	out   *cloudwatch.GetMetricStatisticsOutput
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.input = params
	return f.out, nil
}

type fakeResourceGroups struct {
	pages []*resourcegroups.ListGroupsOutput
	calls int
}

func (f *fakeResourceGroups) ListGroups(ctx context.Context, params *resourcegroups.ListGroupsInput, optFns ...func(*resourcegroups.Options)) (*resourcegroups.ListGroupsOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeSTS struct {
	err error
}

func (f *fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	account := "123456789012"
	return &sts.GetCallerIdentityOutput{Account: &account}, nil
}

func outOrNil[T any](v interface{}) *T {
	if v == nil {
		return nil
	}
	return v.(*T)
}

// ==========================
// Test Helper Functions
// ==========================

type testClients struct {
	ec2   map[string]*MockEC2
	s3    map[string]*MockS3
	cw    *fakeCloudWatch
	ce    *fakeCostExplorer
	rg    *fakeResourceGroups
	sts   *fakeSTS
	built Clients
}

func newTestClients(regions ...string) *testClients {
	tc := &testClients{
		ec2: map[string]*MockEC2{},
		s3:  map[string]*MockS3{},
		cw:  &fakeCloudWatch{},
		ce:  &fakeCostExplorer{},
		rg:  &fakeResourceGroups{},
		sts: &fakeSTS{},
	}
	for _, r := range regions {
		tc.ec2[r] = new(MockEC2)
		tc.s3[r] = new(MockS3)
	}
	tc.built = Clients{
		EC2:            func(region string) EC2API { return tc.ec2[region] },
		S3:             func(region string) S3API { return tc.s3[region] },
		CloudWatch:     func(region string) CloudWatchAPI { return tc.cw },
		CostExplorer:   tc.ce,
		ResourceGroups: tc.rg,
		STS:            tc.sts,
	}
	return tc
}

func (tc *testClients) gateway(t *testing.T, opts Options) *Gateway {
	return NewWithClients(tc.built, opts, &TestLogger{t: t})
}
