// internal/models/models_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(t *testing.T, cmd Command)
	}{
		{
			name:  "canonical running instances",
			input: `{"platforms":["AWS"],"resources":["ec2"],"action":"list","parameters":{"filters":[{"Name":"instance-state-name","Values":["running"]}]}}`,
			validate: func(t *testing.T, cmd Command) {
				assert.Equal(t, []string{"AWS"}, cmd.Platforms)
				assert.Equal(t, []string{"ec2"}, cmd.Resources)
				assert.Equal(t, "list", cmd.Action)
				require.Contains(t, cmd.Parameters, "instance-state-name")
				v := cmd.Parameters["instance-state-name"]
				assert.True(t, v.IsList())
				assert.Equal(t, []string{"running"}, v.Values())
			},
		},
		{
			name:  "strings where lists expected",
			input: `{"platforms":"Azure","resources":"VMs","action":"describe","parameters":{"timeframe":"LastWeek"}}`,
			validate: func(t *testing.T, cmd Command) {
				assert.Equal(t, []string{"Azure"}, cmd.Platforms)
				assert.Equal(t, []string{"vms"}, cmd.Resources)
				assert.Equal(t, "LastWeek", cmd.Parameters.Get("timeframe"))
				assert.False(t, cmd.Parameters["timeframe"].IsList())
			},
		},
		{
			name:  "missing fields and non string scalars",
			input: `{"resources":[" S3 ",""],"parameters":{"max_results":10,"verbose":true,"empty":null}}`,
			validate: func(t *testing.T, cmd Command) {
				assert.Empty(t, cmd.Platforms)
				assert.NotNil(t, cmd.Platforms)
				assert.Equal(t, []string{"s3"}, cmd.Resources)
				assert.Equal(t, "10", cmd.Parameters.Get("max_results"))
				assert.Equal(t, "true", cmd.Parameters.Get("verbose"))
				assert.True(t, cmd.Parameters["empty"].IsEmpty())
			},
		},
		{
			name:  "filters that are not name/values objects stay raw",
			input: `{"parameters":{"filters":"tag:env=prod"}}`,
			validate: func(t *testing.T, cmd Command) {
				assert.Equal(t, "tag:env=prod", cmd.Parameters.Get("filters"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			require.NoError(t, json.Unmarshal([]byte(tt.input), &cmd))
			tt.validate(t, cmd)
		})
	}
}

func TestParamValue_JSONShape(t *testing.T) {
	params := Parameters{
		"region":              Scalar("eu-west-1"),
		"instance-state-name": List("running", "stopped"),
	}
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"region":"eu-west-1","instance-state-name":["running","stopped"]}`, string(raw))

	var back Parameters
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, params, back)
	assert.Equal(t, []string{"instance-state-name", "region"}, back.Keys())
}

func TestParamValue_IsEmpty(t *testing.T) {
	assert.True(t, Scalar("  ").IsEmpty())
	assert.True(t, List().IsEmpty())
	assert.True(t, List("", " ").IsEmpty())
	assert.False(t, List("", "x").IsEmpty())
	assert.True(t, ParamValue{}.IsEmpty())
	assert.Equal(t, "", ParamValue{}.String())
}

func TestCommand_Helpers(t *testing.T) {
	cmd := NewCommand()
	assert.True(t, cmd.IsEmpty())

	cmd.Platforms = []string{"AWS", "azure"}
	assert.True(t, cmd.HasPlatform("aws"))
	assert.True(t, cmd.HasPlatform("Azure"))
	assert.False(t, cmd.HasPlatform("gcp"))
}

func TestNewStorageListing_Totals(t *testing.T) {
	l := NewStorageListing([]Bucket{
		{Name: "a", Region: "us-east-1", Size: 10, ObjectCount: 2},
		{Name: "b", Region: "eu-west-1", Size: 5, ObjectCount: 1},
		{Name: "c"},
	}, []string{"bucket d: access denied"})

	assert.Equal(t, StatusSuccess, l.Status)
	assert.Equal(t, 3, l.Total)
	assert.Equal(t, int64(15), l.TotalSize)
	assert.Equal(t, int64(3), l.TotalObjects)
	assert.Len(t, l.Regions["unknown"], 1)
	assert.Len(t, l.Warnings, 1)

	assert.Equal(t, StatusEmpty, NewStorageListing(nil, nil).Status)
	assert.True(t, NewStorageListing(nil, nil).IsEmpty())
}

func TestNewInstanceListing_DropsEmptyRegions(t *testing.T) {
	l := NewInstanceListing(map[string][]Instance{
		"us-east-1": {{ID: "i-1"}, {ID: "i-2"}},
		"eu-west-1": {},
	}, nil)
	assert.Equal(t, 2, l.Total)
	assert.NotContains(t, l.Regions, "eu-west-1")
	assert.False(t, l.IsEmpty())
}

func TestCostReport_Add(t *testing.T) {
	r := NewCostReport(Period{Start: "2024-01-01", End: "2024-01-31"}, "USD")
	assert.True(t, r.IsEmpty())

	r.Add("Amazon EC2", "us-east-1", decimal.RequireFromString("10.50"))
	r.Add("Amazon EC2", "eu-west-1", decimal.RequireFromString("4.50"))
	r.Add("", "", decimal.RequireFromString("1"))
	r.AddResource("i-1", decimal.RequireFromString("3"))
	r.AddResource("", decimal.RequireFromString("3"))

	assert.True(t, r.TotalCost.Equal(decimal.NewFromInt(16)))
	assert.True(t, r.CostsByCategory["Amazon EC2"].Equal(decimal.NewFromInt(15)))
	assert.True(t, r.CostsByCategory["unknown"].Equal(decimal.NewFromInt(1)))
	assert.True(t, r.CostsByLocation["global"].Equal(decimal.NewFromInt(1)))
	assert.True(t, r.CostsByLocationCategory["eu-west-1"]["Amazon EC2"].Equal(decimal.RequireFromString("4.5")))
	assert.Len(t, r.CostsByResource, 1)
	assert.False(t, r.IsEmpty())
}

func TestDetails_AddReasons(t *testing.T) {
	d := &Details{Status: StatusEmpty}
	d.AddReasons("a", "b")
	d.AddReasons("b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, d.PossibleReasons)
}

func TestSections(t *testing.T) {
	s := Sections{"causes": {"expired credentials"}, "solutions": nil}
	assert.Equal(t, []string{}, s.Get("solutions"))
	assert.Equal(t, []string{}, s.Get("prevention"))
	assert.False(t, s.IsEmpty())
	assert.True(t, Sections{}.IsEmpty())
}
