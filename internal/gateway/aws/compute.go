// internal/gateway/aws/compute.go
package aws

import (
	"context"
	"fmt"
	"sort"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ListInstances describes instances in the requested region, the configured
// regions, or every enabled region. Only regions with instances are kept. A
// region that fails is reported as a warning unless every region failed.
func (g *Gateway) ListInstances(ctx context.Context, q gateway.InstanceQuery) (*models.InstanceListing, error) {
	var listing *models.InstanceListing
	err := g.observe(ctx, "list_instances", func(ctx context.Context) error {
		regions, err := g.targetRegions(ctx, q.Region)
		if err != nil {
			return err
		}

		filters := toEC2Filters(q.Filters)
		found := map[string][]models.Instance{}
		var warnings []string
		var firstErr error

		for _, region := range regions {
			instances, err := g.describeRegion(ctx, region, filters)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				warnings = append(warnings, fmt.Sprintf("region %s: %v", region, err))
				continue
			}
			if len(instances) > 0 {
				found[region] = instances
			}
		}

		if firstErr != nil && len(warnings) == len(regions) {
			return firstErr
		}
		listing = models.NewInstanceListing(found, warnings)
		return nil
	})
	return listing, err
}

func (g *Gateway) targetRegions(ctx context.Context, requested string) ([]string, error) {
	if requested != "" {
		return []string{requested}, nil
	}
	if len(g.regions) > 0 {
		return g.regions, nil
	}

	out, err := g.clients.EC2(g.region).DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}
	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

func (g *Gateway) describeRegion(ctx context.Context, region string, filters []types.Filter) ([]models.Instance, error) {
	input := &ec2.DescribeInstancesInput{}
	if len(filters) > 0 {
		input.Filters = filters
	}

	var instances []models.Instance
	pager := ec2.NewDescribeInstancesPaginator(g.clients.EC2(region), input)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				instances = append(instances, toInstance(inst, region))
			}
		}
	}
	return instances, nil
}

func toEC2Filters(filters []models.Filter) []types.Filter {
	out := make([]types.Filter, 0, len(filters))
	for _, f := range filters {
		out = append(out, types.Filter{Name: aws.String(f.Name), Values: f.Values})
	}
	return out
}

func toInstance(inst types.Instance, region string) models.Instance {
	out := models.Instance{
		ID:         aws.ToString(inst.InstanceId),
		Type:       string(inst.InstanceType),
		Location:   region,
		PrivateIP:  aws.ToString(inst.PrivateIpAddress),
		PublicIP:   aws.ToString(inst.PublicIpAddress),
		LaunchTime: inst.LaunchTime,
	}
	if inst.State != nil {
		out.State = string(inst.State.Name)
	}
	if inst.Placement != nil {
		out.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	if len(inst.Tags) > 0 {
		out.Tags = make(map[string]string, len(inst.Tags))
		for _, tag := range inst.Tags {
			out.Tags[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
		out.Name = out.Tags["Name"]
	}
	return out
}

// GetResourceStatus reports the state and status checks of one instance.
func (g *Gateway) GetResourceStatus(ctx context.Context, ref gateway.ResourceRef) (*models.ResourceStatus, error) {
	if ref.ID == "" {
		return nil, missing("instance-id")
	}

	var status *models.ResourceStatus
	err := g.observe(ctx, "get_resource_status", func(ctx context.Context) error {
		out, err := g.clients.EC2(g.regionOr(ref.Region)).DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
			InstanceIds:         []string{ref.ID},
			IncludeAllInstances: aws.Bool(true),
		})
		if err != nil {
			if isNotFound(err) {
				return notFound(ref.ID, err)
			}
			return err
		}
		if len(out.InstanceStatuses) == 0 {
			return notFound(ref.ID, nil)
		}

		s := out.InstanceStatuses[0]
		status = &models.ResourceStatus{
			ID:          ref.ID,
			Name:        ref.ID,
			Statuses:    []models.StatusEntry{},
			LastUpdated: g.now().UTC(),
		}
		if s.InstanceState != nil {
			status.State = string(s.InstanceState.Name)
			status.Statuses = append(status.Statuses, models.StatusEntry{
				Code:          "InstanceState/" + status.State,
				Level:         "Info",
				DisplayStatus: status.State,
			})
		}
		status.Statuses = append(status.Statuses, summaryEntries("InstanceStatus", s.InstanceStatus)...)
		status.Statuses = append(status.Statuses, summaryEntries("SystemStatus", s.SystemStatus)...)
		return nil
	})
	return status, err
}

func summaryEntries(kind string, summary *types.InstanceStatusSummary) []models.StatusEntry {
	if summary == nil {
		return nil
	}
	level := "Info"
	if summary.Status == types.SummaryStatusImpaired {
		level = "Error"
	}
	entries := []models.StatusEntry{{
		Code:          kind + "/" + string(summary.Status),
		Level:         level,
		DisplayStatus: string(summary.Status),
	}}
	for _, d := range summary.Details {
		entries = append(entries, models.StatusEntry{
			Code:          kind + "/" + string(d.Name),
			Level:         level,
			DisplayStatus: string(d.Status),
		})
	}
	return entries
}

func (g *Gateway) Start(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "start", ref, func(ctx context.Context, client EC2API) (string, string, error) {
		out, err := client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{ref.ID}})
		if err != nil {
			return "", "", err
		}
		return stateChange(out.StartingInstances)
	})
}

func (g *Gateway) Stop(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "stop", ref, func(ctx context.Context, client EC2API) (string, string, error) {
		out, err := client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{ref.ID}})
		if err != nil {
			return "", "", err
		}
		return stateChange(out.StoppingInstances)
	})
}

// Restart reboots the instance. EC2 does not report a state transition for
// reboots.
func (g *Gateway) Restart(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "restart", ref, func(ctx context.Context, client EC2API) (string, string, error) {
		if _, err := client.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: []string{ref.ID}}); err != nil {
			return "", "", err
		}
		return "running", "rebooting", nil
	})
}

type actionFunc func(ctx context.Context, client EC2API) (previous, current string, err error)

func (g *Gateway) act(ctx context.Context, action string, ref gateway.ResourceRef, fn actionFunc) (*models.ActionResult, error) {
	if ref.ID == "" {
		return nil, missing("instance-id")
	}

	var result *models.ActionResult
	err := g.observe(ctx, action, func(ctx context.Context) error {
		previous, current, err := fn(ctx, g.clients.EC2(g.regionOr(ref.Region)))
		if err != nil {
			if isNotFound(err) {
				return notFound(ref.ID, err)
			}
			return err
		}
		result = &models.ActionResult{
			ResourceID:    ref.ID,
			Action:        action,
			Status:        models.StatusSuccess,
			Message:       fmt.Sprintf("%s requested for instance %s", action, ref.ID),
			PreviousState: previous,
			CurrentState:  current,
		}
		return nil
	})
	if err == nil {
		g.logger.Info("Instance action requested", map[string]interface{}{
			"action":     action,
			"instanceId": ref.ID,
			"state":      result.CurrentState,
		})
	}
	return result, err
}

func stateChange(changes []types.InstanceStateChange) (string, string, error) {
	if len(changes) == 0 {
		return "", "", nil
	}
	var previous, current string
	if changes[0].PreviousState != nil {
		previous = string(changes[0].PreviousState.Name)
	}
	if changes[0].CurrentState != nil {
		current = string(changes[0].CurrentState.Name)
	}
	return previous, current, nil
}
