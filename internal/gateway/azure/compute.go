// internal/gateway/azure/compute.go
package azure

import (
	"context"
	"fmt"
	"strings"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
)

// ListInstances lists VMs in the subscription or one resource group, keyed by
// location.
func (g *Gateway) ListInstances(ctx context.Context, q gateway.InstanceQuery) (*models.InstanceListing, error) {
	var listing *models.InstanceListing
	err := g.observe(ctx, "list_instances", func(ctx context.Context) error {
		vms, err := g.clients.Compute.ListVMs(ctx, q.ResourceGroup)
		if err != nil {
			return err
		}

		byLocation := map[string][]models.Instance{}
		for _, vm := range vms {
			if vm == nil {
				continue
			}
			inst := toInstance(vm)
			if q.Region != "" && !strings.EqualFold(inst.Location, q.Region) {
				continue
			}
			byLocation[inst.Location] = append(byLocation[inst.Location], inst)
		}
		listing = models.NewInstanceListing(byLocation, nil)
		return nil
	})
	return listing, err
}

func toInstance(vm *armcompute.VirtualMachine) models.Instance {
	id := deref(vm.ID)
	inst := models.Instance{
		ID:            id,
		Name:          deref(vm.Name),
		Location:      deref(vm.Location),
		ResourceGroup: resourceGroupOf(id),
		Tags:          tags(vm.Tags),
	}
	if p := vm.Properties; p != nil {
		inst.ProvisioningState = deref(p.ProvisioningState)
		if p.HardwareProfile != nil && p.HardwareProfile.VMSize != nil {
			inst.Type = string(*p.HardwareProfile.VMSize)
		}
		if p.StorageProfile != nil && p.StorageProfile.OSDisk != nil && p.StorageProfile.OSDisk.OSType != nil {
			inst.OSType = string(*p.StorageProfile.OSDisk.OSType)
		}
	}
	return inst
}

// GetResourceStatus reads the VM instance view. The power state is taken from
// the PowerState/* status code.
func (g *Gateway) GetResourceStatus(ctx context.Context, ref gateway.ResourceRef) (*models.ResourceStatus, error) {
	if err := requireVM(ref); err != nil {
		return nil, err
	}

	var status *models.ResourceStatus
	err := g.observe(ctx, "get_resource_status", func(ctx context.Context) error {
		view, err := g.clients.Compute.InstanceView(ctx, ref.Group, ref.Name)
		if err != nil {
			return wrapNotFound(ref, err)
		}

		status = &models.ResourceStatus{
			ID:          g.vmURI(ref.Group, ref.Name),
			Name:        ref.Name,
			Statuses:    []models.StatusEntry{},
			LastUpdated: g.now().UTC(),
		}
		for _, s := range view.Statuses {
			if s == nil {
				continue
			}
			entry := models.StatusEntry{
				Code:          deref(s.Code),
				DisplayStatus: deref(s.DisplayStatus),
				Message:       deref(s.Message),
			}
			if s.Level != nil {
				entry.Level = string(*s.Level)
			}
			if state, ok := strings.CutPrefix(entry.Code, "PowerState/"); ok {
				status.State = state
			}
			if s.Time != nil && s.Time.After(status.LastUpdated) {
				status.LastUpdated = s.Time.UTC()
			}
			status.Statuses = append(status.Statuses, entry)
		}
		return nil
	})
	return status, err
}

func (g *Gateway) Start(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "start", "running", ref, g.clients.Compute.Start)
}

// Stop powers the VM off. It stays allocated and keeps accruing compute cost.
func (g *Gateway) Stop(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "stop", "stopped", ref, g.clients.Compute.PowerOff)
}

func (g *Gateway) Restart(ctx context.Context, ref gateway.ResourceRef) (*models.ActionResult, error) {
	return g.act(ctx, "restart", "running", ref, g.clients.Compute.Restart)
}

func (g *Gateway) act(ctx context.Context, action, state string, ref gateway.ResourceRef, fn func(ctx context.Context, group, name string) error) (*models.ActionResult, error) {
	if err := requireVM(ref); err != nil {
		return nil, err
	}

	var result *models.ActionResult
	err := g.observe(ctx, action, func(ctx context.Context) error {
		if err := fn(ctx, ref.Group, ref.Name); err != nil {
			return wrapNotFound(ref, err)
		}
		result = &models.ActionResult{
			ResourceID:   g.vmURI(ref.Group, ref.Name),
			Action:       action,
			Status:       models.StatusSuccess,
			Message:      fmt.Sprintf("%s completed for virtual machine %s", action, ref),
			CurrentState: state,
		}
		return nil
	})
	if err == nil {
		g.logger.Info("Virtual machine action completed", map[string]interface{}{
			"action":        action,
			"resourceGroup": ref.Group,
			"vmName":        ref.Name,
		})
	}
	return result, err
}
