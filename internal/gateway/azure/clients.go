// internal/gateway/azure/clients.go
package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// ComputeAPI covers virtual machine reads and power operations. Long-running
// operations return once Azure reports completion.
type ComputeAPI interface {
	ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error)
	InstanceView(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachineInstanceView, error)
	Start(ctx context.Context, resourceGroup, name string) error
	PowerOff(ctx context.Context, resourceGroup, name string) error
	Restart(ctx context.Context, resourceGroup, name string) error
}

type StorageAPI interface {
	ListAccounts(ctx context.Context) ([]*armstorage.Account, error)
}

type ResourcesAPI interface {
	ListGroups(ctx context.Context) ([]*armresources.ResourceGroup, error)
}

type CostAPI interface {
	Query(ctx context.Context, scope string, definition armcostmanagement.QueryDefinition) (*armcostmanagement.QueryResult, error)
}

type MonitorAPI interface {
	Metrics(ctx context.Context, resourceURI string, options *armmonitor.MetricsClientListOptions) (*armmonitor.Response, error)
}

// Clients is the set of APIs one gateway uses.
type Clients struct {
	Compute   ComputeAPI
	Storage   StorageAPI
	Resources ResourcesAPI
	Cost      CostAPI
	Monitor   MonitorAPI
}

// NewClients builds SDK-backed APIs for one subscription.
func NewClients(subscriptionID string, cred azcore.TokenCredential) (Clients, error) {
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return Clients{}, fmt.Errorf("compute client: %w", err)
	}
	accounts, err := armstorage.NewAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		return Clients{}, fmt.Errorf("storage client: %w", err)
	}
	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		return Clients{}, fmt.Errorf("resources client: %w", err)
	}
	query, err := armcostmanagement.NewQueryClient(cred, nil)
	if err != nil {
		return Clients{}, fmt.Errorf("cost client: %w", err)
	}
	metrics, err := armmonitor.NewMetricsClient(subscriptionID, cred, nil)
	if err != nil {
		return Clients{}, fmt.Errorf("monitor client: %w", err)
	}

	return Clients{
		Compute:   &sdkCompute{client: vms},
		Storage:   &sdkStorage{client: accounts},
		Resources: &sdkResources{client: groups},
		Cost:      &sdkCost{client: query},
		Monitor:   &sdkMonitor{client: metrics},
	}, nil
}

type sdkCompute struct {
	client *armcompute.VirtualMachinesClient
}

func (c *sdkCompute) ListVMs(ctx context.Context, resourceGroup string) ([]*armcompute.VirtualMachine, error) {
	var vms []*armcompute.VirtualMachine
	if resourceGroup != "" {
		pager := c.client.NewListPager(resourceGroup, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			vms = append(vms, page.Value...)
		}
		return vms, nil
	}

	pager := c.client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		vms = append(vms, page.Value...)
	}
	return vms, nil
}

func (c *sdkCompute) InstanceView(ctx context.Context, resourceGroup, name string) (*armcompute.VirtualMachineInstanceView, error) {
	resp, err := c.client.InstanceView(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, err
	}
	return &resp.VirtualMachineInstanceView, nil
}

func (c *sdkCompute) Start(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.client.BeginStart(ctx, resourceGroup, name, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (c *sdkCompute) PowerOff(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.client.BeginPowerOff(ctx, resourceGroup, name, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

func (c *sdkCompute) Restart(ctx context.Context, resourceGroup, name string) error {
	poller, err := c.client.BeginRestart(ctx, resourceGroup, name, nil)
	if err != nil {
		return err
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return err
}

type sdkStorage struct {
	client *armstorage.AccountsClient
}

func (s *sdkStorage) ListAccounts(ctx context.Context) ([]*armstorage.Account, error) {
	var accounts []*armstorage.Account
	pager := s.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, page.Value...)
	}
	return accounts, nil
}

type sdkResources struct {
	client *armresources.ResourceGroupsClient
}

func (r *sdkResources) ListGroups(ctx context.Context) ([]*armresources.ResourceGroup, error) {
	var groups []*armresources.ResourceGroup
	pager := r.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		groups = append(groups, page.Value...)
	}
	return groups, nil
}

type sdkCost struct {
	client *armcostmanagement.QueryClient
}

func (c *sdkCost) Query(ctx context.Context, scope string, definition armcostmanagement.QueryDefinition) (*armcostmanagement.QueryResult, error) {
	resp, err := c.client.Usage(ctx, scope, definition, nil)
	if err != nil {
		return nil, err
	}
	return &resp.QueryResult, nil
}

type sdkMonitor struct {
	client *armmonitor.MetricsClient
}

func (m *sdkMonitor) Metrics(ctx context.Context, resourceURI string, options *armmonitor.MetricsClientListOptions) (*armmonitor.Response, error) {
	resp, err := m.client.List(ctx, resourceURI, options)
	if err != nil {
		return nil, err
	}
	return &resp.Response, nil
}
