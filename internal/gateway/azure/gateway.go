// Package azure implements the provider gateway on top of the Azure
// resource manager SDKs.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloudwise/internal/common/config"
	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/gateway"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Gateway serves Azure operations for one subscription.
type Gateway struct {
	clients        Clients
	subscriptionID string
	logger         Logger
	now            func() time.Time
}

var _ gateway.Gateway = (*Gateway)(nil)

// New authenticates with a service principal. The full credential set is
// required.
func New(cfg config.AzureConfig, log Logger) (*Gateway, error) {
	if !cfg.Configured() {
		return nil, apperrors.NewConfigurationError("Azure",
			"subscription_id, tenant_id, client_id and client_secret are required")
	}

	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Azure", err.Error())
	}
	clients, err := NewClients(cfg.SubscriptionID, cred)
	if err != nil {
		return nil, apperrors.NewConfigurationError("Azure", err.Error())
	}

	log.Info("Azure gateway initialized", map[string]interface{}{
		"subscriptionId": cfg.SubscriptionID,
	})
	return NewWithClients(clients, cfg.SubscriptionID, log), nil
}

func NewWithClients(clients Clients, subscriptionID string, log Logger) *Gateway {
	return &Gateway{
		clients:        clients,
		subscriptionID: subscriptionID,
		logger:         log,
		now:            time.Now,
	}
}

func (g *Gateway) Platform() string { return gateway.PlatformAzure }

func (g *Gateway) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return gateway.Observe(ctx, gateway.PlatformAzure, operation, fn)
}

func (g *Gateway) scope() string {
	return "/subscriptions/" + g.subscriptionID
}

func (g *Gateway) vmURI(group, name string) string {
	return fmt.Sprintf("%s/resourceGroups/%s/providers/Microsoft.Compute/virtualMachines/%s", g.scope(), group, name)
}

// resourceGroupOf extracts the group from an ARM resource ID.
func resourceGroupOf(id string) string {
	if id == "" {
		return ""
	}
	parsed, err := arm.ParseResourceID(id)
	if err != nil {
		return ""
	}
	return parsed.ResourceGroupName
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func wrapNotFound(ref gateway.ResourceRef, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: virtual machine %s: %v", gateway.ErrNotFound, ref, err)
	}
	return err
}

func requireVM(ref gateway.ResourceRef) error {
	switch {
	case ref.Group == "" && ref.Name == "":
		return fmt.Errorf("%w: resource_group and vm_name are required", gateway.ErrMissingParameter)
	case ref.Group == "":
		return fmt.Errorf("%w: resource_group is required", gateway.ErrMissingParameter)
	case ref.Name == "":
		return fmt.Errorf("%w: vm_name is required", gateway.ErrMissingParameter)
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func tags(in map[string]*string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = deref(v)
	}
	return out
}
