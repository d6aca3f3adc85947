// internal/gateway/azure/storage.go
package azure

import (
	"context"

	"cloudwise/internal/models"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
)

// ListStorage lists storage accounts. Azure does not report account size or
// blob counts through the management plane, so both stay zero.
func (g *Gateway) ListStorage(ctx context.Context) (*models.StorageListing, error) {
	var listing *models.StorageListing
	err := g.observe(ctx, "list_storage", func(ctx context.Context) error {
		accounts, err := g.clients.Storage.ListAccounts(ctx)
		if err != nil {
			return err
		}

		buckets := make([]models.Bucket, 0, len(accounts))
		for _, a := range accounts {
			if a == nil {
				continue
			}
			buckets = append(buckets, toBucket(a))
		}
		listing = models.NewStorageListing(buckets, nil)
		return nil
	})
	return listing, err
}

func toBucket(a *armstorage.Account) models.Bucket {
	b := models.Bucket{
		Name:          deref(a.Name),
		Region:        deref(a.Location),
		ResourceGroup: resourceGroupOf(deref(a.ID)),
		Tags:          tags(a.Tags),
	}
	if a.Kind != nil {
		b.Kind = string(*a.Kind)
	}
	if a.SKU != nil && a.SKU.Name != nil {
		b.SKU = string(*a.SKU.Name)
	}
	if p := a.Properties; p != nil {
		b.CreationDate = p.CreationTime
		if p.ProvisioningState != nil {
			b.ProvisioningState = string(*p.ProvisioningState)
		}
	}
	return b
}
