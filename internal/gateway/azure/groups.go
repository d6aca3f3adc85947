// internal/gateway/azure/groups.go
package azure

import (
	"context"

	"cloudwise/internal/models"
)

func (g *Gateway) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := g.observe(ctx, "list_groups", func(ctx context.Context) error {
		raw, err := g.clients.Resources.ListGroups(ctx)
		if err != nil {
			return err
		}
		groups = make([]models.Group, 0, len(raw))
		for _, rg := range raw {
			if rg == nil {
				continue
			}
			group := models.Group{
				ID:       deref(rg.ID),
				Name:     deref(rg.Name),
				Location: deref(rg.Location),
				Tags:     tags(rg.Tags),
			}
			if rg.Properties != nil {
				group.ProvisioningState = deref(rg.Properties.ProvisioningState)
			}
			groups = append(groups, group)
		}
		return nil
	})
	return groups, err
}
