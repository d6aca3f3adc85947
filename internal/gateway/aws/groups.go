// internal/gateway/aws/groups.go
package aws

import (
	"context"

	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroups"
)

func (g *Gateway) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := g.observe(ctx, "list_groups", func(ctx context.Context) error {
		groups = []models.Group{}
		input := &resourcegroups.ListGroupsInput{}
		for {
			out, err := g.clients.ResourceGroups.ListGroups(ctx, input)
			if err != nil {
				return err
			}
			for _, id := range out.GroupIdentifiers {
				groups = append(groups, models.Group{
					ID:       aws.ToString(id.GroupArn),
					Name:     aws.ToString(id.GroupName),
					Location: g.region,
				})
			}
			if aws.ToString(out.NextToken) == "" {
				return nil
			}
			input.NextToken = out.NextToken
		}
	})
	return groups, err
}
