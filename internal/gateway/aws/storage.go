// internal/gateway/aws/storage.go
package aws

import (
	"context"
	"fmt"

	"cloudwise/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ListStorage lists buckets with their region, size and object count.
//
// A bucket whose location cannot be read is skipped. A bucket whose contents
// cannot be listed is kept with zero totals. Both record one warning.
func (g *Gateway) ListStorage(ctx context.Context) (*models.StorageListing, error) {
	var listing *models.StorageListing
	err := g.observe(ctx, "list_storage", func(ctx context.Context) error {
		out, err := g.clients.S3(g.region).ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return err
		}

		buckets := make([]models.Bucket, 0, len(out.Buckets))
		var warnings []string

		for _, b := range out.Buckets {
			name := aws.ToString(b.Name)

			region, err := g.bucketRegion(ctx, name)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("bucket %s: location unavailable: %v", name, err))
				continue
			}

			bucket := models.Bucket{Name: name, Region: region, CreationDate: b.CreationDate}
			size, count, err := g.bucketContents(ctx, name, region)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("bucket %s: contents unavailable: %v", name, err))
			} else {
				bucket.Size = size
				bucket.ObjectCount = count
			}
			buckets = append(buckets, bucket)
		}

		if len(warnings) > 0 {
			g.logger.Warn("Some buckets could not be inspected", map[string]interface{}{
				"warnings": len(warnings),
				"buckets":  len(out.Buckets),
			})
		}
		listing = models.NewStorageListing(buckets, warnings)
		return nil
	})
	return listing, err
}

// bucketRegion maps the legacy location constraints: "" is us-east-1 and "EU"
// is eu-west-1.
func (g *Gateway) bucketRegion(ctx context.Context, bucket string) (string, error) {
	loc, err := g.clients.S3(g.region).GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", err
	}
	switch region := string(loc.LocationConstraint); region {
	case "":
		return "us-east-1", nil
	case "EU":
		return "eu-west-1", nil
	default:
		return region, nil
	}
}

func (g *Gateway) bucketContents(ctx context.Context, bucket, region string) (int64, int64, error) {
	var size, count int64
	pager := s3.NewListObjectsV2Paginator(g.clients.S3(region), &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return 0, 0, err
		}
		for _, obj := range page.Contents {
			size += aws.ToInt64(obj.Size)
			count++
		}
	}
	return size, count, nil
}
