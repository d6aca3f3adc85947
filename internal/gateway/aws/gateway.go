// Package aws implements the provider gateway on top of aws-sdk-go-v2.
package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	awscommon "cloudwise/internal/common/aws"
	"cloudwise/internal/common/config"
	apperrors "cloudwise/internal/common/errors"
	"cloudwise/internal/gateway"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Options scope the gateway. An empty Regions list means every region enabled
// for the account.
type Options struct {
	Region  string
	Regions []string
}

// Gateway serves AWS operations. It is safe for concurrent use.
type Gateway struct {
	clients Clients
	region  string
	regions []string
	logger  Logger
	now     func() time.Time
}

var _ gateway.Gateway = (*Gateway)(nil)

// New builds a gateway from static credentials and verifies them with STS.
// Incomplete or rejected credentials are a configuration error.
func New(ctx context.Context, cfg config.AWSConfig, log Logger) (*Gateway, error) {
	if !cfg.Configured() {
		return nil, apperrors.NewConfigurationError("AWS", "access_key_id and secret_access_key are required")
	}

	awsCfg, err := awscommon.LoadConfig(ctx, cfg, cfg.Region)
	if err != nil {
		return nil, apperrors.NewConfigurationError("AWS", err.Error())
	}

	g := NewWithClients(NewClients(awsCfg, cfg.CostExplorerRegion), Options{Region: awsCfg.Region, Regions: cfg.Regions}, log)
	if err := g.VerifyIdentity(ctx); err != nil {
		return nil, apperrors.NewConfigurationError("AWS", err.Error())
	}
	return g, nil
}

// NewWithClients wires a gateway around existing clients.
func NewWithClients(clients Clients, opts Options, log Logger) *Gateway {
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	return &Gateway{
		clients: clients,
		region:  opts.Region,
		regions: opts.Regions,
		logger:  log,
		now:     time.Now,
	}
}

func (g *Gateway) Platform() string { return gateway.PlatformAWS }

// VerifyIdentity checks the credentials against STS.
func (g *Gateway) VerifyIdentity(ctx context.Context) error {
	out, err := g.clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	g.logger.Info("AWS credentials verified", map[string]interface{}{
		"account": aws.ToString(out.Account),
		"region":  g.region,
	})
	return nil
}

func (g *Gateway) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return gateway.Observe(ctx, gateway.PlatformAWS, operation, fn)
}

func (g *Gateway) regionOr(region string) string {
	if region != "" {
		return region
	}
	return g.region
}

// isNotFound matches EC2's InvalidInstanceID.NotFound and .Malformed codes.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return strings.HasPrefix(apiErr.ErrorCode(), "InvalidInstanceID")
	}
	return false
}

func notFound(id string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: instance %s: %v", gateway.ErrNotFound, id, err)
	}
	return fmt.Errorf("%w: instance %s", gateway.ErrNotFound, id)
}

func missing(param string) error {
	return fmt.Errorf("%w: %s is required", gateway.ErrMissingParameter, param)
}
