// cmd/cloudwise/commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"cloudwise/internal/app"
	"cloudwise/internal/common/config"
	"cloudwise/internal/common/logger"
	"cloudwise/internal/service"
	"cloudwise/pkg/registry"

	ae "cloudwise/internal/workers/cloud-query/analyze-error"
	dc "cloudwise/internal/workers/cloud-query/dispatch-command"
	iq "cloudwise/internal/workers/cloud-query/interpret-query"
	oc "cloudwise/internal/workers/cloud-query/optimize-costs"
)

// workerSchemas are the input schemas the registry entries must match.
var workerSchemas = map[string]string{
	iq.TaskType: iq.InputSchemaJSON,
	dc.TaskType: dc.InputSchemaJSON,
	ae.TaskType: ae.InputSchemaJSON,
	oc.TaskType: oc.InputSchemaJSON,
}

// newCLI builds the command tree. opts are passed to app.New for every
// command that needs the query service.
func newCLI(out io.Writer, opts ...app.Option) *cli.App {
	r := &runner{out: out, opts: opts}

	return &cli.App{
		Name:      "cloudwise",
		Usage:     "Ask AWS and Azure questions in plain language",
		Version:   fmt.Sprintf("%s (commit: %s)", version, commit),
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (defaults to configs/config.yaml)",
				EnvVars: []string{"CLOUDWISE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CLOUDWISE_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			r.queryCommand(),
			r.interpretCommand(),
			r.analyzeCommand(),
			r.optimizeCommand(),
			r.registryCommand(),
		},
	}
}

type runner struct {
	out  io.Writer
	opts []app.Option
}

// =============================================================================
// QUERY COMMANDS
// =============================================================================

func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "query",
			Aliases:  []string{"q"},
			Usage:    "Natural language request",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "start-date",
			Usage: "Cost window start (YYYY-MM-DD)",
		},
		&cli.StringFlag{
			Name:  "end-date",
			Usage: "Cost window end (YYYY-MM-DD)",
		},
	}
}

func queryRequest(c *cli.Context) service.QueryRequest {
	return service.QueryRequest{
		Query:     c.String("query"),
		StartDate: c.String("start-date"),
		EndDate:   c.String("end-date"),
		RequestID: "cli",
	}
}

func (r *runner) queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Interpret a request and run it against the configured clouds",
		Flags: queryFlags(),
		Action: func(c *cli.Context) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				env, err := a.Service.Query(ctx, queryRequest(c))
				if env != nil {
					if perr := r.print(env); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func (r *runner) interpretCommand() *cli.Command {
	return &cli.Command{
		Name:  "interpret",
		Usage: "Show the structured command for a request without running it",
		Flags: queryFlags(),
		Action: func(c *cli.Context) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				cmd, err := a.Service.Interpret(ctx, queryRequest(c))
				if err != nil {
					return err
				}
				return r.print(cmd)
			})
		},
	}
}

// =============================================================================
// ANALYSIS COMMANDS
// =============================================================================

func (r *runner) analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze-error",
		Usage: "Explain a cloud provider error and suggest fixes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "operation", Usage: "Operation that failed", Required: true},
			&cli.StringFlag{Name: "error", Aliases: []string{"e"}, Usage: "Provider error message", Required: true},
			&cli.StringFlag{Name: "platform", Usage: "aws or azure", Required: true},
			&cli.StringFlag{Name: "resource", Usage: "Affected resource, if known"},
		},
		Action: func(c *cli.Context) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				analysis, err := a.Service.AnalyzeError(ctx, service.AnalyzeRequest{
					Operation:    c.String("operation"),
					ErrorMessage: c.String("error"),
					Platform:     c.String("platform"),
					Resource:     c.String("resource"),
				})
				if err != nil {
					return err
				}
				return r.print(analysis)
			})
		},
	}
}

func (r *runner) optimizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "optimize-costs",
		Usage: "Recommend savings from current inventory and 30-day spend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Value:   service.PlatformAll,
				Usage:   "all, aws or azure",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "llm or heuristic (defaults to optimizer.strategy)",
			},
		},
		Action: func(c *cli.Context) error {
			return r.withApp(c, func(ctx context.Context, a *app.App) error {
				result, err := a.Service.OptimizeCosts(ctx, service.OptimizeRequest{
					Platform: c.String("platform"),
					Strategy: c.String("strategy"),
				})
				if err != nil {
					return err
				}
				return r.print(result)
			})
		},
	}
}

// =============================================================================
// REGISTRY COMMAND
// =============================================================================

func (r *runner) registryCommand() *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Inspect the activity registry",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Check the registry and compare its schemas with the workers",
				Flags:  []cli.Flag{registryPathFlag()},
				Action: r.validateRegistry,
			},
			{
				Name:  "update",
				Usage: "Set one field of an activity",
				Flags: []cli.Flag{
					registryPathFlag(),
					&cli.StringFlag{Name: "id", Usage: "Activity ID", Required: true},
					&cli.StringFlag{Name: "field", Usage: "status, version, displayName, description, category, timeout or retries", Required: true},
					&cli.StringFlag{Name: "value", Usage: "New value", Required: true},
				},
				Action: r.updateRegistry,
			},
			{
				Name:   "sync",
				Usage:  "Copy the workers' input schemas into the registry",
				Flags:  []cli.Flag{registryPathFlag()},
				Action: r.syncRegistry,
			},
		},
	}
}

func registryPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "path",
		Value: "configs/activity-registry.json",
		Usage: "Registry file",
	}
}

func (r *runner) validateRegistry(c *cli.Context) error {
	path := c.String("path")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	problems := reg.Validate()
	for taskType, schema := range workerSchemas {
		activity, ok := reg.Find(taskType)
		if !ok {
			problems = append(problems, fmt.Errorf("worker %s is not registered", taskType))
			continue
		}
		matches, err := activity.SchemaMatches(schema)
		if err != nil {
			problems = append(problems, fmt.Errorf("worker %s: %w", taskType, err))
		} else if !matches {
			problems = append(problems, fmt.Errorf("activity %s: inputSchema differs from worker %s", activity.ID, taskType))
		}
	}

	for _, p := range problems {
		fmt.Fprintf(r.out, "✗ %v\n", p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s: %d problem(s)", path, len(problems))
	}
	fmt.Fprintf(r.out, "✓ %s: %d activities valid\n", path, len(reg.Activities))
	return nil
}

func (r *runner) updateRegistry(c *cli.Context) error {
	path := c.String("path")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Update(c.String("id"), c.String("field"), c.String("value")); err != nil {
		return err
	}
	if err := reg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Updated activity %s, field %s to %s\n", c.String("id"), c.String("field"), c.String("value"))
	return nil
}

func (r *runner) syncRegistry(c *cli.Context) error {
	path := c.String("path")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	changed := 0
	for taskType, schema := range workerSchemas {
		updated, err := reg.SyncInputSchema(taskType, schema)
		if err != nil {
			return err
		}
		if updated {
			fmt.Fprintf(r.out, "updated inputSchema of %s\n", taskType)
			changed++
		}
	}
	if changed == 0 {
		fmt.Fprintf(r.out, "%s is up to date\n", path)
		return nil
	}
	return reg.Save(path)
}

// =============================================================================
// HELPERS
// =============================================================================

// withApp loads configuration, wires the service and runs fn until it returns
// or the process is interrupted.
func (r *runner) withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	zapLog := logger.New(c.String("log-level"), "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, r.opts...)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Close()

	return fn(ctx, a)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func (r *runner) print(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
