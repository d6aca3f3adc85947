// cloudwise is the operator CLI for the query service.
//
// Usage:
//
//	cloudwise query --query "show my running ec2 instances"
//	cloudwise analyze-error --operation list_instances --error "AccessDenied" --platform aws
//	cloudwise optimize-costs --platform aws --strategy heuristic
//	cloudwise registry validate --path configs/activity-registry.json
//	cloudwise registry update --id analyze-cloud-error --field status --value verified
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newCLI(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
