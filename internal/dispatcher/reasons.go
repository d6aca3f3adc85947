// internal/dispatcher/reasons.go
package dispatcher

import "cloudwise/internal/gateway"

// outcome is the envelope message and details for an empty or not-found
// result of one operation.
type outcome struct {
	Message string
	Reason  string
	Reasons []string
}

var emptyOutcomes = map[string]map[string]outcome{
	OpListInstances: {
		gateway.PlatformAWS: {
			Message: "No EC2 instances found",
			Reason:  "No EC2 instances match your query criteria. This could be because:",
			Reasons: []string{
				"No EC2 instances exist in your AWS account",
				"No instances match the specified filters",
				"Instances exist in regions not currently accessible",
			},
		},
		gateway.PlatformAzure: {
			Message: "No Azure VMs found",
			Reason:  "No Azure VMs match your query criteria. This could be because:",
			Reasons: []string{
				"No VMs exist in your Azure subscription",
				"No VMs exist in the specified resource group",
				"VMs exist but are not accessible with current permissions",
			},
		},
	},
	OpListStorage: {
		gateway.PlatformAWS: {
			Message: "No S3 buckets found",
			Reason:  "No S3 buckets were found. This could be because:",
			Reasons: []string{
				"No S3 buckets exist in your AWS account",
				"Buckets exist but are not accessible with current permissions",
				"Buckets exist in regions not currently accessible",
			},
		},
		gateway.PlatformAzure: {
			Message: "No Azure storage accounts found",
			Reason:  "No Azure storage accounts were found. This could be because:",
			Reasons: []string{
				"No storage accounts exist in your Azure subscription",
				"Storage accounts exist but are not accessible with current permissions",
				"Storage accounts exist in regions not currently accessible",
			},
		},
	},
	OpGetMetrics: {
		gateway.PlatformAWS: {
			Message: "No metrics data found",
			Reason:  "No metrics data found for the instance. This could be because:",
			Reasons: []string{
				"CloudWatch metrics are not enabled for this instance",
				"No metric data available for the last 24 hours",
				"The instance was stopped during this period",
				"Insufficient permissions to access CloudWatch metrics",
			},
		},
		gateway.PlatformAzure: {
			Message: "No metrics data found",
			Reason:  "No metrics data found for the VM. This could be because:",
			Reasons: []string{
				"The VM is not running",
				"Azure Monitor is not enabled for this VM",
				"No metric data available for the requested period",
				"Insufficient permissions to access metrics",
			},
		},
	},
	OpGetCostAndUsage: {
		gateway.PlatformAWS: {
			Message: "No cost data found",
			Reason:  "No AWS charges were reported for the period. This could be because:",
			Reasons: []string{
				"No billable usage occurred during the period",
				"Cost Explorer has not finished processing the period",
				"Cost Explorer is not enabled for this account",
				"Insufficient permissions to read billing data",
			},
		},
		gateway.PlatformAzure: {
			Message: "No cost data found",
			Reason:  "No Azure charges were reported for the period. This could be because:",
			Reasons: []string{
				"No billable usage occurred during the period",
				"Cost data for the period has not been processed yet",
				"The subscription type does not expose Cost Management data",
				"Insufficient permissions to read billing data",
			},
		},
	},
	OpListGroups: {
		gateway.PlatformAWS: {
			Message: "No resource groups found",
			Reason:  "No AWS resource groups were found. This could be because:",
			Reasons: []string{
				"No resource groups exist in your AWS account",
				"Resource groups exist in regions not currently accessible",
				"Insufficient permissions to list resource groups",
			},
		},
		gateway.PlatformAzure: {
			Message: "No resource groups found",
			Reason:  "No Azure resource groups were found. This could be because:",
			Reasons: []string{
				"No resource groups exist in your Azure subscription",
				"Resource groups exist but are not accessible with current permissions",
			},
		},
	},
}

var notFoundOutcomes = map[string]outcome{
	gateway.PlatformAWS: {
		Message: "Instance not found",
		Reason:  "The EC2 instance was not found. This could be because:",
		Reasons: []string{
			"The instance ID is incorrect",
			"The instance has been terminated",
			"The instance exists in a different region",
			"Insufficient permissions to access the instance",
		},
	},
	gateway.PlatformAzure: {
		Message: "VM not found",
		Reason:  "The Azure VM was not found. This could be because:",
		Reasons: []string{
			"The VM does not exist",
			"The VM exists in a different resource group",
			"Insufficient permissions to access the VM",
		},
	},
}

func emptyOutcome(platform, operation string) outcome {
	if byPlatform, ok := emptyOutcomes[operation]; ok {
		if o, ok := byPlatform[platform]; ok {
			return o
		}
	}
	return outcome{Message: "No results found", Reason: "The provider returned no data."}
}

func notFoundOutcome(platform string) outcome {
	if o, ok := notFoundOutcomes[platform]; ok {
		return o
	}
	return outcome{Message: "Resource not found", Reason: "The resource was not found."}
}
