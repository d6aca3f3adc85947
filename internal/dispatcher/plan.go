// internal/dispatcher/plan.go
package dispatcher

import (
	"strings"
	"unicode"

	"cloudwise/internal/gateway"
	"cloudwise/internal/models"
)

// Operation names, shared with gateway instrumentation and audit rows.
const (
	OpListInstances     = "list_instances"
	OpListStorage       = "list_storage"
	OpGetCostAndUsage   = "get_cost_and_usage"
	OpGetMetrics        = "get_metrics"
	OpGetResourceStatus = "get_resource_status"
	OpListGroups        = "list_groups"
	OpStart             = "start"
	OpStop              = "stop"
	OpRestart           = "restart"
)

var (
	computeTokens = tokenSet("ec2", "instance", "instances", "vm", "vms", "virtualmachine", "virtualmachines", "compute")
	storageTokens = tokenSet("s3", "storage", "blob", "blobs", "bucket", "buckets", "storageaccount", "storageaccounts")
	costTokens    = tokenSet("cost", "costs", "billing", "spend")
	metricTokens  = tokenSet("metric", "metrics", "cpu", "utilization")
	groupTokens   = tokenSet("resourcegroup", "resourcegroups", "resource_group", "resource_groups", "group", "groups")

	// readVerbs mark a read. A word starting with one of them ("listing",
	// "described") counts, and a read always wins over lifecycle words.
	readVerbs = []string{"list", "describe", "show", "get", "find", "display", "view", "fetch", "count", "check",
		"retrieve", "query", "search", "report", "inspect", "monitor", "analyze"}

	// readNouns may form a read action on their own, e.g. "costs".
	readNouns = tokenSet("cost", "costs", "usage", "spend", "billing", "metric", "metrics", "utilization", "cpu", "status")

	// Lifecycle verbs match whole words only.
	restartWords = tokenSet("restart", "reboot")
	startWords   = tokenSet("start")
	stopWords    = tokenSet("stop")
)

// labels maps an operation to its data key suffix per platform.
var labels = map[string]map[string]string{
	OpListInstances:     {gateway.PlatformAWS: "ec2", gateway.PlatformAzure: "vms"},
	OpListStorage:       {gateway.PlatformAWS: "s3", gateway.PlatformAzure: "storage"},
	OpGetCostAndUsage:   {gateway.PlatformAWS: "costs", gateway.PlatformAzure: "costs"},
	OpGetMetrics:        {gateway.PlatformAWS: "metrics", gateway.PlatformAzure: "metrics"},
	OpGetResourceStatus: {gateway.PlatformAWS: "instance_status", gateway.PlatformAzure: "vm_status"},
	OpListGroups:        {gateway.PlatformAWS: "groups", gateway.PlatformAzure: "groups"},
	OpStart:             {gateway.PlatformAWS: "instance_action", gateway.PlatformAzure: "vm_action"},
	OpStop:              {gateway.PlatformAWS: "instance_action", gateway.PlatformAzure: "vm_action"},
	OpRestart:           {gateway.PlatformAWS: "instance_action", gateway.PlatformAzure: "vm_action"},
}

// step is one planned operation and the resource token that selected it.
type step struct {
	Operation string
	Resource  string
}

// Plan resolves a command into the ordered, de-duplicated list of operations
// it asks for. An empty plan means the command is unsupported.
func Plan(cmd models.Command) []string {
	steps := plan(cmd)
	ops := make([]string, 0, len(steps))
	for _, s := range steps {
		ops = append(ops, s.Operation)
	}
	return ops
}

func plan(cmd models.Command) []step {
	if len(cmd.Resources) == 0 {
		return nil
	}
	action := strings.ToLower(strings.TrimSpace(cmd.Action))

	var steps []step
	seen := map[string]bool{}
	add := func(op, resource string) {
		if op == "" || seen[op] {
			return
		}
		seen[op] = true
		steps = append(steps, step{Operation: op, Resource: resource})
	}

	words := actionWords(action)
	read := isRead(action, words)

	for _, raw := range cmd.Resources {
		token := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case computeTokens[token]:
			add(computeOperation(action, words, read), token)
		case !read:
			// Non-compute resources only support reads.
		case storageTokens[token]:
			add(OpListStorage, token)
		case costTokens[token]:
			add(OpGetCostAndUsage, token)
		case metricTokens[token]:
			add(OpGetMetrics, token)
		case groupTokens[token]:
			add(OpListGroups, token)
		}
	}

	// Verbs can name a cost or metric read on their own.
	if read && strings.Contains(action, "cost") {
		add(OpGetCostAndUsage, "costs")
	}
	if read && strings.Contains(action, "metric") {
		add(OpGetMetrics, "metrics")
	}
	return steps
}

func computeOperation(action string, words []string, read bool) string {
	if read {
		switch {
		case strings.Contains(action, "metric"):
			return OpGetMetrics
		case strings.Contains(action, "cost"):
			return OpGetCostAndUsage
		case strings.Contains(action, "status"):
			return OpGetResourceStatus
		}
		return OpListInstances
	}
	switch {
	case hasWord(words, restartWords):
		return OpRestart
	case hasWord(words, startWords):
		return OpStart
	case hasWord(words, stopWords):
		return OpStop
	}
	return ""
}

// isRead reports an empty action, one with a read verb, or one made only of
// read nouns.
func isRead(action string, words []string) bool {
	if action == "" {
		return true
	}
	for _, w := range words {
		for _, verb := range readVerbs {
			if strings.HasPrefix(w, verb) {
				return true
			}
		}
	}
	for _, w := range words {
		if !readNouns[w] {
			return false
		}
	}
	return len(words) > 0
}

// actionWords splits an action on anything that is not a letter or digit.
func actionWords(action string) []string {
	return strings.FieldsFunc(action, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasWord(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// Label returns the data key suffix of an operation on a platform.
func Label(platform, operation string) string {
	if byPlatform, ok := labels[operation]; ok {
		if label, ok := byPlatform[platform]; ok {
			return label
		}
		return byPlatform[gateway.PlatformAWS]
	}
	return operation
}

// IsMutation reports the lifecycle operations.
func IsMutation(operation string) bool {
	return operation == OpStart || operation == OpStop || operation == OpRestart
}

func tokenSet(tokens ...string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
