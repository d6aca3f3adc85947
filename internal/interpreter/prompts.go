// internal/interpreter/prompts.go
package interpreter

const jsonSystemPrompt = "You are a cloud infrastructure assistant that turns natural language requests " +
	"into structured commands for AWS and Azure resource management. Always return valid JSON."

const jsonPromptTemplate = `Convert the request below into a structured command.

Available cloud platforms: %s
Request: %s
Current context: %s

Reply with ONLY a JSON object of this shape:
{
  "platforms": ["AWS" and/or "Azure"],
  "resources": ["lowercase resource types such as ec2, s3, vm, storage, costs, metrics, resourcegroups"],
  "action": "list | describe | status | start | stop | restart | get_metrics | get_costs",
  "parameters": {
    "region": "region if one is named",
    "filters": [{"Name": "provider filter name", "Values": ["value"]}],
    "timeframe": "LastWeek or LastMonth for relative cost windows",
    "start_date": "YYYY-MM-DD",
    "end_date": "YYYY-MM-DD"
  }
}
Omit parameters the request does not mention.

Examples:
"show all my AWS resources" ->
{"platforms":["AWS"],"resources":["ec2","s3","costs"],"action":"list","parameters":{}}
"list EC2 instances and S3 buckets in eu-west-2" ->
{"platforms":["AWS"],"resources":["ec2","s3"],"action":"list","parameters":{"region":"eu-west-2"}}
"show my AWS costs and running instances" ->
{"platforms":["AWS"],"resources":["costs","ec2"],"action":"list","parameters":{"filters":[{"Name":"instance-state-name","Values":["running"]}]}}
"show all my Azure VMs and storage accounts" ->
{"platforms":["Azure"],"resources":["vm","storage"],"action":"list","parameters":{}}
"get Azure costs for last week" ->
{"platforms":["Azure"],"resources":["costs"],"action":"list","parameters":{"timeframe":"LastWeek"}}
`

const textSystemPrompt = `You are CloudWise, an assistant for managing AWS and Azure resources.
Always use lowercase resource names (ec2, s3, vm, storage, costs, metrics).
For EC2 requests use standard AWS filter names such as instance-state-name, instance-type, vpc-id and tag:Name.
For cost requests always give a time range.`

const textPromptTemplate = `User Request: %s

Available Cloud Platforms: %s
Current Context: %s

Answer with exactly these sections and nothing else:

Platforms:
- one platform per line (AWS, Azure)

Resources:
- one lowercase resource per line: ec2, s3, vm, storage, costs, metrics, resourcegroups

Action:
- describe for listings, get_metrics for metrics, get_costs for costs, status, start, stop or restart

Parameters:
- key: value, one per line, values quoted; lists in brackets
  instance-state-name: ["running"]
  instance-type: ["t3.micro"]
  vpc-id: ["vpc-123456"]
  tag:Name: ["web"]
  instance-id: "i-1234567890abcdef0"
  metric_name: "CPUUtilization" (or NetworkIn, NetworkOut, DiskReadOps, DiskWriteOps)
  start_date: "YYYY-MM-DD"
  end_date: "YYYY-MM-DD"
`

// commandSchema is advisory: violations are logged, never fatal.
const commandSchema = `{
  "type": "object",
  "required": ["platforms", "resources", "action"],
  "properties": {
    "platforms": {"type": ["array", "string"], "items": {"type": "string"}},
    "resources": {"type": ["array", "string"], "items": {"type": "string"}},
    "action": {"type": "string"},
    "parameters": {"type": "object"}
  }
}`
