package patterns

import (
	"regexp"

	"github.com/steveyegge/agentscan/internal/types"
)

// EnvContribution is the weight of a provider API-key variable.
const EnvContribution = 0.05

func env(expr, desc string) types.PatternDefinition {
	return types.PatternDefinition{
		Pattern:     regexp.MustCompile(`^(?:` + expr + `)$`),
		Type:        types.EvidenceEnvVar,
		Confidence:  EnvContribution,
		Description: desc,
	}
}

var envPatterns = []types.PatternDefinition{
	env(`OPENAI_API_KEY`, "OpenAI API key"),
	env(`ANTHROPIC_API_KEY`, "Anthropic API key"),
	env(`AZURE_OPENAI_(?:API_)?KEY`, "Azure OpenAI API key"),
	env(`GOOGLE_API_KEY|GEMINI_API_KEY`, "Google Gemini API key"),
	env(`COHERE_API_KEY|CO_API_KEY`, "Cohere API key"),
	env(`MISTRAL_API_KEY`, "Mistral API key"),
	env(`GROQ_API_KEY`, "Groq API key"),
	env(`HF_TOKEN|HUGGINGFACEHUB_API_TOKEN|HUGGING_FACE_HUB_TOKEN`, "Hugging Face token"),
	env(`LANGCHAIN_API_KEY|LANGSMITH_API_KEY`, "LangSmith API key"),
	env(`TOGETHER_API_KEY`, "Together AI API key"),
	env(`REPLICATE_API_TOKEN`, "Replicate API token"),
}

// EnvPatterns returns the provider API-key variable patterns. Each pattern
// matches a whole variable name.
func EnvPatterns() []types.PatternDefinition {
	out := make([]types.PatternDefinition, len(envPatterns))
	copy(out, envPatterns)
	return out
}

// CapabilityPattern recognises a capability in source text.
type CapabilityPattern struct {
	Capability types.Capability
	Pattern    *regexp.Regexp
}

var capabilityPatterns = []CapabilityPattern{
	{
		Capability: types.CapabilityDatabaseAccess,
		Pattern: regexp.MustCompile(`\b(?:SQLDatabase(?:Toolkit)?|QuerySQLDataBaseTool|sqlalchemy|create_engine|psycopg2?|pymongo|sqlite3|` +
			`PrismaClient|mongoose\.connect|knex\(|database/sql|gorm\.Open|pgx\.Connect|sql\.Open)\b`),
	},
	{
		Capability: types.CapabilityEmailSend,
		Pattern: regexp.MustCompile(`(?i)\b(?:smtplib|send_?mail|sendgrid|GmailToolkit|GmailSendMessage|nodemailer|mailgun|` +
			`SendEmail(?:Command)?|net/smtp|resend\.emails)\b`),
	},
	{
		Capability: types.CapabilityAgentSpawning,
		Pattern: regexp.MustCompile(`\b(?:GroupChat(?:Manager)?|create_supervisor|create_swarm|handoffs?|spawn_agent|` +
			`sub_?agents?|subAgents|AgentTool|as_tool)\b`),
	},
	{
		Capability: types.CapabilityExternalAPI,
		Pattern: regexp.MustCompile(`(?:\brequests\.(?:get|post|put|patch|delete)\s*\(|\bhttpx\.|\baiohttp\.|\burllib\.request\b|` +
			`\bfetch\s*\(|\baxios\.|\bhttp\.(?:Get|Post|NewRequest)\b|\bRequestsGetTool\b|\bAPIChain\b)`),
	},
	{
		Capability: types.CapabilityCodeExecution,
		Pattern: regexp.MustCompile(`(?:\bPythonREPL(?:Tool)?\b|\bexec\s*\(|\beval\s*\(|\bsubprocess\.|\bos\.system\s*\(|` +
			`\bchild_process\b|\bexec\.Command\s*\(|\bcode_execution_config\b|\bLocalCommandLineCodeExecutor\b|\bCodeAgent\s*\()`),
	},
	{
		Capability: types.CapabilityFileWrite,
		Pattern: regexp.MustCompile(`(?:\bWriteFileTool\b|\bFileManagementToolkit\b|\bopen\s*\([^)]*["'][wa]b?\+?["']|` +
			`\bfs\.(?:writeFile|writeFileSync|appendFile)\b|\bos\.WriteFile\b|\bshutil\.(?:copy|move)\w*\s*\()`),
	},
}

// Capabilities returns the capability vocabulary in reporting order.
func Capabilities() []CapabilityPattern {
	out := make([]CapabilityPattern, len(capabilityPatterns))
	copy(out, capabilityPatterns)
	return out
}
