package patterns

import (
	"regexp"

	"github.com/steveyegge/agentscan/internal/types"
)

var (
	py   = types.LanguagePython
	ts   = types.LanguageTypeScript
	js   = types.LanguageJavaScript
	golg = types.LanguageGo
	java = types.LanguageJava
	cs   = types.LanguageCSharp
)

func imp(expr string, weight float64, desc string) types.PatternDefinition {
	return types.PatternDefinition{
		Pattern:     regexp.MustCompile(expr),
		Type:        types.EvidenceImport,
		Confidence:  weight,
		Description: desc,
	}
}

func inst(expr string, weight float64, desc string) types.PatternDefinition {
	return types.PatternDefinition{
		Pattern:     regexp.MustCompile(expr),
		Type:        types.EvidenceInstantiation,
		Confidence:  weight,
		Description: desc,
	}
}

// frameworks is the declarative detection table. Order is significant: it is
// the order in which sets are applied to a file and listed by the CLI.
var frameworks = []types.FrameworkPatternSet{
	{
		Framework:   "langchain",
		DisplayName: "LangChain",
		Languages:   []types.Language{py, ts, js, golg},
		Imports: []types.PatternDefinition{
			imp(`from\s+langchain\.agents\s+import`, 0.5, "LangChain agents import"),
			imp(`(?:from|import)\s+langchain(?:_[a-z]+)?\b`, 0.3, "LangChain import"),
			imp(`from\s+["']langchain/agents["']`, 0.5, "LangChain.js agents import"),
			imp(`(?:from\s+|require\(\s*)["']@?langchain(?:/[\w-]+)*["']`, 0.3, "LangChain.js import"),
			imp(`"github\.com/tmc/langchaingo/agents"`, 0.5, "langchaingo agents import"),
			imp(`"github\.com/tmc/langchaingo(?:/[\w-]+)*"`, 0.3, "langchaingo import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bAgentExecutor\s*\(`, 0.3, "AgentExecutor construction"),
			inst(`\bcreate_\w+_agent\s*\(`, 0.3, "agent factory call"),
			inst(`\binitialize_agent\s*\(`, 0.3, "initialize_agent call"),
			inst(`(?:new\s+AgentExecutor\b|AgentExecutor\.fromAgentAndTools\s*\()`, 0.3, "AgentExecutor construction (JS)"),
			inst(`\bcreate\w+Agent\s*\(`, 0.3, "agent factory call (JS)"),
			inst(`\bagents\.(?:NewOneShotAgent|NewConversationalAgent|NewOpenAIFunctionsAgent|NewExecutor)\s*\(`, 0.3, "langchaingo agent construction"),
		},
		Dependencies: []string{
			"langchain", "langchain-core", "langchain-community", "langchain-openai", "langchain-anthropic",
			"@langchain/core", "@langchain/community", "@langchain/openai", "@langchain/anthropic",
			"github.com/tmc/langchaingo",
		},
	},
	{
		Framework:   "langgraph",
		DisplayName: "LangGraph",
		Languages:   []types.Language{py, ts, js},
		Imports: []types.PatternDefinition{
			imp(`from\s+langgraph(?:\.\w+)*\s+import`, 0.5, "LangGraph import"),
			imp(`from\s+["']@langchain/langgraph(?:/[\w-]+)*["']`, 0.5, "LangGraph.js import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`(?:\bStateGraph\s*\(|new\s+StateGraph\b)`, 0.3, "StateGraph construction"),
			inst(`\b(?:create_react_agent|createReactAgent)\s*\(`, 0.3, "prebuilt ReAct agent"),
			inst(`\.(?:add_node|addNode)\s*\(`, 0.2, "graph node registration"),
		},
		ConfigFiles:  []string{"langgraph.json"},
		Dependencies: []string{"langgraph", "@langchain/langgraph"},
	},
	{
		Framework:   "crewai",
		DisplayName: "CrewAI",
		Languages:   []types.Language{py},
		Imports: []types.PatternDefinition{
			imp(`from\s+crewai(?:\.\w+)*\s+import`, 0.5, "CrewAI import"),
			imp(`^\s*import\s+crewai\b`, 0.5, "CrewAI module import"),
			imp(`from\s+crewai_tools\s+import`, 0.2, "CrewAI tools import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bCrew\s*\(`, 0.3, "Crew construction"),
			inst(`\bAgent\s*\(`, 0.2, "Agent construction"),
			inst(`\bTask\s*\(`, 0.1, "Task construction"),
			inst(`@CrewBase\b`, 0.3, "CrewBase decorator"),
		},
		ConfigFiles:  []string{"agents.yaml", "agents.yml", "tasks.yaml", "tasks.yml"},
		Dependencies: []string{"crewai", "crewai-tools"},
	},
	{
		Framework:   "autogen",
		DisplayName: "AutoGen",
		Languages:   []types.Language{py},
		Imports: []types.PatternDefinition{
			imp(`from\s+autogen(?:_agentchat|_core|_ext)?(?:\.\w+)*\s+import`, 0.5, "AutoGen import"),
			imp(`^\s*import\s+autogen\b`, 0.5, "AutoGen module import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bAssistantAgent\s*\(`, 0.3, "AssistantAgent construction"),
			inst(`\bUserProxyAgent\s*\(`, 0.3, "UserProxyAgent construction"),
			inst(`\bConversableAgent\s*\(`, 0.3, "ConversableAgent construction"),
			inst(`\bGroupChat(?:Manager)?\s*\(`, 0.2, "GroupChat construction"),
			inst(`\.initiate_chat\s*\(`, 0.2, "chat initiation"),
		},
		ConfigFiles:  []string{"OAI_CONFIG_LIST", "OAI_CONFIG_LIST.json"},
		Dependencies: []string{"pyautogen", "autogen", "autogen-agentchat", "autogen-core", "ag2"},
	},
	{
		Framework:   "openai-agents",
		DisplayName: "OpenAI Agents SDK",
		Languages:   []types.Language{py, ts, js},
		Imports: []types.PatternDefinition{
			imp(`from\s+agents\s+import\s+.*\b(?:Agent|Runner)\b`, 0.5, "OpenAI Agents SDK import"),
			imp(`from\s+["']@openai/agents(?:-[\w-]+)?["']`, 0.5, "OpenAI Agents SDK import (JS)"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bRunner\.run(?:_sync|_streamed)?\s*\(`, 0.3, "Runner invocation"),
			inst(`\bAgent\s*\(\s*name\s*=`, 0.3, "Agent construction"),
			inst(`new\s+Agent\s*\(\s*\{`, 0.3, "Agent construction (JS)"),
		},
		Dependencies: []string{"openai-agents", "@openai/agents"},
	},
	{
		Framework:   "llamaindex",
		DisplayName: "LlamaIndex",
		Languages:   []types.Language{py, ts, js},
		Imports: []types.PatternDefinition{
			imp(`from\s+llama_index\.core\.agent(?:\.\w+)*\s+import`, 0.5, "LlamaIndex agent import"),
			imp(`(?:from|import)\s+llama_index\b`, 0.3, "LlamaIndex import"),
			imp(`from\s+["'](?:llamaindex|@llamaindex/[\w-]+)(?:/[\w-]+)*["']`, 0.3, "LlamaIndex.TS import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\b(?:ReActAgent|FunctionAgent|FunctionCallingAgent|OpenAIAgent)(?:\.from_tools)?\s*\(`, 0.3, "LlamaIndex agent construction"),
			inst(`\bAgentWorkflow\b`, 0.3, "AgentWorkflow usage"),
		},
		Dependencies: []string{"llama-index", "llama-index-core", "llamaindex"},
	},
	{
		Framework:   "semantic-kernel",
		DisplayName: "Semantic Kernel",
		Languages:   []types.Language{py, cs},
		Imports: []types.PatternDefinition{
			imp(`from\s+semantic_kernel\.agents\s+import`, 0.5, "Semantic Kernel agents import"),
			imp(`(?:from|import)\s+semantic_kernel\b`, 0.3, "Semantic Kernel import"),
			imp(`using\s+Microsoft\.SemanticKernel\.Agents`, 0.5, "Semantic Kernel agents namespace"),
			imp(`using\s+Microsoft\.SemanticKernel\b`, 0.3, "Semantic Kernel namespace"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\b(?:ChatCompletionAgent|AzureAIAgent|OpenAIAssistantAgent)\s*[({]`, 0.3, "Semantic Kernel agent construction"),
			inst(`(?:Kernel\.CreateBuilder\s*\(|\bKernel\s*\(\s*\))`, 0.2, "kernel construction"),
		},
		Dependencies: []string{"semantic-kernel"},
	},
	{
		Framework:   "vercel-ai",
		DisplayName: "Vercel AI SDK",
		Languages:   []types.Language{ts, js},
		Imports: []types.PatternDefinition{
			imp(`(?:from\s+|require\(\s*)["']ai["']`, 0.4, "AI SDK import"),
			imp(`from\s+["']@ai-sdk/[\w-]+["']`, 0.2, "AI SDK provider import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\b(?:generateText|streamText)\s*\(`, 0.2, "text generation call"),
			inst(`\btool\s*\(\s*\{`, 0.3, "tool definition"),
			inst(`\b(?:maxSteps|stopWhen)\s*:`, 0.2, "multi-step agent loop"),
			inst(`new\s+(?:Experimental_)?Agent\s*\(`, 0.3, "Agent construction"),
		},
		Dependencies: []string{"ai", "@ai-sdk/openai", "@ai-sdk/anthropic", "@ai-sdk/google"},
	},
	{
		Framework:   "mastra",
		DisplayName: "Mastra",
		Languages:   []types.Language{ts, js},
		Imports: []types.PatternDefinition{
			imp(`from\s+["']@mastra/core(?:/[\w-]+)*["']`, 0.5, "Mastra import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`new\s+Agent\s*\(`, 0.3, "Agent construction"),
			inst(`new\s+Mastra\s*\(`, 0.3, "Mastra construction"),
			inst(`\bcreateTool\s*\(`, 0.2, "tool definition"),
		},
		Dependencies: []string{"@mastra/core", "mastra"},
	},
	{
		Framework:   "claude-agent-sdk",
		DisplayName: "Claude Agent SDK",
		Languages:   []types.Language{py, ts, js},
		Imports: []types.PatternDefinition{
			imp(`from\s+claude_(?:agent|code)_sdk\s+import`, 0.5, "Claude Agent SDK import"),
			imp(`from\s+["']@anthropic-ai/claude-agent-sdk["']`, 0.5, "Claude Agent SDK import (JS)"),
			imp(`from\s+["']@anthropic-ai/claude-code["']`, 0.4, "Claude Code SDK import (JS)"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bClaudeSDKClient\s*\(`, 0.3, "ClaudeSDKClient construction"),
			inst(`\bClaudeAgentOptions\s*\(`, 0.3, "agent options"),
			inst(`\bquery\s*\(\s*\{?\s*prompt`, 0.3, "query invocation"),
		},
		Dependencies: []string{"claude-agent-sdk", "claude-code-sdk", "@anthropic-ai/claude-agent-sdk", "@anthropic-ai/claude-code"},
	},
	{
		Framework:   "mcp",
		DisplayName: "MCP Server",
		Languages:   []types.Language{py, ts, js, golg},
		Imports: []types.PatternDefinition{
			imp(`from\s+(?:mcp|fastmcp)(?:\.\w+)*\s+import`, 0.4, "MCP import"),
			imp(`from\s+["']@modelcontextprotocol/sdk(?:/[\w.-]+)*["']`, 0.4, "MCP SDK import (JS)"),
			imp(`"github\.com/(?:mark3labs/mcp-go|modelcontextprotocol/go-sdk)(?:/\w+)*"`, 0.4, "MCP SDK import (Go)"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bFastMCP\s*\(`, 0.3, "FastMCP server"),
			inst(`new\s+(?:Mcp)?Server\s*\(`, 0.3, "MCP server construction (JS)"),
			inst(`\b(?:server\.NewMCPServer|mcp\.NewServer)\s*\(`, 0.3, "MCP server construction (Go)"),
			inst(`@\w+\.tool\s*\(`, 0.2, "tool registration"),
		},
		ConfigFiles: []string{"mcp.json", ".mcp.json"},
		Dependencies: []string{
			"mcp", "fastmcp", "@modelcontextprotocol/sdk",
			"github.com/mark3labs/mcp-go", "github.com/modelcontextprotocol/go-sdk",
		},
	},
	{
		Framework:   "smolagents",
		DisplayName: "smolagents",
		Languages:   []types.Language{py},
		Imports: []types.PatternDefinition{
			imp(`from\s+smolagents\s+import`, 0.5, "smolagents import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\b(?:CodeAgent|ToolCallingAgent)\s*\(`, 0.3, "agent construction"),
			inst(`^\s*@tool\b`, 0.1, "tool decorator"),
		},
		Dependencies: []string{"smolagents"},
	},
	{
		Framework:   "pydantic-ai",
		DisplayName: "Pydantic AI",
		Languages:   []types.Language{py},
		Imports: []types.PatternDefinition{
			imp(`from\s+pydantic_ai(?:\.\w+)*\s+import`, 0.5, "Pydantic AI import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bAgent\s*\(\s*["'](?:openai|anthropic|google-\w+|gemini|groq|mistral|ollama)[:"']`, 0.3, "Agent construction"),
			inst(`@\w+\.tool(?:_plain)?\b`, 0.2, "tool decorator"),
		},
		Dependencies: []string{"pydantic-ai", "pydantic-ai-slim"},
	},
	{
		Framework:   "google-adk",
		DisplayName: "Google ADK",
		Languages:   []types.Language{py},
		Imports: []types.PatternDefinition{
			imp(`from\s+google\.adk(?:\.\w+)*\s+import`, 0.5, "Google ADK import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\b(?:LlmAgent|SequentialAgent|ParallelAgent|LoopAgent)\s*\(`, 0.3, "ADK agent construction"),
			inst(`\bAgent\s*\(\s*(?:name|model)\s*=`, 0.2, "Agent construction"),
		},
		Dependencies: []string{"google-adk"},
	},
	{
		Framework:   "langchain4j",
		DisplayName: "LangChain4j",
		Languages:   []types.Language{java},
		Imports: []types.PatternDefinition{
			imp(`import\s+dev\.langchain4j\.service\.AiServices\s*;`, 0.5, "AiServices import"),
			imp(`import\s+dev\.langchain4j\.`, 0.3, "LangChain4j import"),
		},
		Instantiations: []types.PatternDefinition{
			inst(`\bAiServices\.(?:builder|create)\s*\(`, 0.3, "AiServices construction"),
			inst(`@Tool\b`, 0.2, "tool annotation"),
		},
	},
}
