package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	flag "github.com/spf13/pflag"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./courier-mcp --config courierdash.yaml")
		os.Exit(2)
	}

	ctx := context.Background()

	// Start the server as a subprocess
	cmd := exec.Command(args[0], args[1:]...)
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "courierdash-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to the courier MCP server!")
	fmt.Println(usage)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit":
			fmt.Println("Goodbye!")
			return
		case "/tools":
			listTools(ctx, session)
			continue
		}

		tool, toolArgs, err := parseCommand(input)
		if err != nil {
			fmt.Println(err)
			continue
		}
		callTool(ctx, session, tool, toolArgs)
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

const usage = `Available commands:
  /tools                         - List available tools
  /metrics                       - Fetch and reconcile broker metrics
  /topics                        - List topics
  /subs                          - List subscriptions
  /history [topic|sub <name>] [limit] - Stored snapshots or samples
  /graph <cypher>                - Read-only Cypher query
  /topology                      - Subscription to topic edges
  /publish <topic> <message>...  - Publish one message per argument
  /pull <subscription> [max] [ack] - Pull messages, optionally acking them
  /exit                          - Exit the client
`

// parseCommand maps a REPL line to a tool call.
func parseCommand(input string) (string, map[string]any, error) {
	parts := strings.Fields(input)
	switch parts[0] {
	case "/metrics":
		return "get_metrics", map[string]any{}, nil
	case "/topics":
		return "list_topics", map[string]any{}, nil
	case "/subs":
		return "list_subscriptions", map[string]any{}, nil
	case "/topology":
		return "get_topology", map[string]any{}, nil

	case "/history":
		args := map[string]any{}
		rest := parts[1:]
		if len(rest) >= 2 && (rest[0] == "topic" || rest[0] == "sub") {
			key := "topic"
			if rest[0] == "sub" {
				key = "subscription"
			}
			args[key] = rest[1]
			rest = rest[2:]
		}
		if len(rest) > 0 {
			var limit int
			if _, err := fmt.Sscan(rest[0], &limit); err != nil {
				return "", nil, fmt.Errorf("invalid limit %q", rest[0])
			}
			args["limit"] = limit
		}
		return "get_history", args, nil

	case "/graph":
		cypher := strings.TrimSpace(strings.TrimPrefix(input, "/graph"))
		if cypher == "" {
			return "", nil, fmt.Errorf("usage: /graph <cypher>")
		}
		return "query_graph", map[string]any{"cypher": cypher}, nil

	case "/publish":
		if len(parts) < 3 {
			return "", nil, fmt.Errorf("usage: /publish <topic> <message>...")
		}
		return "publish", map[string]any{"topic": parts[1], "messages": parts[2:]}, nil

	case "/pull":
		if len(parts) < 2 {
			return "", nil, fmt.Errorf("usage: /pull <subscription> [max] [ack]")
		}
		args := map[string]any{"subscription": parts[1]}
		for _, p := range parts[2:] {
			if p == "ack" {
				args["ack"] = true
				continue
			}
			var n uint
			if _, err := fmt.Sscan(p, &n); err != nil {
				return "", nil, fmt.Errorf("invalid max %q", p)
			}
			args["max_messages"] = n
		}
		return "pull", args, nil
	}
	return "", nil, fmt.Errorf("unknown command %q, try /tools", parts[0])
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("❌ Error: ")
	} else {
		fmt.Printf("✅ Result: ")
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(indent(v.Text))
		default:
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}

// indent pretty-prints JSON text and returns anything else unchanged.
func indent(text string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}
	return buf.String()
}
