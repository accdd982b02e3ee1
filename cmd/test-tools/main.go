// Command test-tools smoke-tests a courier-mcp binary against a live broker:
// it creates a scratch topic and subscription, moves one message through
// them and cleans up.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	flag "github.com/spf13/pflag"
)

func main() {
	server := flag.String("server", "", "courier-mcp binary (default: ./courier-mcp if present)")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	fmt.Println("🧪 Testing the courier MCP server")
	fmt.Println("=======================================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	serverPath := *server
	if serverPath == "" {
		serverPath = findServerBinary()
	}
	if serverPath == "" {
		log.Fatal("❌ MCP server binary not found. Run: go build -o courier-mcp ./cmd/courier-mcp")
	}
	fmt.Println("✅ Test 1: MCP server binary found")

	// Server flags follow "--"; COURIERDASH_* variables pass through.
	cmd := exec.Command(serverPath, flag.Args()...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MCP server: %v", err)
	}
	defer session.Close()
	fmt.Println("✅ Test 2: Connected to MCP server")

	fmt.Println("\n✓ Test 3: Listing available tools")
	listResult, err := session.ListTools(ctx, nil)
	if err != nil {
		log.Fatalf("❌ Failed to list tools: %v", err)
	}
	fmt.Printf("  Found %d tools:\n", len(listResult.Tools))
	for _, tool := range listResult.Tools {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	suffix := uuid.NewString()[:8]
	topic, sub := "smoke-"+suffix, "smoke-"+suffix+"-sub"

	steps := []struct {
		title string
		tool  string
		args  map[string]any
	}{
		{"get_metrics", "get_metrics", map[string]any{}},
		{"create_topic", "create_topic", map[string]any{"name": topic}},
		{"create_subscription", "create_subscription", map[string]any{"name": sub, "topic": topic}},
		{"publish", "publish", map[string]any{"topic": topic, "messages": []string{`{"smoke": true}`}}},
		{"pull with ack", "pull", map[string]any{"subscription": sub, "max_messages": 1, "ack": true}},
		{"get_metrics after traffic", "get_metrics", map[string]any{}},
		{"delete_subscription", "delete_subscription", map[string]any{"name": sub}},
		{"delete_topic", "delete_topic", map[string]any{"name": topic}},
	}

	failed := 0
	for i, step := range steps {
		fmt.Printf("\n✓ Test %d: %s\n", i+4, step.title)
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: step.tool, Arguments: step.args})
		switch {
		case err != nil:
			failed++
			fmt.Printf("  ❌ %s failed: %v\n", step.tool, err)
		case res.IsError:
			failed++
			fmt.Printf("  ❌ %s returned an error: %s\n", step.tool, preview(res))
		default:
			fmt.Printf("  ✅ %s\n", preview(res))
		}
	}

	if _, ok := toolNamed(listResult.Tools, "get_history"); ok {
		fmt.Printf("\n✓ Test %d: get_history\n", len(steps)+4)
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_history", Arguments: map[string]any{"limit": 5}})
		if err != nil || res.IsError {
			fmt.Printf("  ⚠️  History tool failed (may be an empty store): %v\n", err)
		} else {
			fmt.Printf("  ✅ %s\n", preview(res))
		}
	}

	fmt.Println("\n=======================================")
	if failed > 0 {
		fmt.Printf("❌ %d step(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("✅ All MCP tool calling tests complete!")
	fmt.Println("\n💡 To test interactively, run: go run ./cmd/mcp-client ./courier-mcp")
}

func toolNamed(tools []*mcp.Tool, name string) (*mcp.Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// preview returns the first text content, compacted and cut to 200 bytes.
func preview(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		text, ok := c.(*mcp.TextContent)
		if !ok {
			continue
		}
		out := text.Text
		var v any
		if json.Unmarshal([]byte(out), &v) == nil {
			if b, err := json.Marshal(v); err == nil {
				out = string(b)
			}
		}
		if len(out) > 200 {
			out = out[:200] + "..."
		}
		return out
	}
	return fmt.Sprintf("[%d content items]", len(res.Content))
}

func findServerBinary() string {
	candidates := []string{
		"./courier-mcp",
		"../../courier-mcp",
		"../../../courier-mcp",
	}
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			if _, err := os.Stat(abs); err == nil {
				return abs
			}
		}
	}
	return ""
}
