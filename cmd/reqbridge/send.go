package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reqbridge/internal/client"
	"reqbridge/internal/core"
)

var (
	sendServer  string
	sendToken   string
	sendHeaders []string
	sendData    string
	sendVerbose bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "send <method> <url>",
		Short: "Send a request through a running reqbridge server",
		Args:  cobra.ExactArgs(2),
		Run:   runSend,
	}
	cmd.Flags().StringVarP(&sendServer, "server", "s", "http://localhost:8080", "reqbridge server address")
	cmd.Flags().StringVarP(&sendToken, "token", "t", "", "Bearer token (defaults to REQBRIDGE_TOKEN)")
	cmd.Flags().StringArrayVarP(&sendHeaders, "header", "H", []string{}, "Add header (can be used multiple times)")
	cmd.Flags().StringVarP(&sendData, "data", "d", "", "Request body")
	cmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Show response headers")
	rootCmd.AddCommand(cmd)
}

func runSend(cmd *cobra.Command, args []string) {
	method := strings.ToUpper(args[0])
	url := args[1]

	token := sendToken
	if token == "" {
		token = os.Getenv("REQBRIDGE_TOKEN")
	}
	if token == "" {
		printError("No token. Pass -t or set REQBRIDGE_TOKEN (obtain one via the login endpoint).")
		os.Exit(1)
	}

	c := client.New(sendServer)
	c.SetToken(token)

	result, err := c.Forward(context.Background(), core.ProxyRequest{
		URL:     url,
		Method:  method,
		Headers: parseHeaders(sendHeaders),
		Body:    sendData,
	})
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		os.Exit(1)
	}

	printResult(result)
}

func parseHeaders(raw []string) map[string]string {
	out := make(map[string]string)
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return out
}

func printResult(result *core.ProxyResult) {
	statusColor := color.New(color.FgGreen, color.Bold)
	switch {
	case result.Status >= 500:
		statusColor = color.New(color.FgRed, color.Bold)
	case result.Status >= 400:
		statusColor = color.New(color.FgYellow, color.Bold)
	case result.Status >= 300:
		statusColor = color.New(color.FgCyan, color.Bold)
	}

	statusColor.Printf("%d %s", result.Status, result.StatusText)
	color.New(color.Faint).Printf("  (%dms)\n", result.DurationMs)

	if sendVerbose {
		for key, value := range result.Headers {
			fmt.Printf("%s: %s\n", key, value)
		}
		fmt.Println()
	}

	body := result.Data
	var pretty map[string]any
	if json.Unmarshal([]byte(body), &pretty) == nil {
		if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			body = string(out)
		}
	}
	fmt.Println(body)
}

func printError(msg string) {
	color.New(color.FgRed).Fprintln(os.Stderr, msg)
}
