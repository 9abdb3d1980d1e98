package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"
)

var (
	execCommand    string
	execSessionID  string
	execGatewayURL string
	execAPIKey     string
	execTimeout    int
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a single command against a running ganda server",
	Long: `Sends one command to the HTTP API of a running ganda server and
prints the result. Exit codes: 0 on success, 1 when the command fails,
2 when the request is denied (bad API key or rate limited), 3 when the
gateway is unreachable.`,
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVarP(&execCommand, "command", "c", "", "command line to execute (required)")
	execCmd.Flags().StringVar(&execSessionID, "session", "default", "session identifier")
	execCmd.Flags().StringVar(&execGatewayURL, "gateway-url", "http://localhost:8080", "base URL of the ganda server")
	execCmd.Flags().StringVar(&execAPIKey, "api-key", "", "API key for authentication")
	execCmd.Flags().IntVar(&execTimeout, "timeout", 30, "request timeout in seconds")
	_ = execCmd.MarkFlagRequired("command")
}

func runExec(_ *cobra.Command, _ []string) error {
	gatewayURL := strings.TrimRight(goutils.Env("GANDA_GATEWAY_URL", execGatewayURL), "/")
	apiKey := goutils.Env("GANDA_API_KEY", execAPIKey)

	body, err := json.Marshal(map[string]string{
		"command":    execCommand,
		"session_id": execSessionID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, gatewayURL+"/v1/exec", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: time.Duration(execTimeout) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach gateway at %s: %v\n", gatewayURL, err)
		os.Exit(3)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusTooManyRequests:
		fmt.Fprintf(os.Stderr, "error: request denied (%s)\n", resp.Status)
		os.Exit(2)
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		fmt.Fprintf(os.Stderr, "error: gateway unavailable (%s)\n", resp.Status)
		os.Exit(3)
	case resp.StatusCode != http.StatusOK:
		fmt.Fprintf(os.Stderr, "error: unexpected response (%s)\n", resp.Status)
		os.Exit(1)
	}

	var result struct {
		SessionID  string `json:"session_id"`
		Success    bool   `json:"success"`
		Output     string `json:"output"`
		WorkingDir string `json:"working_dir"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if result.Output != "" {
		fmt.Println(result.Output)
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
