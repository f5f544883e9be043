// Package main implements the joltsyncctl CLI for operating a joltsyncd
// instance's introspection server: checking status, triggering a flush,
// and watching a live sync dashboard.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joltmail/joltsync/internal/monitor"
)

var (
	serverURL string
	version   = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "joltsyncctl",
	Short: "CLI for joltsyncd introspection server operations",
	Long: `joltsyncctl is a command-line interface for interacting with a running
joltsyncd instance. It provides commands for checking status, triggering a
flush, and watching a live sync dashboard.`,
	Version: version,
}

var watchInterval time.Duration

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9090", "joltsyncd introspection server URL")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "refresh interval")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current aggregate sync status",
	RunE:  runStatus,
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Trigger an immediate flush of all connections",
	RunE:  runFlush,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check joltsyncd server health",
	RunE:  runHealth,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a live sync status dashboard",
	RunE:  runWatch,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := monitor.NewStatusClient(serverURL)
	status, err := client.FetchStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch status from %s: %w", serverURL, err)
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runFlush(cmd *cobra.Command, args []string) error {
	url := serverURL + "/api/v1/flush"
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var flushResp struct {
		Flushed bool   `json:"flushed"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &flushResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if flushResp.Flushed {
		fmt.Println("flush complete")
	} else {
		fmt.Fprintf(os.Stderr, "flush failed: %s\n", flushResp.Error)
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := serverURL + "/health"

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	var healthResp struct {
		Status string `json:"status"`
		Dirty  bool   `json:"dirty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Dirty: %v\n", healthResp.Dirty)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	model := monitor.NewModel(serverURL, watchInterval)
	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}
