// Aletheia CLI — a thin HTTP client over the daemon: start/stop/status plus
// event-log recall. The daemon is discovered through the port file it writes
// at startup.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/metaygn/aletheia/pkg/config"
	"github.com/metaygn/aletheia/pkg/version"
)

const requestTimeout = 5 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:           "aletheia",
		Short:         "Aletheia — metacognitive control runtime for coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newStartCmd(), newStopCmd(), newStatusCmd(), newRecallCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Full())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newStartCmd() *cobra.Command {
	var host string
	var port int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Spawn the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := daemonPort(); err == nil {
				fmt.Println("Daemon already running")
				return nil
			}

			daemonArgs := []string{"--host", host, "--port", strconv.Itoa(port)}
			if dbPath != "" {
				daemonArgs = append(daemonArgs, "--db-path", dbPath)
			}

			child := exec.Command("aletheiad", daemonArgs...)
			child.Stdout = nil
			child.Stderr = nil
			if err := child.Start(); err != nil {
				return fmt.Errorf("failed to spawn aletheiad: %w", err)
			}
			fmt.Printf("Spawned aletheiad (pid %d)\n", child.Process.Pid)
			return child.Process.Release()
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Bind host")
	cmd.Flags().IntVar(&port, "port", 0, "Bind port (0 = dynamic)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "SQLite database path")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Request graceful daemon shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := daemonPort()
			if err != nil {
				fmt.Println("Daemon not running")
				return nil
			}

			resp, err := httpClient().Post(daemonURL(port, "/admin/shutdown"), "application/json", nil)
			if err != nil {
				// Port file exists but nothing answers: clean up the stale file.
				cleanupPortFile()
				fmt.Println("Daemon not responding; removed stale port file")
				return nil
			}
			defer resp.Body.Close()
			fmt.Println("Shutdown requested")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := daemonPort()
			if err != nil {
				fmt.Println("Daemon: not running")
				return nil
			}

			resp, err := httpClient().Get(daemonURL(port, "/health"))
			if err != nil {
				cleanupPortFile()
				fmt.Println("Daemon: not running (stale port file removed)")
				return nil
			}
			defer resp.Body.Close()

			var health struct {
				Status  string `json:"status"`
				Version string `json:"version"`
				Kernel  string `json:"kernel"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
				return fmt.Errorf("malformed health response: %w", err)
			}
			fmt.Printf("Daemon: %s (port %d)\nVersion: %s\nKernel: %s\n",
				health.Status, port, health.Version, health.Kernel)
			return nil
		},
	}
}

func newRecallCmd() *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Full-text search over the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := daemonPort()
			if err != nil {
				return fmt.Errorf("daemon not running")
			}

			body, err := json.Marshal(map[string]any{"query": query, "limit": limit})
			if err != nil {
				return err
			}
			resp, err := httpClient().Post(daemonURL(port, "/memory/recall"), "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("recall request failed: %w", err)
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			var result struct {
				Events []struct {
					ID        string `json:"id"`
					SessionID string `json:"session_id"`
					EventType string `json:"event_type"`
					Payload   string `json:"payload"`
					Timestamp string `json:"timestamp"`
				} `json:"events"`
			}
			if err := json.Unmarshal(raw, &result); err != nil {
				return fmt.Errorf("malformed recall response: %w", err)
			}

			if len(result.Events) == 0 {
				fmt.Println("No events matched")
				return nil
			}
			for _, e := range result.Events {
				payload := e.Payload
				if len(payload) > 120 {
					payload = payload[:117] + "..."
				}
				fmt.Printf("%s  %-24s  %-12s  %s\n", e.Timestamp, e.EventType, e.SessionID, payload)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search query")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func httpClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func daemonURL(port int, path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, path)
}

// daemonPort reads the discovery file written by the daemon.
func daemonPort() (int, error) {
	baseDir, err := config.BaseDir()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(config.PortFilePath(baseDir))
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed port file: %w", err)
	}
	return port, nil
}

func cleanupPortFile() {
	if baseDir, err := config.BaseDir(); err == nil {
		_ = os.Remove(config.PortFilePath(baseDir))
	}
}
