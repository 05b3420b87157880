package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/seppo/internal/rollback"
	"github.com/yairfalse/seppo/internal/snapshot"
	"github.com/yairfalse/seppo/pkg/config"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show seppo configuration, tooling and storage status",
		Long: `Display status information about seppo configuration, the external
tools the component adapters depend on, snapshot storage, and recent
rollback activity.`,
		RunE:         runStatus,
		SilenceUsage: true,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	fmt.Println("Seppo Status Report")
	fmt.Println("===================")
	fmt.Println()

	// System Status
	fmt.Println("System Status:")
	fmt.Printf("  Seppo Version: %s\n", Version)
	fmt.Printf("  Config File: %s\n", resolveConfigFile())

	storageDir := cfg.Storage.BaseDir
	fmt.Printf("  Storage: %s (%s used)\n", storageDir, formatStorageBytes(directorySize(storageDir)))
	fmt.Println()

	// Component Tooling
	fmt.Println("Component Tooling:")
	components := cfg.ToComponents()
	if len(components) == 0 {
		fmt.Println("  No components configured.")
	} else {
		detector := config.NewToolDetector()
		for _, result := range detector.DetectFor(components) {
			if result.Available {
				fmt.Printf("  [OK] %s: %s\n", result.Tool, result.Status)
			} else {
				fmt.Printf("  [FAIL] %s: %s\n", result.Tool, result.Status)
			}
		}
	}
	fmt.Println()

	// Components
	fmt.Println("Components:")
	for i := range components {
		component := &components[i]
		marker := "[OK]"
		note := ""
		if !component.Enabled {
			marker = "[-]"
			note = " (disabled)"
		}
		deps := "no dependencies"
		if len(component.DependsOn) > 0 {
			deps = fmt.Sprintf("depends on %d", len(component.DependsOn))
		}
		fmt.Printf("  %s %s: %s, %s%s\n", marker, component.Name, component.Type, deps, note)
	}
	if len(components) == 0 {
		fmt.Println("  none configured")
	}
	fmt.Println()

	// Verification
	fmt.Println("Verification:")
	fmt.Printf("  Checks: %d configured\n", len(cfg.Verification.Checks))
	fmt.Printf("  Threshold: %.0f%%\n", cfg.Verification.Threshold*100)
	fmt.Println()

	// Snapshots
	fmt.Println("Snapshots:")
	store, err := snapshot.NewStore(storageDir)
	if err != nil {
		fmt.Printf("  [FAIL] storage not usable: %v\n", err)
	} else {
		snapshots, _ := store.List()
		if len(snapshots) > 0 {
			fmt.Printf("  Stored: %d\n", len(snapshots))
			fmt.Printf("  Latest: %s ago (%s)\n", timeAgo(snapshots[0].Timestamp), snapshots[0].ID)
		} else {
			fmt.Println("  Stored: none")
		}
		if cfg.Remote.Enabled {
			fmt.Printf("  Remote replication: %s\n", cfg.Remote.URL)
		} else {
			fmt.Println("  Remote replication: disabled")
		}

		// Recent Activity
		fmt.Println()
		fmt.Println("Recent Activity:")
		if history, err := rollback.NewHistory(store.HistoryDir()); err == nil {
			results, _ := history.List()
			if len(results) > 0 {
				last := results[0]
				fmt.Printf("  Last Rollback: %s ago (%s, %s)\n", timeAgo(last.StartTime), last.RollbackID, last.Status)
			} else {
				fmt.Println("  Last Rollback: never")
			}
		}
	}

	fmt.Println()
	fmt.Println("Quick Actions:")
	fmt.Println("  - Run 'seppo deploy --dry-run' to preview the deployment plan")
	fmt.Println("  - Run 'seppo verify' to run the health checks")
	fmt.Println("  - Run 'seppo list-snapshots' to see available restore points")

	return nil
}

// resolveConfigFile reports which config file this run loaded,
// mirroring the search order in config.Load.
func resolveConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".seppo", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "not found (using defaults)"
}

func directorySize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func formatStorageBytes(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1fGB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

func timeAgo(t time.Time) string {
	duration := time.Since(t)

	switch {
	case duration < time.Minute:
		return fmt.Sprintf("%d seconds", int(duration.Seconds()))
	case duration < time.Hour:
		return fmt.Sprintf("%d minutes", int(duration.Minutes()))
	case duration < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(duration.Hours()))
	case duration < 7*24*time.Hour:
		return fmt.Sprintf("%d days", int(duration.Hours()/24))
	default:
		return fmt.Sprintf("%d weeks", int(duration.Hours()/(24*7)))
	}
}
