package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveID int64

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List unresolved alerts or resolve one",
	RunE:  runAlerts,
}

func init() {
	alertsCmd.Flags().Int64Var(&resolveID, "resolve", 0, "mark the alert with this ID as resolved")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	if resolveID > 0 {
		if err := s.ResolveAlert(resolveID); err != nil {
			return fmt.Errorf("resolving alert %d: %w", resolveID, err)
		}
		fmt.Printf("Alert %d resolved\n", resolveID)
		return nil
	}

	alerts, err := s.UnresolvedAlerts()
	if err != nil {
		return fmt.Errorf("loading alerts: %w", err)
	}
	if len(alerts) == 0 {
		fmt.Println("No unresolved alerts")
		return nil
	}
	for _, a := range alerts {
		fmt.Printf("#%-5d %s  [%s] %s: %s\n",
			a.ID, a.Timestamp.Format("2006-01-02 15:04"), a.Severity, a.Type, a.Message)
	}
	return nil
}
