package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rahulgovind/neo/config"
	"github.com/rahulgovind/neo/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
	RunE:  listSessions,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete stored sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  deleteSessions,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func openConfiguredStore() (store.SnapshotStore, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return openStore(cfg, root)
}

func listSessions(cmd *cobra.Command, args []string) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	infos, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\n", info.ID, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func deleteSessions(cmd *cobra.Command, args []string) error {
	st, err := openConfiguredStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, id := range args {
		if err := st.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
	}
	return nil
}
