package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wabroker/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server's WhatsApp session is ready",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ready, err := c.Status(cmd.Context())
		if err != nil {
			return err
		}
		if ready {
			fmt.Fprintln(cmd.OutOrStdout(), "ready")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "not ready")
		}
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the session's group chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		groups, err := c.Groups(cmd.Context())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no groups")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tID\tMEMBERS")
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Name, g.ID, g.Members)
		}
		return tw.Flush()
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <contact> <message>",
	Short: "Send a text message",
	Long:  "Sends a text message. contact is a phone number, a chat id, or a group name (matched case-insensitively).",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sent")
		return nil
	},
}

var pollOptions string

var pollCmd = &cobra.Command{
	Use:   "poll <contact> <question> --options a,b,c",
	Short: "Send a poll",
	Long:  "Sends a poll. Groups get a native poll; direct chats get buttons (up to 3 options) or a list.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := client.ParseOptions(pollOptions)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		method, err := c.SendPoll(cmd.Context(), args[0], strings.Join(args[1:], " "), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent (method: %s)\n", method)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Reconnect the server's WhatsApp socket if it dropped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.OpenWhatsApp(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, groupsCmd, sendCmd, pollCmd, openCmd)
	pollCmd.Flags().StringVarP(&pollOptions, "options", "o", "", "comma-separated poll options (at least 2)")
	_ = pollCmd.MarkFlagRequired("options")
}
