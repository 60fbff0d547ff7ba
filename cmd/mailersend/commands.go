package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/mailersend-go/internal/batch"
	"github.com/ignite/mailersend-go/internal/mailersend"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		from       string
		fromName   string
		to         []string
		cc         []string
		bcc        []string
		subject    string
		html       string
		text       string
		templateID string
		tags       []string
		vars       []string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one email",
		Long: `Send one email to one or more recipients.

--var key=value sets a personalization value for every recipient. With
--dry-run nothing is sent; the subject and bodies are rendered locally for
each recipient instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return errors.New("at least one --to recipient is required")
			}

			email := a.client.CreateEmail()
			if from != "" {
				email.SetFrom(fromName, from)
			}
			for _, addr := range to {
				email.AddRecipient("", addr)
			}
			for _, addr := range cc {
				email.AddCC("", addr)
			}
			for _, addr := range bcc {
				email.AddBCC("", addr)
			}
			email.Subject = subject
			email.HTML = html
			email.Text = text
			email.TemplateID = templateID
			for _, tag := range tags {
				email.AddTag(tag)
			}
			for _, kv := range vars {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid --var %q, want key=value", kv)
				}
				email.AddPersonalizationForAll(key, value)
			}

			if dryRun {
				previews, err := email.PreviewAll()
				if err != nil {
					return fmt.Errorf("render preview: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), previews)
			}

			if err := a.requireToken(); err != nil {
				return err
			}
			resp, err := a.client.Send(cmd.Context(), email)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "sender address (default from config)")
	cmd.Flags().StringVar(&fromName, "from-name", "", "sender display name")
	cmd.Flags().StringArrayVar(&to, "to", nil, "recipient address (repeatable)")
	cmd.Flags().StringArrayVar(&cc, "cc", nil, "cc address (repeatable)")
	cmd.Flags().StringArrayVar(&bcc, "bcc", nil, "bcc address (repeatable)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&html, "html", "", "html body")
	cmd.Flags().StringVar(&text, "text", "", "plain text body")
	cmd.Flags().StringVar(&templateID, "template-id", "", "provider template id")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "personalization key=value for all recipients (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "render locally instead of sending")
	return cmd
}

func newBulkSendCmd(a *app) *cobra.Command {
	var (
		file     string
		wait     bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bulk-send",
		Short: "Submit a batch file as one bulk job",
		Long: `Submit every email in a YAML batch file as one bulk job and print its
id. With --wait the job is polled until it completes and the final status
is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			if err := a.requireToken(); err != nil {
				return err
			}

			emails, err := batch.Load(file, a.client.CreateEmail)
			if err != nil {
				return err
			}

			id, err := a.client.BulkSend(cmd.Context(), emails)
			if err != nil {
				return err
			}
			if !wait {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"bulk_email_id": id})
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			status, err := a.waitForBulk(ctx, id, interval)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "batch file (yaml)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job completes")
	cmd.Flags().DurationVar(&interval, "poll-interval", 5*time.Second, "delay between status checks")
	cmd.Flags().DurationVar(&timeout, "wait-timeout", 10*time.Minute, "give up waiting after this long")
	return cmd
}

func newBulkStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-status <bulk-email-id>",
		Short: "Show the status of a bulk job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			status, err := a.client.BulkSendStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
}

// waitForBulk polls the job until it is done or ctx expires.
func (a *app) waitForBulk(ctx context.Context, id string, interval time.Duration) (*mailersend.BulkSendStatus, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := a.client.BulkSendStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if status.Done() {
			return status, nil
		}
		a.log.Info("bulk job pending", "bulk_email_id", id, "state", status.State)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for bulk job %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
