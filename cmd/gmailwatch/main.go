// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gmailwatch manages the Gmail watch registration that feeds the
// relay's Pub/Sub topic. Gmail expires watch registrations after about
// seven days, so `gmailwatch watch` is meant to run on a schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/tradeflow/services/mailfetch"
)

const watchInfoFile = "gmail_watch_info.json"

var (
	credentialsFile string
	tokenFile       string
	projectID       string
	topic           string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gmailwatch",
		Short: "Manage the Gmail watch registration for the relay",
	}

	rootCmd.PersistentFlags().StringVar(&credentialsFile, "credentials",
		os.Getenv("GMAIL_CREDENTIALS_FILE"), "OAuth2 client secret JSON")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token",
		os.Getenv("GMAIL_TOKEN_FILE"), "stored user token JSON")
	rootCmd.PersistentFlags().StringVar(&projectID, "project",
		os.Getenv("GOOGLE_PROJECT_ID"), "Google Cloud project id")
	rootCmd.PersistentFlags().StringVar(&topic, "topic",
		os.Getenv("PUBSUB_TOPIC"), "Pub/Sub topic name")

	rootCmd.AddCommand(watchCmd(), stopCmd(), statusCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func provider(ctx context.Context) (*mailfetch.Provider, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("no credentials file (set --credentials or GMAIL_CREDENTIALS_FILE)")
	}
	return mailfetch.NewProvider(ctx, mailfetch.Options{
		CredentialsFile: credentialsFile,
		TokenFile:       tokenFile,
	})
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Register (or renew) the INBOX watch on the Pub/Sub topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || topic == "" {
				return fmt.Errorf("project and topic are required (flags or GOOGLE_PROJECT_ID / PUBSUB_TOPIC)")
			}

			ctx := cmd.Context()
			p, err := provider(ctx)
			if err != nil {
				return err
			}

			info, err := p.StartWatch(ctx, projectID, topic)
			if err != nil {
				return err
			}

			fmt.Printf("Gmail watch registered\n")
			fmt.Printf("  History ID: %d\n", info.HistoryID)
			fmt.Printf("  Expiration: %s\n", info.Expiration.Format(time.RFC1123))
			fmt.Printf("  Topic:      %s\n", info.Topic)

			data, _ := json.MarshalIndent(info, "", "  ")
			if err := os.WriteFile(watchInfoFile, data, 0o600); err != nil {
				return fmt.Errorf("save watch info: %w", err)
			}
			fmt.Printf("Watch info saved to %s\n", watchInfoFile)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Remove the watch registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := provider(ctx)
			if err != nil {
				return err
			}
			if err := p.StopWatch(ctx); err != nil {
				return err
			}
			fmt.Println("Gmail watch removed")

			if err := os.Remove(watchInfoFile); err == nil {
				fmt.Printf("Removed %s\n", watchInfoFile)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mailbox connectivity and the last saved watch registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := provider(ctx)
			if err != nil {
				return err
			}

			profile, err := p.Profile(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Gmail account:  %s\n", profile.EmailAddress)
			fmt.Printf("Messages total: %d\n", profile.MessagesTotal)

			data, err := os.ReadFile(watchInfoFile)
			if err != nil {
				fmt.Println("No previous watch registration found.")
				return nil
			}
			var info mailfetch.WatchInfo
			if err := json.Unmarshal(data, &info); err != nil {
				return fmt.Errorf("parse %s: %w", watchInfoFile, err)
			}
			fmt.Printf("\nLast watch registration:\n")
			fmt.Printf("  History ID: %d\n", info.HistoryID)
			fmt.Printf("  Expiration: %s\n", info.Expiration.Format(time.RFC1123))
			fmt.Printf("  Topic:      %s\n", info.Topic)
			return nil
		},
	}
}
