// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// # Description
//
// Package mailfetch resolves inbound Gmail Pub/Sub push notifications
// into full mail messages. A push notification only references mail (by
// message id or mailbox history id); this package fetches the referenced
// message over the Gmail API and normalizes it into an Alert.
//
// # Inputs
//
// OAuth2 client credentials plus a stored user token, and the raw push
// notification payload.
//
// # Outputs
//
// datatypes.Alert values with sender, subject, and decoded body.
//
// # Limitations
//
// Only the newest message of a history window is fetched; the relay
// processes one notification per push.
package mailfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/AleutianAI/tradeflow/pkg/validation"
	"github.com/AleutianAI/tradeflow/services/relay/datatypes"
)

// Options configures the Gmail provider.
type Options struct {
	// CredentialsFile is the OAuth2 client secret JSON.
	CredentialsFile string

	// TokenFile is the stored user token from a prior authorization flow.
	// Empty falls back to gmail_token.json next to the credentials file.
	TokenFile string

	SenderWhitelist []string
	DomainWhitelist []string
}

// Provider fetches mail referenced by push notifications and answers
// whitelist questions about senders.
type Provider struct {
	svc             *gmail.UsersService
	senderWhitelist []string
	domainWhitelist []string
}

// NewProvider builds a Gmail API client from stored OAuth2 credentials.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	client, err := oauthClient(ctx, opts.CredentialsFile, opts.TokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	slog.Info("Gmail provider initialized",
		"sender_whitelist", len(opts.SenderWhitelist),
		"domain_whitelist", len(opts.DomainWhitelist))

	return &Provider{
		svc:             srv.Users,
		senderWhitelist: opts.SenderWhitelist,
		domainWhitelist: opts.DomainWhitelist,
	}, nil
}

// IsHealthy reports whether the API client exists.
func (p *Provider) IsHealthy() bool {
	return p.svc != nil
}

// HasWhitelist reports whether any whitelist is configured.
func (p *Provider) HasWhitelist() bool {
	return len(p.senderWhitelist) > 0 || len(p.domainWhitelist) > 0
}

// ValidateSender reports whether the sender passes the address whitelist.
func (p *Provider) ValidateSender(sender string) bool {
	return validation.MatchesSenderWhitelist(sender, p.senderWhitelist)
}

// IsDomainWhitelisted reports whether the sender's domain passes the
// domain whitelist.
func (p *Provider) IsDomainWhitelisted(sender string) bool {
	return validation.MatchesDomainWhitelist(sender, p.domainWhitelist)
}

// ParseAlert resolves a push notification into a full alert by fetching
// the referenced message.
func (p *Provider) ParseAlert(ctx context.Context, raw map[string]any) (datatypes.Alert, error) {
	ref, err := decodeNotification(raw)
	if err != nil {
		return datatypes.Alert{}, err
	}

	messageID := ref.MessageID
	if messageID == "" {
		if ref.HistoryID == 0 {
			return datatypes.Alert{}, fmt.Errorf("notification references neither a message nor a history id")
		}
		messageID, err = p.latestMessageSince(ctx, ref.HistoryID)
		if err != nil {
			return datatypes.Alert{}, err
		}
	}

	msg, err := p.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return datatypes.Alert{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	return alertFromMessage(msg, ref.PublishTime), nil
}

// latestMessageSince finds the newest message added after the given
// mailbox history id.
func (p *Provider) latestMessageSince(ctx context.Context, historyID uint64) (string, error) {
	resp, err := p.svc.History.List("me").
		StartHistoryId(historyID).
		HistoryTypes("messageAdded").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list history from %d: %w", historyID, err)
	}

	var newest string
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message != nil {
				newest = added.Message.Id
			}
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no messages added since history id %d", historyID)
	}
	return newest, nil
}

// =============================================================================
// OAuth2 plumbing
// =============================================================================

// OAuthConfig loads the OAuth2 client configuration for the readonly
// Gmail scope. Shared with the watch management CLI.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(data, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", credentialsFile, err)
	}
	return cfg, nil
}

// LoadToken reads a stored oauth2 token JSON, as written by the
// authorization flow in the watch CLI.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file %s: %w", path, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return &token, nil
}

func oauthClient(ctx context.Context, credentialsFile, tokenFile string) (*http.Client, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	if tokenFile == "" {
		tokenFile = filepath.Join(filepath.Dir(credentialsFile), "gmail_token.json")
	}
	token, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	// TokenSource refreshes transparently when the access token expires.
	return oauth2.NewClient(ctx, cfg.TokenSource(ctx, token)), nil
}
