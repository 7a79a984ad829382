// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/tradeflow/pkg/validation"
)

// StageNameWhitelist identifies the whitelist validation stage.
const StageNameWhitelist = "validate_whitelist"

// WhitelistStage gates processing on the sender. A sender passes when it
// matches EITHER the address whitelist OR the domain whitelist; with no
// whitelist configured at all, everything passes.
//
// The stage prefers the mail provider's whitelist when one is available,
// so runtime reconfiguration of the provider is honored; otherwise it
// falls back to the static lists it was built with.
type WhitelistStage struct {
	fetcher         MailFetcher
	senderWhitelist []string
	domainWhitelist []string
}

var _ Stage = (*WhitelistStage)(nil)

// NewWhitelistStage creates the whitelist stage. fetcher may be nil.
func NewWhitelistStage(fetcher MailFetcher, senders, domains []string) *WhitelistStage {
	return &WhitelistStage{
		fetcher:         fetcher,
		senderWhitelist: senders,
		domainWhitelist: domains,
	}
}

func (s *WhitelistStage) Name() string     { return StageNameWhitelist }
func (s *WhitelistStage) AlwaysRuns() bool { return false }

func (s *WhitelistStage) Run(_ context.Context, pc *Context) error {
	if pc.Alert == nil {
		return fmt.Errorf("whitelist validation requires a parsed alert")
	}

	if !s.configured() {
		pc.WhitelistStatus = WhitelistNotConfigured
		return nil
	}

	sender := pc.Sender
	if s.allowed(sender) {
		pc.WhitelistStatus = WhitelistAllowed
		return nil
	}

	pc.WhitelistStatus = WhitelistBlocked
	pc.SetError(fmt.Sprintf("sender %q not in whitelist", sender), StatusBlocked)
	slog.Info("Sender blocked by whitelist", "context_id", pc.ID, "sender", sender)
	return nil
}

func (s *WhitelistStage) configured() bool {
	if s.fetcher != nil {
		return s.fetcher.HasWhitelist()
	}
	return len(s.senderWhitelist) > 0 || len(s.domainWhitelist) > 0
}

func (s *WhitelistStage) allowed(sender string) bool {
	if s.fetcher != nil {
		return s.fetcher.ValidateSender(sender) || s.fetcher.IsDomainWhitelisted(sender)
	}
	return validation.MatchesSenderWhitelist(sender, s.senderWhitelist) ||
		validation.MatchesDomainWhitelist(sender, s.domainWhitelist)
}
