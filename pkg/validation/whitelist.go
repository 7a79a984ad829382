// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import "strings"

// ExtractAddress pulls the bare email address out of a sender header value.
// Handles both "Name <user@host>" and plain "user@host" forms; the result
// is lowercased and trimmed.
func ExtractAddress(sender string) string {
	s := strings.TrimSpace(sender)
	if start := strings.LastIndex(s, "<"); start != -1 {
		if end := strings.Index(s[start:], ">"); end != -1 {
			s = s[start+1 : start+end]
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// SenderDomain returns the domain part of a sender address, lowercased.
// Returns "" when the sender has no @ part.
func SenderDomain(sender string) string {
	addr := ExtractAddress(sender)
	at := strings.LastIndex(addr, "@")
	if at == -1 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

// MatchesSenderWhitelist reports whether the sender matches any whitelist
// entry. An entry matches on the exact extracted address or as a substring
// of the raw sender header, so entries may be either bare addresses or
// display-name fragments.
func MatchesSenderWhitelist(sender string, whitelist []string) bool {
	addr := ExtractAddress(sender)
	raw := strings.ToLower(strings.TrimSpace(sender))

	for _, entry := range whitelist {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if e == addr || strings.Contains(raw, e) {
			return true
		}
	}
	return false
}

// MatchesDomainWhitelist reports whether the sender's domain matches any
// whitelist entry. A configured domain matches itself and any dot-separated
// subdomain of it: "y.com" admits "y.com" and "sub.y.com", never "noty.com".
func MatchesDomainWhitelist(sender string, whitelist []string) bool {
	domain := SenderDomain(sender)
	if domain == "" {
		return false
	}

	for _, entry := range whitelist {
		e := strings.ToLower(strings.TrimSpace(entry))
		if e == "" {
			continue
		}
		if domain == e || strings.HasSuffix(domain, "."+e) {
			return true
		}
	}
	return false
}
