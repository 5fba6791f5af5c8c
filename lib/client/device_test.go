// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"strings"
	"testing"
)

func TestValidDeviceID(t *testing.T) {
	invalid := []string{
		"", " ", "9774d56d682e549c", "unknown", "000000000000000",
		"Android", "DEFACE", "00000000-0000-0000-0000-000000000000",
	}
	for _, id := range invalid {
		if ValidDeviceID(id) {
			t.Errorf("ValidDeviceID(%q) = true", id)
		}
	}
	for _, id := range []string{"device-1", "android", RandomDeviceID()} {
		if !ValidDeviceID(id) {
			t.Errorf("ValidDeviceID(%q) = false", id)
		}
	}
}

func TestRandomDeviceID(t *testing.T) {
	first, second := RandomDeviceID(), RandomDeviceID()
	if first == second {
		t.Errorf("two random device ids are equal: %s", first)
	}
	if !strings.HasSuffix(first, RandomDeviceIDSuffix) || len(first) != 37 {
		t.Errorf("random device id %q is not a UUID plus %q", first, RandomDeviceIDSuffix)
	}
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		locale            string
		language, country string
	}{
		{"en_US.UTF-8", "en", "US"},
		{"de_DE@euro", "de", "DE"},
		{"fr", "fr", ""},
		{"C", "", ""},
		{"POSIX", "", ""},
		{"", "", ""},
	}
	for _, test := range tests {
		language, country := parseLocale(test.locale)
		if language != test.language || country != test.country {
			t.Errorf("parseLocale(%q) = %q, %q; want %q, %q",
				test.locale, language, country, test.language, test.country)
		}
	}
}

func TestHostDevice(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "pt_BR.UTF-8")
	info := HostDevice()
	if info.OSName == "" || info.Model == "" {
		t.Errorf("HostDevice = %+v, want runtime OS and architecture", info)
	}
	if info.Language != "pt" || info.Country != "BR" {
		t.Errorf("locale = %q %q, want pt BR", info.Language, info.Country)
	}
}
