// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardsmith/cardsmith/pkg/errutil"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantName   string
		wantScoped bool
		wantErr    bool
	}{
		{name: "plain name", input: "alice", wantName: "alice"},
		{name: "name with digits and hyphens", input: "alice-card2", wantName: "alice-card2"},
		{name: "scoped name", input: "@alice/my-card", wantName: "@alice/my-card", wantScoped: true},
		{name: "surrounding whitespace is trimmed", input: "  alice  ", wantName: "alice"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "uppercase", input: "Alice", wantErr: true},
		{name: "starts with digit", input: "1alice", wantErr: true},
		{name: "underscore", input: "alice_card", wantErr: true},
		{name: "scope without name", input: "@alice/", wantErr: true},
		{name: "at sign without slash", input: "@alice", wantErr: true},
		{name: "too long", input: "a" + strings.Repeat("b", MaxNameLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_PACKAGE_NAME")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, id.Name)
			assert.Equal(t, tt.wantScoped, id.Scoped)
		})
	}
}

func TestPackageIdentity_Bare(t *testing.T) {
	assert.Equal(t, "my-card", PackageIdentity{Name: "@alice/my-card", Scoped: true}.Bare())
	assert.Equal(t, "alice", PackageIdentity{Name: "alice"}.Bare())
}

func TestSuggest(t *testing.T) {
	current := PackageIdentity{Name: "my-card"}

	got := Suggest("@Alice", current)
	assert.Equal(t, "@alice/my-card", got.Name)
	assert.True(t, got.Scoped)

	got = Suggest("bob", PackageIdentity{Name: "@old/my-card", Scoped: true})
	assert.Equal(t, "@bob/my-card", got.Name)

	got = Suggest("", current)
	assert.Equal(t, "my-card-card", got.Name)
	assert.False(t, got.Scoped)
}

func TestSuggest_ProducesValidIdentity(t *testing.T) {
	got := Suggest("@alice", PackageIdentity{Name: "my-card"})
	id, err := ParseIdentity(got.Name)
	require.NoError(t, err)
	assert.Equal(t, got, id)
}
