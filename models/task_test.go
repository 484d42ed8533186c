package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		got, err := ParseStatus(string(st))
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	for _, bad := range []string{"", "Todo", "finished", " done"} {
		_, err := ParseStatus(bad)
		assert.True(t, IsValidation(err), "ParseStatus(%q) error = %v", bad, err)
	}
}

func TestPrioritySet(t *testing.T) {
	set := NewPrioritySet([]string{" Low", "Mid", "", "High", "Mid"})
	assert.Equal(t, PrioritySet{"Low", "Mid", "High"}, set)

	p, err := set.Parse("Mid")
	require.NoError(t, err)
	assert.Equal(t, Priority("Mid"), p)

	_, err = DefaultPriorities.Parse("Mid")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "priority", ve.Field)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "trimmed", in: "  buy milk \n", want: "buy milk"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   \t", wantErr: true},
		{name: "max length", in: strings.Repeat("a", MaxTitleLength), want: strings.Repeat("a", MaxTitleLength)},
		{name: "too long", in: strings.Repeat("a", MaxTitleLength+1), wantErr: true},
		{name: "multibyte counts runes", in: strings.Repeat("タ", MaxTitleLength), want: strings.Repeat("タ", MaxTitleLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTitle(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("due_date", "")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("due_date", "2025-03-09")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "2025-03-09", FormatDate(d))

	_, err = ParseDate("start_date", "09/03/2025")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "start_date", ve.Field)
}

func TestOwnedBy(t *testing.T) {
	a, b := int64(1), int64(2)

	assert.True(t, Task{OwnerID: &a}.OwnedBy(&a))
	assert.False(t, Task{OwnerID: &a}.OwnedBy(&b))
	assert.False(t, Task{OwnerID: &a}.OwnedBy(nil))
	assert.False(t, Task{}.OwnedBy(&a))
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopeAll, ParseScope("all"))
	assert.Equal(t, ScopePersonal, ParseScope("personal"))
	assert.Equal(t, ScopePersonal, ParseScope(""))
	assert.Equal(t, ScopeAll, ParseScope("foo"))
	assert.Equal(t, ScopeAll, ParseScope("Personal"))
	assert.Equal(t, "all", ScopeAll.String())
}
