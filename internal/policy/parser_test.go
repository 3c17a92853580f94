package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

func instant(d domain.Weekday, hour, minute int) domain.Instant {
	return domain.Instant{Weekday: d, Time: domain.TimeOfDay(hour*60 + minute)}
}

func requireParseError(t *testing.T, err error) *domain.ParseError {
	t.Helper()
	var perr *domain.ParseError
	require.True(t, errors.As(err, &perr), "expected *domain.ParseError, got %v", err)
	return perr
}

func TestParse_WorkAndChat(t *testing.T) {
	rs, warnings, err := ParseString(`
# office hours
work=08:00~12:00,13:00~18:00;MO,TU,WE,TH,FR
chat=*;SA,SU|12:00~13:00;MO,TU,WE,TH,FR
`)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 2, rs.Len())

	work, ok := rs.Lookup("work")
	require.True(t, ok)
	assert.Equal(t, 3, work.Line)
	assert.True(t, work.Allows(instant(domain.Wednesday, 10, 0)))
	assert.False(t, work.Allows(instant(domain.Wednesday, 12, 30)))
	assert.False(t, work.Allows(instant(domain.Saturday, 10, 0)))

	chat, ok := rs.Lookup("chat")
	require.True(t, ok)
	assert.True(t, chat.Allows(instant(domain.Sunday, 3, 0)))
	assert.True(t, chat.Allows(instant(domain.Monday, 12, 0)))
	assert.False(t, chat.Allows(instant(domain.Monday, 14, 0)))
}

func TestParse_EmptyInput(t *testing.T) {
	rs, warnings, err := ParseString("\n# only comments\n   \n")

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 0, rs.Len())
}

func TestParse_WhitespaceAroundTokens(t *testing.T) {
	rs, _, err := ParseString("  my app = 9:00 ~ 17:30 , 20:00~21:00 ; MO , FR \n")

	require.NoError(t, err)
	r, ok := rs.Lookup("my app")
	require.True(t, ok, "interior spaces in names are kept")
	assert.True(t, r.Allows(instant(domain.Monday, 9, 0)))
	assert.True(t, r.Allows(instant(domain.Friday, 17, 30)))
	assert.True(t, r.Allows(instant(domain.Friday, 21, 0)))
	assert.False(t, r.Allows(instant(domain.Tuesday, 10, 0)))
}

func TestParse_DuplicateWarnsAndLastWins(t *testing.T) {
	rs, warnings, err := ParseString("game=*;SA\ngame=*;SU\n")

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Line)
	assert.Contains(t, warnings[0].Message, `"game"`)
	assert.Contains(t, warnings[0].Message, "line 1")

	r, _ := rs.Lookup("game")
	assert.False(t, r.Allows(instant(domain.Saturday, 10, 0)))
	assert.True(t, r.Allows(instant(domain.Sunday, 10, 0)))
}

func TestParse_MixedWildcardWarns(t *testing.T) {
	rs, warnings, err := ParseString("app=08:00~09:00,*;MO\n")

	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, 1, warnings[0].Line)
	assert.Contains(t, warnings[0].Message, "mixes")

	r, _ := rs.Lookup("app")
	assert.True(t, r.Allows(instant(domain.Monday, 23, 0)))
}

func TestParse_OneBadLineFailsWholeFile(t *testing.T) {
	rs, warnings, err := ParseString("ok=*;MO\nbad=08:00~09:00;XX\nalso_ok=*;TU\n")

	assert.Nil(t, rs)
	assert.Nil(t, warnings)
	perr := requireParseError(t, err)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, "XX", perr.Token)
}

func TestParse_CrossingMidnight(t *testing.T) {
	_, _, err := ParseString("night=22:00~02:00;FR\n")

	perr := requireParseError(t, err)
	assert.Equal(t, 1, perr.Line)
	assert.Equal(t, "22:00~02:00", perr.Token)
	assert.Contains(t, perr.Error(), "midnight")
	assert.Contains(t, perr.Hint, "23:59")
}

func TestParse_SplitMidnightWindow(t *testing.T) {
	rs, _, err := ParseString("night=22:00~23:59;FR|00:00~02:00;SA\n")
	require.NoError(t, err)

	r, _ := rs.Lookup("night")
	assert.True(t, r.Allows(instant(domain.Friday, 23, 59)))
	assert.True(t, r.Allows(instant(domain.Saturday, 0, 0)))
	assert.True(t, r.Allows(instant(domain.Saturday, 2, 0)))
	assert.False(t, r.Allows(instant(domain.Saturday, 2, 1)))
	assert.False(t, r.Allows(instant(domain.Friday, 0, 30)))
}

func TestParse_GrammarErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantToken string
	}{
		{"missing equals", "steam 08:00~09:00;MO", "steam 08:00~09:00;MO"},
		{"empty name", "=*;MO", "=*;MO"},
		{"empty period list", "steam=", ""},
		{"missing days separator", "steam=08:00~09:00", "08:00~09:00"},
		{"two semicolons", "steam=*;MO;TU", "*;MO;TU"},
		{"empty period between pipes", "steam=*;MO||*;TU", ""},
		{"empty range list", "steam=;MO", ""},
		{"empty day list", "steam=*;", ""},
		{"range without tilde", "steam=08:00;MO", "08:00"},
		{"hour out of range", "steam=24:00~24:30;MO", "24:00"},
		{"minute out of range", "steam=08:60~09:00;MO", "08:60"},
		{"single digit minute", "steam=8:5~9:00;MO", "8:5"},
		{"three digit hour", "steam=008:00~09:00;MO", "008:00"},
		{"signed hour", "steam=+8:00~09:00;MO", "+8:00"},
		{"lowercase day", "steam=*;mo", "mo"},
		{"long day name", "steam=*;MON", "MON"},
		{"trailing comma in days", "steam=*;MO,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, _, err := ParseString("# header\n" + tt.input + "\n")

			assert.Nil(t, rs)
			perr := requireParseError(t, err)
			assert.Equal(t, 2, perr.Line)
			assert.Equal(t, tt.wantToken, perr.Token)
			assert.NotEmpty(t, perr.Expected)
		})
	}
}

func TestParse_SingleDigitHour(t *testing.T) {
	rs, _, err := ParseString("app=7:05~9:00;TH\n")
	require.NoError(t, err)

	r, _ := rs.Lookup("app")
	assert.Equal(t, "07:05~09:00;TH", r.Periods[0].String())
}

func TestParse_OnlyFirstEqualsSplitsName(t *testing.T) {
	// Only the first "=" separates name from periods.
	_, _, err := ParseString("app=*;MO=TU\n")

	perr := requireParseError(t, err)
	assert.Equal(t, "MO=TU", perr.Token)
}
