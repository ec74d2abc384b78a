package event

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steinbockcal/internal/model"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want model.NormalizedDate
	}{
		{"05.03.2024", "20240305"},
		{"31.12.1999", "19991231"},
		// Not validated: impossible dates still normalize.
		{"99.13.2024", "20241399"},
		{"a.b.c", "cba"},
		{"20240305", "20240305"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.raw))
		})
	}
}

func TestNormalizeDateIsInjectiveOnWellFormedInput(t *testing.T) {
	seen := map[model.NormalizedDate]string{}
	for d := 1; d <= 28; d++ {
		for m := 1; m <= 12; m++ {
			raw := fmt.Sprintf("%02d.%02d.2024", d, m)
			got := NormalizeDate(raw)
			prev, dup := seen[got]
			require.False(t, dup, "%s and %s both map to %s", prev, raw, got)
			seen[got] = raw
			assert.Equal(t, got, NormalizeDate(raw))
		}
	}
}

func TestBuildUIDStripsAllWhitespace(t *testing.T) {
	uid := BuildUID("20240305T124650Z", " Sektion\tNord West\n")
	assert.Equal(t, "20240305T124650ZSektionNordWest", uid)
	assert.False(t, strings.ContainsFunc(uid, unicode.IsSpace))
	assert.Equal(t, uid, BuildUID("20240305T124650Z", " Sektion\tNord West\n"))
}

func TestBuildRecord(t *testing.T) {
	rec, err := Builder{}.Build(1, model.Row{"05.03.2024", "Nord"})
	require.NoError(t, err)

	assert.Equal(t, model.EventRecord{
		UID:       "20240305T124650ZNord",
		Timestamp: "20240305T124650Z",
		Summary:   "Steinbock schraubt: Nord",
		Start:     "20240305",
		End:       "20240305",
		Style:     model.StyleAllDay,
	}, rec)
}

func TestBuildKeepsExtraCellsOut(t *testing.T) {
	rec, err := Builder{Style: model.StyleTimed}.Build(3, model.Row{"12.03.2024", "Süd Halle", "ignored"})
	require.NoError(t, err)

	assert.Equal(t, "Steinbock schraubt: Süd Halle", rec.Summary)
	assert.Equal(t, "20240312T124650ZSüdHalle", rec.UID)
	assert.Equal(t, model.StyleTimed, rec.Style)
	assert.Equal(t, rec.Start, rec.End)
}

func TestBuildMissingCells(t *testing.T) {
	tests := []struct {
		name    string
		row     model.Row
		missing string
	}{
		{"empty row", model.Row{}, "date"},
		{"date only", model.Row{"05.03.2024"}, "section"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Builder{}.Build(4, tt.row)
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, tt.missing, rowErr.Missing)
			assert.Equal(t, 4, rowErr.Row)
			assert.Contains(t, err.Error(), "row 4")
		})
	}
}

type recordingLogger struct{ msgs []string }

func (l *recordingLogger) Debug(msg string, kv ...any) {
	l.msgs = append(l.msgs, fmt.Sprint(append([]any{msg}, kv...)...))
}

func TestBuildLogsMappedRow(t *testing.T) {
	rl := &recordingLogger{}
	_, err := Builder{Logger: rl}.Build(2, model.Row{"05.03.2024", "Nord"})
	require.NoError(t, err)

	require.Len(t, rl.msgs, 1)
	assert.Contains(t, rl.msgs[0], "Nord")
}
