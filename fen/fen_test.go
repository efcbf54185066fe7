package fen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matryer/is"

	"github.com/bastion-go/bastion/board"
)

func TestStartRoundTrip(t *testing.T) {
	is := is.New(t)
	p, err := Parse(StartFEN)
	is.NoErr(err)
	if diff := cmp.Diff(board.StartPosition(), p); diff != "" {
		t.Errorf("start position mismatch (-want +got):\n%s", diff)
	}
	is.Equal(String(p), StartFEN)
	is.Equal(String(board.StartPosition()), StartFEN)
}

func TestRoundTripTowers(t *testing.T) {
	is := is.New(t)
	for _, s := range []string{
		"3RG3/1r25/7/3r3b42/1b1BG4/4b12/7 r",
		"3RG1r21/7/3r22r3/7/3b53/7/1b21BG3 b",
		"7/7/7/7/7/7/5RGBG b",
		"r7RG5/7/7/7/7/7/3BG2b7 r",
	} {
		p, err := Parse(s)
		is.NoErr(err)
		is.Equal(String(p), s)
	}
}

func TestParseHeights(t *testing.T) {
	is := is.New(t)
	p, err := Parse("3RG3/1r25/7/3r3b42/1b1BG4/4b12/7 r")
	is.NoErr(err)
	b6, _ := board.SquareFromString("B6")
	d4, _ := board.SquareFromString("D4")
	e4, _ := board.SquareFromString("E4")
	c3, _ := board.SquareFromString("C3")
	is.Equal(p.Height(b6), 2)
	is.Equal(p.Height(d4), 3)
	is.Equal(p.Height(e4), 4)
	is.True(p.Pieces[board.Blue].Has(e4))
	is.Equal(p.GuardSquare(board.Blue), c3)
	is.Equal(p.ToMove, board.Red)
}

func TestParseErrors(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		fen   string
		token string
	}{
		{"3RG3/7/7/7/7/7/3BG3", ""},
		{"3RG3/7/7/7/7/3BG3 r", ""},
		{"3RG3/7/7/7/7/7/3BG3 x", `"x"`},
		{"3RG3/7/7/7/7/7/3BX3 r", `"B"`},
		{"3RG3/7/7/7/7/7/3BG4 r", `"4"`},
		{"3RG3/7/7/r87/7/7/3BG3 r", `"r8"`},
		{"3RG3/7/7/6/7/7/3BG3 r", `"6"`},
	}
	for _, tc := range cases {
		_, err := Parse(tc.fen)
		is.True(err != nil)
		is.True(errors.Is(err, ErrInvalidFEN))
		if tc.token != "" && !strings.Contains(err.Error(), tc.token) {
			t.Errorf("error %q does not name token %s", err, tc.token)
		}
	}
}

func TestParseReportsIndex(t *testing.T) {
	is := is.New(t)
	_, err := Parse("3RG3/7/7/7/7/7/3BX3 r")
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "index 16"))
}

func TestApplyMoveThroughNotation(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		before string
		move   board.Move
		after  string
	}{
		{"3RG3/7/7/7/4b11b1/4r4r11/3BG1b11 r", board.Move{From: 8, To: 9, Height: 1},
			"3RG3/7/7/7/4b11b1/4r52/3BG1b11 b"},
		{"3RG3/7/7/7/4b11b1/4r4r11/3BG1b11 r", board.Move{From: 9, To: 16, Height: 1},
			"3RG3/7/7/7/4r11b1/4r3r11/3BG1b11 b"},
		{"3RG3/7/7/7/4b11b1/3r41r11/3BG1b11 r", board.Move{From: 10, To: 3, Height: 1},
			"3RG3/7/7/7/4b11b1/3r31r11/3r11b11 b"},
		{"7/7/7/7/7/7/5RGBG b", board.Move{From: 0, To: 1, Height: 1},
			"7/7/7/7/7/7/5BG1 r"},
	}
	for _, tc := range cases {
		p := MustParse(tc.before)
		got := p.ApplyMove(tc.move)
		is.NoErr(got.Validate())
		is.Equal(String(got), tc.after)
		if diff := cmp.Diff(MustParse(tc.after), got); diff != "" {
			t.Errorf("%s after %s (-want +got):\n%s", tc.before, tc.move, diff)
		}
	}
}

func TestPieceCounts(t *testing.T) {
	is := is.New(t)
	p := MustParse("7/7/3r1BG2/4r1RG1/7/7/7 r")
	is.Equal(p.CountPieces(board.Red), 3)
	is.Equal(p.CountPieces(board.Blue), 1)
}

func TestWinDetection(t *testing.T) {
	is := is.New(t)
	is.True(MustParse("3BG3/7/7/7/7/7/5RG1 r").HasWon(board.Blue))
	is.True(MustParse("6BG/7/7/7/7/7/3RG3 b").HasWon(board.Red))
	is.True(MustParse("6BG/6r1/7/7/7/7/3b13 r").HasWon(board.Blue))
	is.True(MustParse("6b1/7/7/7/7/7/4RG2 b").HasWon(board.Red))
	is.True(!MustParse(StartFEN).GameOver())
}
