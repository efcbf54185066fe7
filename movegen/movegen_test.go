package movegen

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/samber/lo"

	"github.com/bastion-go/bastion/board"
	"github.com/bastion-go/bastion/fen"
)

func moveStrings(moves []board.Move) []string {
	strs := lo.Map(moves, func(m board.Move, _ int) string { return m.String() })
	sort.Strings(strs)
	return strs
}

func sorted(s string) []string {
	strs := strings.Fields(s)
	sort.Strings(strs)
	return strs
}

var genCases = []struct {
	name  string
	fen   string
	moves string
}{
	{"start", fen.StartFEN, `A7-A6-1 A7-B7-1 B7-A7-1 B7-B6-1 B7-C7-1 C6-B6-1 C6-C5-1
		C6-C7-1 C6-D6-1 D7-C7-1 D7-D6-1 D7-E7-1 D5-C5-1 D5-D4-1 D5-D6-1 D5-E5-1
		E6-D6-1 E6-E5-1 E6-E7-1 E6-F6-1 F7-E7-1 F7-F6-1 F7-G7-1 G7-F7-1 G7-G6-1`},
	{"tall towers", "3RG3/1r25/7/3r3b42/1b1BG4/4b12/7 r", `D7-C7-1 D7-E7-1 D7-D6-1
		B6-B7-1 B6-B5-1 B6-A6-1 B6-C6-1 B6-B4-2 B6-D6-2 D4-D5-1 D4-D3-1 D4-C4-1
		D4-D6-2 D4-D2-2 D4-B4-2 D4-D1-3 D4-A4-3`},
	{"own guard blocks", "7/3RG3/7/3r23/3b13/3BG3/7 r", `D6-D7-1 D6-C6-1 D6-E6-1
		D6-D5-1 D4-D5-1 D4-C4-1 D4-B4-2 D4-E4-1 D4-F4-2 D4-D3-1`},
	{"blue captures", "3RG3/7/7/7/4b11b1/4r4r11/3BG1b11 b", `D1-C1-1 D1-D2-1 D1-E1-1
		E3-D3-1 E3-E4-1 E3-F3-1 F1-E1-1 F1-F2-1 F1-G1-1 G3-G2-1 G3-F3-1 G3-G4-1`},
	{"crowded guard", "7/1b44b3/7/2BG4/3r13/2r1RG3/7 r", `D3-D4-1 D3-C3-1 D3-E3-1
		C2-C3-1 C2-B2-1 C2-C1-1 D2-E2-1 D2-D1-1`},
	{"tall red", "3RG1r21/7/3r53/7/3b53/7/1b21BG3 r", `D7-C7-1 D7-E7-1 D7-D6-1
		F7-E7-1 F7-G7-1 F7-F6-1 F7-F5-2 D5-C5-1 D5-E5-1 D5-D6-1 D5-D4-1 D5-B5-2
		D5-F5-2 D5-A5-3 D5-G5-3`},
	{"tall blue", "3RG1r21/7/3r22r3/7/3b53/7/1b21BG3 b", `B1-A1-1 B1-C1-1 B1-B2-1
		B1-B3-2 D1-D2-1 D1-C1-1 D1-E1-1 D3-C3-1 D3-E3-1 D3-D4-1 D3-D2-1 D3-B3-2
		D3-F3-2 D3-A3-3 D3-G3-3 D3-D5-2`},
}

func TestGenerateAll(t *testing.T) {
	for _, tc := range genCases {
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)
			p := fen.MustParse(tc.fen)
			is.Equal(moveStrings(GenerateAll(p)), sorted(tc.moves))
		})
	}
}

func TestStartMobilityIsSymmetric(t *testing.T) {
	is := is.New(t)
	p := board.StartPosition()
	is.Equal(len(GenerateFor(p, board.Red)), 25)
	is.Equal(len(GenerateFor(p, board.Blue)), 25)
	p.ToMove = board.Blue
	is.Equal(len(GenerateAll(p)), 25)
}

func TestEastEdgeDoesNotWrap(t *testing.T) {
	is := is.New(t)
	// a red r1 on G4 must not appear on A5 or anywhere else across the edge
	p := fen.MustParse("3RG3/7/7/6r1/7/7/3BG3 r")
	is.Equal(moveStrings(GenerateAll(p)), sorted(`D7-C7-1 D7-E7-1 D7-D6-1
		G4-G5-1 G4-G3-1 G4-F4-1`))
	p = fen.MustParse("3RG3/7/7/r16/7/7/3BG3 r")
	is.Equal(moveStrings(GenerateAll(p)), sorted(`D7-C7-1 D7-E7-1 D7-D6-1
		A4-A5-1 A4-A3-1 A4-B4-1`))
}

func TestPathBlocking(t *testing.T) {
	positions := []string{
		fen.StartFEN,
		"3RG3/1r25/7/3r3b42/1b1BG4/4b12/7 r",
		"3RG1r21/7/3r22r3/7/3b53/7/1b21BG3 b",
		"r7RG5/7/2b14/7/7/7/3BG2b7 r",
	}
	for _, s := range positions {
		is := is.New(t)
		p := fen.MustParse(s)
		for _, m := range GenerateAll(p) {
			is.Equal(board.Distance(m.From, m.To), int(m.Height))
			is.Equal(Between(m.From, m.To)&p.Occupied(), board.Bitboard(0))
			is.True(p.Height(m.From) >= int(m.Height))
			is.True(!p.GuardOf(p.ToMove).Has(m.To))
		}
	}
}

func TestBetween(t *testing.T) {
	is := is.New(t)
	d1, _ := board.SquareFromString("D1")
	d4, _ := board.SquareFromString("D4")
	a4, _ := board.SquareFromString("A4")
	e5, _ := board.SquareFromString("E5")
	is.Equal(len(Between(d1, d4).Squares()), 2)
	is.Equal(Between(d1, d4), Between(d4, d1))
	is.Equal(len(Between(a4, d4).Squares()), 2)
	is.Equal(Between(d4, e5), board.Bitboard(0))
}

func TestGenerateNoisy(t *testing.T) {
	is := is.New(t)
	// red r3 on D4 may take the b1 on D3 and the guard on D2 is shielded;
	// the b4 on E4 is too tall.
	p := fen.MustParse("3RG3/7/7/3r3b42/3b13/3BG3/7 r")
	is.Equal(moveStrings(GenerateNoisy(p)), []string{"D4-D3-1"})

	p = fen.MustParse("3RG3/7/7/7/7/3r13/3BG3 r")
	is.Equal(moveStrings(GenerateNoisy(p)), []string{"D2-D1-1"})

	is.Equal(len(GenerateNoisy(board.StartPosition())), 0)
}

func TestCheckLegal(t *testing.T) {
	is := is.New(t)
	p := board.StartPosition()
	for _, m := range GenerateAll(p) {
		is.NoErr(CheckLegal(p, m))
	}
	m, err := board.ParseMove("D1-D2-1")
	is.NoErr(err)
	// a blue move with red to move
	is.True(errors.Is(CheckLegal(p, m), ErrIllegalMove))
}
