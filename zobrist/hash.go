package zobrist

import (
	"lukechampine.com/frand"

	"github.com/bastion-go/bastion/board"
)

const bignum = 1<<63 - 2

// guards for both sides plus a tower of each height for both sides
const numPieceTypes = 2 + 2*board.MaxHeight

// DefaultSeed makes the keys identical from run to run, so hashes can be
// compared across processes.
var DefaultSeed = [32]byte{
	'b', 'a', 's', 't', 'i', 'o', 'n', '-', 'z', 'o', 'b', 'r', 'i', 's', 't', '-',
	'k', 'e', 'y', 's', '-', 'v', '1', 0, 0, 0, 0, 0, 0, 0, 0, 1,
}

// Default is initialized once with DefaultSeed.
var Default = New(DefaultSeed)

// generate a zobrist hash for a Guard & Towers position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	blueToMove uint64
	posTable   [board.NumSquares][numPieceTypes]uint64
}

func New(seed [32]byte) *Zobrist {
	z := &Zobrist{}
	z.Initialize(seed)
	return z
}

func (z *Zobrist) Initialize(seed [32]byte) {
	rng := frand.NewCustom(seed[:], 1024, 12)
	for i := 0; i < board.NumSquares; i++ {
		for j := 0; j < numPieceTypes; j++ {
			z.posTable[i][j] = rng.Uint64n(bignum) + 1
		}
	}
	z.blueToMove = rng.Uint64n(bignum) + 1
}

// pieceType maps the occupant of a square to its key column: 0 and 1 are
// the blue and red guards, 2-8 blue towers of height 1-7, 9-15 red towers.
func pieceType(p board.Position, s board.Square) (int, bool) {
	side, ok := p.Owner(s)
	if !ok {
		return 0, false
	}
	if p.Guards.Has(s) {
		if side == board.Blue {
			return 0, true
		}
		return 1, true
	}
	h := p.Height(s)
	if side == board.Blue {
		return 1 + h, true
	}
	return 1 + board.MaxHeight + h, true
}

func (z *Zobrist) square(p board.Position, s board.Square) uint64 {
	pt, ok := pieceType(p, s)
	if !ok {
		return 0
	}
	return z.posTable[s][pt]
}

// Hash computes the key of p from scratch.
func (z *Zobrist) Hash(p board.Position) uint64 {
	key := uint64(0)
	occ := p.Occupied()
	for occ != 0 {
		s := occ.Lowest()
		occ &= occ - 1
		key ^= z.square(p, s)
	}
	if p.ToMove == board.Blue {
		key ^= z.blueToMove
	}
	return key
}

// AddMove updates key, the hash of before, to the hash of after, where after
// is before with m applied. Only the two squares m touches change, so the
// same call made again with the positions swapped undoes it.
func (z *Zobrist) AddMove(key uint64, before, after board.Position, m board.Move) uint64 {
	key ^= z.square(before, m.From) ^ z.square(after, m.From)
	key ^= z.square(before, m.To) ^ z.square(after, m.To)
	return key ^ z.blueToMove
}
