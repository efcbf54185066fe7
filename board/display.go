package board

import (
	"fmt"
	"strings"
)

// ToDisplayText renders the board with rank 7 at the top.
func (p Position) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for f := 0; f < Dim; f++ {
		fmt.Fprintf(&sb, " %c ", 'A'+f)
	}
	sb.WriteString("\n")
	for r := Dim - 1; r >= 0; r-- {
		fmt.Fprintf(&sb, "%d  ", r+1)
		for f := 0; f < Dim; f++ {
			sb.WriteString(p.cellText(SquareAt(f, r)))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%s to move\n", p.ToMove)
	return sb.String()
}

func (p Position) cellText(s Square) string {
	side, ok := p.Owner(s)
	if !ok {
		return " . "
	}
	c := byte('r')
	if side == Blue {
		c = 'b'
	}
	if p.Guards.Has(s) {
		return " " + strings.ToUpper(string(c)) + "G"
	}
	return fmt.Sprintf(" %c%d", c, p.Height(s))
}
