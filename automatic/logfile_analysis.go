package automatic

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bastion-go/bastion/stats"
)

// AnalyzeLogFile summarizes a games log written by WriteGamesLog.
func AnalyzeLogFile(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	r := csv.NewReader(file)

	// gameID,red,blue,winner,reason,plies,final
	wins := map[string]float64{}
	played := map[string]int{}
	reasons := map[string]int{}
	plies := &stats.Statistic{}
	redWins := 0.0
	gamesPlayed := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if record[0] == gamesLogHeader[0] {
			continue
		}
		if len(record) != len(gamesLogHeader) {
			return "", fmt.Errorf("game %s: %d fields, want %d", record[0], len(record), len(gamesLogHeader))
		}
		red, blue, winner := record[1], record[2], record[3]
		n, err := strconv.Atoi(record[5])
		if err != nil {
			return "", err
		}
		plies.Push(float64(n))
		reasons[record[4]]++
		played[red]++
		played[blue]++
		switch winner {
		case RedWins.String():
			wins[red]++
			redWins++
		case BlueWins.String():
			wins[blue]++
		default:
			wins[red] += 0.5
			wins[blue] += 0.5
			redWins += 0.5
		}
		gamesPlayed++
	}
	if gamesPlayed == 0 {
		return "Games played: 0\n", nil
	}

	names := make([]string, 0, len(played))
	for name := range played {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games played: %d\n", gamesPlayed)
	for _, name := range names {
		fmt.Fprintf(&sb, "%v wins: %.1f (%.3f%%)\n", name, wins[name], 100.0*wins[name]/float64(played[name]))
	}
	fmt.Fprintf(&sb, "Red wins: %.1f (%.3f%%)\n", redWins, 100.0*redWins/float64(gamesPlayed))
	fmt.Fprintf(&sb, "Mean plies: %.3f  Stdev: %.3f\n", plies.Mean(), plies.Stdev())
	for _, reason := range []EndReason{ReasonWin, ReasonNoMoves, ReasonMoveLimit, ReasonRepetition} {
		fmt.Fprintf(&sb, "Ended by %s: %d\n", reason, reasons[reason.String()])
	}
	return sb.String(), nil
}
